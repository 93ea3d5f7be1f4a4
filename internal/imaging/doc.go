// Package imaging prepares captured frames for text recognition.
//
// Packaging photos are rarely OCR-friendly: the base code is small, printed in
// red ink on a busy card, and shot at an angle under uneven light. This package
// applies a configurable chain of cheap corrections before the frame is handed
// to the OCR engine:
//
//  1. Region crop: keep a named area of the frame (the code is printed at the
//     top of the card back, so "top-half" is a common choice)
//  2. Ink isolation: keep pixels in a hue band (red by default) and whiten the
//     rest, using HSV from go-colorful
//  3. Upscale: Lanczos resize so short frames reach a minimum height
//  4. Grayscale, contrast and sharpen via disintegration/imaging
//  5. Binarize: a fixed luminance threshold via bild/segment
//
// # Coordinate System
//
// Pixel coordinates are 0-based with the origin at the top-left corner. For
// rectangles, Min is inclusive and Max is exclusive, as in image.Rectangle.
//
// # Thread Safety
//
// All functions are stateless and return new images; the input is never
// modified, so the same frame can be processed concurrently.
package imaging
