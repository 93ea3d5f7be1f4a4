package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// Options controls Preprocess. The zero value only converts to grayscale.
type Options struct {
	// Region is cropped first. "" or RegionFull keeps the whole frame.
	Region Region `json:"region,omitempty"`

	// Ink, when set, isolates pixels in this band before anything else.
	Ink *InkBand `json:"ink,omitempty"`

	// MinHeight upscales frames shorter than this many pixels. 0 disables.
	MinHeight int `json:"min_height,omitempty"`

	// Contrast is a percentage in [-100, 100]. 0 leaves contrast alone.
	Contrast float64 `json:"contrast,omitempty"`

	// Sharpen is the Gaussian sigma of the unsharp mask. 0 disables.
	Sharpen float64 `json:"sharpen,omitempty"`

	// Threshold binarizes at this luminance level. 0 disables.
	Threshold uint8 `json:"threshold,omitempty"`
}

// DefaultOptions mirrors what works on phone photos of packaging.
func DefaultOptions() Options {
	return Options{
		Region:    RegionFull,
		MinHeight: 600,
		Contrast:  20,
		Sharpen:   0.5,
	}
}

// Preprocess returns a grayscale copy of img prepared for OCR.
func Preprocess(img image.Image, opts Options) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("no image to preprocess")
	}
	if opts.Contrast < -100 || opts.Contrast > 100 {
		return nil, fmt.Errorf("contrast %v out of range [-100, 100]", opts.Contrast)
	}

	out, err := CropRegion(img, opts.Region)
	if err != nil {
		return nil, err
	}

	if opts.Ink != nil {
		out = IsolateInk(out, *opts.Ink)
	}

	if opts.MinHeight > 0 && out.Bounds().Dy() > 0 && out.Bounds().Dy() < opts.MinHeight {
		// width 0 preserves aspect ratio
		out = imaging.Resize(out, 0, opts.MinHeight, imaging.Lanczos)
	}

	gray := imaging.Grayscale(out)

	if opts.Contrast != 0 {
		gray = imaging.AdjustContrast(gray, opts.Contrast)
	}
	if opts.Sharpen > 0 {
		gray = imaging.Sharpen(gray, opts.Sharpen)
	}

	if opts.Threshold > 0 {
		return segment.Threshold(gray, opts.Threshold), nil
	}
	return gray, nil
}

// EncodePNG encodes img as PNG bytes for engines that take encoded input.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
