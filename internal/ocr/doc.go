// Package ocr runs text recognition over captured images using Tesseract.
//
// Recognition is restricted to the characters product codes are printed with:
// uppercase letters, digits, hyphen and space. Excluding everything else
// noticeably improves accuracy on packaging photos.
//
// # Prerequisites
//
// Tesseract and its English language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Engine lifecycle
//
// TesseractEngine creates a fresh gosseract client for every call and closes
// it before returning, on success and failure alike. No engine state survives
// between calls.
//
// # Progress
//
// Recognizer reports coarse progress in percent. Reported values never go
// backwards and a successful call always ends at 100.
package ocr
