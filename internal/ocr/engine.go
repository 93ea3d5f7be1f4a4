package ocr

import (
	"context"
	"fmt"
	"image"
)

// DefaultWhitelist is the recognition alphabet for product codes.
const DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789- "

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// ProgressFunc receives recognition progress in percent.
type ProgressFunc func(percent int)

// Options configures one recognition call.
type Options struct {
	// Language is a Tesseract language code such as "eng".
	Language string `json:"language,omitempty"`

	// Whitelist restricts the characters the engine may emit.
	Whitelist string `json:"whitelist,omitempty"`

	// PageSegMode is a Tesseract page segmentation mode. 0 keeps the engine
	// default.
	PageSegMode int `json:"page_seg_mode,omitempty"`

	// TessdataPrefix points at the directory holding *.traineddata files.
	// Empty uses the system location.
	TessdataPrefix string `json:"tessdata_prefix,omitempty"`
}

// DefaultOptions returns English recognition with the code alphabet.
func DefaultOptions() Options {
	return Options{
		Language:  DefaultLanguage,
		Whitelist: DefaultWhitelist,
	}
}

// Engine recognizes text in an image.
//
// Implementations must release every resource they acquire before returning.
// progress may be nil.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, opts Options, progress ProgressFunc) (string, error)
}

// EngineError reports that the recognition engine failed to start or crashed.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("ocr engine failed: %v", e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
