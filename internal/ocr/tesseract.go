package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/diecast-scan/internal/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Progress stages reported by TesseractEngine. Tesseract itself gives no
// feedback while Text runs, so these only mark the steps around it.
const (
	stageConfigured = 10
	stageImageSet   = 30
	stageRecognized = 90
)

// TesseractEngine is an Engine backed by gosseract.
type TesseractEngine struct{}

// Recognize implements Engine.
func (TesseractEngine) Recognize(ctx context.Context, img image.Image, opts Options, progress ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil {
		return "", fmt.Errorf("no image to recognize")
	}
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := configure(client, opts); err != nil {
		return "", err
	}
	report(stageConfigured)

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	report(stageImageSet)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	report(stageRecognized)

	return text, nil
}

func configure(client *gosseract.Client, opts Options) error {
	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			return fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}

	lang := opts.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := client.SetLanguage(lang); err != nil {
		return fmt.Errorf("failed to set language: %w", err)
	}

	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			return fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	if opts.PageSegMode > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
			return fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}
	return nil
}

// TesseractVersion returns the installed Tesseract version.
func TesseractVersion() (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version(), nil
}

// Info describes the OCR subsystem.
type Info struct {
	Available      bool   `json:"available"`
	Version        string `json:"version,omitempty"`
	Error          string `json:"error,omitempty"`
	Backend        string `json:"backend"`
	Language       string `json:"language"`
	Whitelist      string `json:"whitelist"`
	TessdataPrefix string `json:"tessdata_prefix,omitempty"`
}

// GetInfo reports Tesseract availability for opts.
func GetInfo(opts Options) Info {
	info := Info{
		Backend:        "gosseract",
		Language:       opts.Language,
		Whitelist:      opts.Whitelist,
		TessdataPrefix: opts.TessdataPrefix,
	}
	if info.Language == "" {
		info.Language = DefaultLanguage
	}

	version, err := TesseractVersion()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Available = version != ""
	info.Version = version
	if !info.Available {
		info.Error = "tesseract did not report a version"
	}
	return info
}
