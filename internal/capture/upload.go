package capture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"strings"

	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultMaxUploadBytes caps uploaded images at 25 MiB.
const DefaultMaxUploadBytes = 25 << 20

// HandleFileUpload decodes an uploaded image into a RawCapture.
//
// contentType may be empty; the format is sniffed from the data. HEIC/HEIF is
// recognized from either the MIME type or the ftyp box.
func (a *Acquirer) HandleFileUpload(r io.Reader, contentType string) (*RawCapture, error) {
	if a.maxUpload > 0 {
		r = io.LimitReader(r, a.maxUpload+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if a.maxUpload > 0 && int64(len(data)) > a.maxUpload {
		return nil, fmt.Errorf("upload exceeds %d bytes", a.maxUpload)
	}

	img, format, err := DecodeImage(data, contentType)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("file decoded", "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	return &RawCapture{Image: img, Source: SourceFile, Format: format}, nil
}

// LoadFile opens path and passes it through HandleFileUpload.
func (a *Acquirer) LoadFile(path string) (*RawCapture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return a.HandleFileUpload(f, "")
}

// DecodeImage decodes data and returns the image with its format name.
func DecodeImage(data []byte, contentType string) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image data")
	}

	// Go's standard image package does not decode HEIC
	if isHEICFormat(data) || isHEICMimeType(contentType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode HEIC/HEIF image: %w", err)
		}
		return img, "heic", nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if err == image.ErrFormat {
			return nil, "", fmt.Errorf("unsupported image format (supported: PNG, JPEG, GIF, BMP, TIFF, WebP, HEIC): %w", err)
		}
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// isHEICFormat checks the ftyp box brand at offset 4.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
