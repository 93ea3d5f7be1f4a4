package imaging

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// InkBand selects printed ink by hue, saturation and brightness.
//
// Hue is in degrees (0-360). When HueFrom > HueTo the band wraps through 0,
// which is how red is expressed.
type InkBand struct {
	HueFrom       float64 `json:"hue_from"`
	HueTo         float64 `json:"hue_to"`
	MinSaturation float64 `json:"min_saturation"` // 0-1
	MinValue      float64 `json:"min_value"`      // 0-1
}

// RedInk matches the red print used for base codes.
var RedInk = InkBand{HueFrom: 330, HueTo: 25, MinSaturation: 0.35, MinValue: 0.25}

// Contains reports whether c falls inside the band. Fully transparent pixels
// never match.
func (b InkBand) Contains(c color.Color) bool {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return false
	}

	h, s, v := cf.Hsv()
	if s < b.MinSaturation || v < b.MinValue {
		return false
	}

	if b.HueFrom <= b.HueTo {
		return h >= b.HueFrom && h <= b.HueTo
	}
	return h >= b.HueFrom || h <= b.HueTo
}

// IsolateInk renders ink pixels black on a white background.
//
// The result keeps the input's dimensions and has its origin at (0,0).
func IsolateInk(img image.Image, band InkBand) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := uint8(255)
			if band.Contains(img.At(x, y)) {
				v = 0
			}
			out.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: v})
		}
	}

	return out
}

// InkCoverage returns the fraction (0-1) of pixels inside the band.
//
// A very low coverage after cropping usually means the code is out of frame.
func InkCoverage(img image.Image, band InkBand) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	hits := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if band.Contains(img.At(x, y)) {
				hits++
			}
		}
	}
	return float64(hits) / float64(total)
}
