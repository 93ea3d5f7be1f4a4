package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Region names an area of a frame to keep before recognition.
type Region string

// Named regions accepted by CropRegion.
const (
	RegionFull        Region = "full"
	RegionTopHalf     Region = "top-half"
	RegionBottomHalf  Region = "bottom-half"
	RegionLeftHalf    Region = "left-half"
	RegionRightHalf   Region = "right-half"
	RegionTopLeft     Region = "top-left"
	RegionTopRight    Region = "top-right"
	RegionBottomLeft  Region = "bottom-left"
	RegionBottomRight Region = "bottom-right"
	RegionCenter      Region = "center"
)

// Regions lists every valid Region, in the order shown to users.
var Regions = []Region{
	RegionFull, RegionTopHalf, RegionBottomHalf, RegionLeftHalf, RegionRightHalf,
	RegionTopLeft, RegionTopRight, RegionBottomLeft, RegionBottomRight, RegionCenter,
}

// Crop extracts a rectangle from img. The rectangle must lie inside the image
// bounds and be non-empty.
func Crop(img image.Image, r image.Rectangle) (image.Image, error) {
	bounds := img.Bounds()

	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}
	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: must have positive width and height", r)
	}

	return imaging.Crop(img, r), nil
}

// CropRegion extracts a named region. RegionFull and "" return img unchanged.
func CropRegion(img image.Image, region Region) (image.Image, error) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	midX := w / 2
	midY := h / 2

	var x1, y1, x2, y2 int

	switch region {
	case "", RegionFull:
		return img, nil
	case RegionTopLeft:
		x1, y1, x2, y2 = 0, 0, midX, midY
	case RegionTopRight:
		x1, y1, x2, y2 = midX, 0, w, midY
	case RegionBottomLeft:
		x1, y1, x2, y2 = 0, midY, midX, h
	case RegionBottomRight:
		x1, y1, x2, y2 = midX, midY, w, h
	case RegionTopHalf:
		x1, y1, x2, y2 = 0, 0, w, midY
	case RegionBottomHalf:
		x1, y1, x2, y2 = 0, midY, w, h
	case RegionLeftHalf:
		x1, y1, x2, y2 = 0, 0, midX, h
	case RegionRightHalf:
		x1, y1, x2, y2 = midX, 0, w, h
	case RegionCenter:
		// Center 50% of the frame
		qW := w / 4
		qH := h / 4
		x1, y1, x2, y2 = qW, qH, w-qW, h-qH
	default:
		return nil, fmt.Errorf("unknown region: %s", region)
	}

	r := image.Rect(x1, y1, x2, y2).Add(bounds.Min)
	return Crop(img, r)
}
