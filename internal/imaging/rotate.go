package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// RotateBinary rotates a binary image counter-clockwise by angle degrees
// around its centre, keeping the original dimensions. Uncovered corners are
// background and the result is re-thresholded so it stays two-valued.
//
// Rotating by a text line's Angle() levels that line; rotating by -Angle()
// undoes it.
func RotateBinary(img *image.Gray, angle float64) *image.Gray {
	if math.Abs(angle) < 1e-9 {
		return ToGray(img)
	}
	b := img.Bounds()
	rotated := imaging.Rotate(img, angle, color.Black)
	centred := imaging.CropCenter(rotated, b.Dx(), b.Dy())
	return Threshold(ToGray(centred), 128)
}
