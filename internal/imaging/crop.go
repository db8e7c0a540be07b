package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// ToGray converts any image to an 8-bit grayscale image anchored at (0,0).
//
// *image.Gray inputs are copied so the result never aliases the source.
// Other color models go through imaging.Grayscale (ITU-R BT.601 weights).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			src := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src[:b.Dx()])
		}
		return out
	}

	nrgba := imaging.Grayscale(img)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = nrgba.Pix[y*nrgba.Stride+x*4]
		}
	}
	return out
}

// CropGray extracts r from img. The region is clamped to the image bounds and
// the result is anchored at (0,0).
func CropGray(img *image.Gray, r image.Rectangle) (*image.Gray, error) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, img.Bounds())
	}
	return ToGray(imaging.Crop(img, r)), nil
}

// ResizeGray scales img to w x h. Binary images use nearest-neighbour
// sampling so they stay two-valued; grayscale images use Lanczos.
func ResizeGray(img *image.Gray, w, h int, binary bool) *image.Gray {
	filter := imaging.Lanczos
	if binary {
		filter = imaging.NearestNeighbor
	}
	return ToGray(imaging.Resize(img, w, h, filter))
}

// Invert returns a copy of img with every value v replaced by 255-v.
func Invert(img *image.Gray) *image.Gray {
	return ToGray(imaging.Invert(img))
}

// PadGray surrounds img with a border of the given value.
func PadGray(img *image.Gray, border int, v uint8) *image.Gray {
	b := img.Bounds()
	bg := image.NewGray(image.Rect(0, 0, b.Dx()+2*border, b.Dy()+2*border))
	FillRect(bg, bg.Bounds(), v)
	return ToGray(imaging.Paste(bg, img, image.Pt(border, border)))
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Threshold returns a binary copy of img: values at or above level become
// 255, the rest 0.
func Threshold(img *image.Gray, level uint8) *image.Gray {
	return ToGray(segment.Threshold(img, level))
}

// IsForeground reports whether the pixel at (x, y) is set in a binary image.
// Out-of-bounds coordinates are background.
func IsForeground(img *image.Gray, x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return false
	}
	return img.GrayAt(x, y).Y > 127
}

var (
	black = color.Gray{Y: 0}
	white = color.Gray{Y: 255}
)
