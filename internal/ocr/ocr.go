package ocr

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/plate-ocr/internal/imaging"
)

// ErrUnavailable is returned by NewEngine when the binary was built without
// Tesseract support.
var ErrUnavailable = errors.New("tesseract support not compiled in (requires cgo)")

// Mode selects how the recognizer segments the supplied image.
type Mode int

const (
	// ModeSingleChar treats the image as exactly one character.
	ModeSingleChar Mode = iota
	// ModeSingleLine treats the image as one line of text.
	ModeSingleLine
)

func (m Mode) String() string {
	switch m {
	case ModeSingleChar:
		return "single-char"
	case ModeSingleLine:
		return "single-line"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Alternate is a competing reading of the same symbol.
type Alternate struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Symbol is one recognized character.
type Symbol struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"` // 0-100
	Box        image.Rectangle `json:"box"`        // source image coordinates
	PointSize  float64         `json:"point_size"`
	Alternates []Alternate     `json:"alternates,omitempty"`
}

// Recognizer is the OCR capability consumed by consensus.
//
// Implementations may hold one active image at a time, so a Recognizer must
// not be shared between goroutines; create one per worker with a Factory.
type Recognizer interface {
	// Recognize reads img, restricted to region when non-nil. Symbol boxes
	// are reported in img coordinates.
	Recognize(img image.Image, region *image.Rectangle, mode Mode) ([]Symbol, error)
	Close() error
}

// Factory creates a fresh Recognizer for one worker.
type Factory func() (Recognizer, error)

// Options configures a Tesseract Engine.
type Options struct {
	Language       string
	TessdataPrefix string
	Whitelist      string
}

// ClampConfidence limits a confidence to [0, 100].
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(100, c))
}

// sourceDPI is the resolution Tesseract assumes for images without one.
const sourceDPI = 70

// EstimatePointSize converts a glyph height in pixels to typographic points
// at the resolution Tesseract assumes for plate crops.
func EstimatePointSize(heightPx int) float64 {
	return float64(heightPx) * 72 / sourceDPI
}

// minGlyphHeight is the height small crops are scaled up to before OCR.
const minGlyphHeight = 32

// padding is the white border added around every crop.
const padding = 8

// prepared is a crop ready for the engine, with the mapping back to the
// source image.
type prepared struct {
	png    []byte
	origin image.Point
	scale  int
}

// toSource maps a box in prepared-image coordinates back to the source.
func (p prepared) toSource(r image.Rectangle) image.Rectangle {
	conv := func(v, o int) int {
		return (v-padding)/p.scale + o
	}
	return image.Rect(
		conv(r.Min.X, p.origin.X), conv(r.Min.Y, p.origin.Y),
		conv(r.Max.X, p.origin.X), conv(r.Max.Y, p.origin.Y),
	)
}

// prepare crops img to region and converts white-on-black binary text into
// the black-on-white layout Tesseract expects, enlarging small crops and
// adding a white margin.
func prepare(img image.Image, region *image.Rectangle) (prepared, error) {
	gray := imaging.ToGray(img)
	origin := img.Bounds().Min
	if region != nil {
		r := region.Sub(origin).Intersect(gray.Bounds())
		crop, err := imaging.CropGray(gray, r)
		if err != nil {
			return prepared{}, err
		}
		gray = crop
		origin = r.Min.Add(origin)
	}

	scale := 1
	if h := gray.Bounds().Dy(); h > 0 && h < minGlyphHeight {
		scale = (minGlyphHeight + h - 1) / h
	}
	if scale > 1 {
		gray = imaging.ResizeGray(gray, gray.Bounds().Dx()*scale, gray.Bounds().Dy()*scale, true)
	}

	gray = imaging.PadGray(imaging.Invert(gray), padding, 255)
	data, err := imaging.EncodePNG(gray)
	if err != nil {
		return prepared{}, err
	}
	return prepared{png: data, origin: origin, scale: scale}, nil
}
