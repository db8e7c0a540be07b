// Package binarize turns a grayscale plate crop into the set of binary
// images the segmenter works on, with dark characters becoming foreground.
package binarize

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/ironsheep/plate-ocr/internal/config"
	"github.com/ironsheep/plate-ocr/internal/imaging"
	"github.com/ironsheep/plate-ocr/internal/plate"
)

// Binarizer produces one binary image per configured threshold, plus an
// adaptive variant when enabled.
type Binarizer struct {
	cfg config.Binarize
}

// New creates a Binarizer.
func New(cfg config.Binarize) *Binarizer {
	return &Binarizer{cfg: cfg}
}

// Binarize thresholds gray. Every image in the returned set has the bounds
// of gray anchored at (0,0); the fixed levels come first in configured order.
func (b *Binarizer) Binarize(gray *image.Gray) (plate.BinaryImageSet, error) {
	if gray.Bounds().Empty() {
		return nil, fmt.Errorf("failed to binarize: empty image")
	}
	gray = imaging.ToGray(gray)

	set := make(plate.BinaryImageSet, 0, len(b.cfg.Levels)+1)
	if len(b.cfg.Levels) > 0 {
		// Dark text becomes bright, so a plain threshold keeps it.
		inverted := effect.Invert(gray)
		for _, level := range b.cfg.Levels {
			set = append(set, imaging.ToGray(segment.Threshold(inverted, 255-level)))
		}
	}
	if b.cfg.Adaptive {
		set = append(set, Adaptive(gray, b.cfg.AdaptiveRadius, b.cfg.AdaptiveOffset))
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("failed to binarize: %w", err)
	}
	return set, nil
}

// Adaptive marks a pixel as foreground when it is darker than the box-blurred
// mean of its neighbourhood by more than offset.
func Adaptive(gray *image.Gray, radius float64, offset int) *image.Gray {
	if radius <= 0 {
		radius = 8
	}
	gray = imaging.ToGray(gray)
	mean := effect.Grayscale(blur.Box(gray, radius))

	out := image.NewGray(gray.Bounds())
	for y := 0; y < gray.Bounds().Dy(); y++ {
		for x := 0; x < gray.Bounds().Dx(); x++ {
			local := int(mean.Pix[mean.PixOffset(x+mean.Rect.Min.X, y+mean.Rect.Min.Y)])
			if int(gray.Pix[gray.PixOffset(x, y)]) < local-offset {
				out.Pix[out.PixOffset(x, y)] = 255
			}
		}
	}
	return out
}
