package binarize

import (
	"image"

	dimaging "github.com/disintegration/imaging"
	"github.com/ironsheep/plate-ocr/internal/imaging"
)

// Per-step adjustment sizes for Perturb.
const (
	gammaStep      = 0.04
	contrastStep   = 3.0
	brightnessStep = 2.0
)

// Perturb returns a slightly altered copy of gray for attempt index, so
// repeated attempts see different binarizations of the same crop. Index 0
// returns gray unchanged.
//
// The low three bits of the index choose which of gamma, contrast and
// brightness change; higher indices repeat the pattern with larger steps.
func Perturb(gray *image.Gray, index int) *image.Gray {
	if index <= 0 {
		return gray
	}

	scale := 1.0
	if index%8 == 0 {
		// Multiples of 8 would change nothing; use the previous pattern at a
		// smaller step.
		index--
		scale = 1 / 1.5
	}
	step := float64(index/8+1) * scale
	bits := index % 8

	img := image.Image(gray)
	if bits&1 != 0 {
		img = dimaging.AdjustGamma(img, 1+gammaStep*step)
	}
	if bits&2 != 0 {
		img = dimaging.AdjustContrast(img, contrastStep*step)
	}
	if bits&4 != 0 {
		img = dimaging.AdjustBrightness(img, -brightnessStep*step)
	}
	return imaging.ToGray(img)
}
