// Package linefind estimates the text line of a single-row plate crop from
// the glyph-sized components of its primary binarization.
package linefind

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/ironsheep/plate-ocr/internal/detection"
	"github.com/ironsheep/plate-ocr/internal/plate"
	"gonum.org/v1/gonum/stat"
)

// ErrNoCharacters is returned when too few glyph-like components exist to
// fit a line.
var ErrNoCharacters = errors.New("not enough character contours to find a text line")

// Glyph filters, relative to the crop height and the median glyph height.
const (
	minHeightRatio  = 0.25
	maxHeightRatio  = 0.98
	maxAspect       = 1.5
	heightTolerance = 0.25
	minGlyphPixels  = 8
	minGoodContours = 2
	centreTolerance = 0.35
)

// Find fits top and bottom lines through the glyph components of images[0]
// with least squares. Every component is kept on the returned line; those
// used for the fit are flagged Good.
func Find(images plate.BinaryImageSet) (*plate.TextLine, error) {
	if err := images.Validate(); err != nil {
		return nil, fmt.Errorf("failed to find text line: %w", err)
	}
	img := images[0]
	b := img.Bounds()
	h := float64(b.Dy())

	contours := detection.FindContours(img, minGlyphPixels)
	var heights []float64
	for _, c := range contours {
		ch := float64(c.Bounds.Height())
		if ch < minHeightRatio*h || ch > maxHeightRatio*h || float64(c.Bounds.Width()) > maxAspect*ch {
			continue
		}
		heights = append(heights, ch)
	}
	if len(heights) < minGoodContours {
		return nil, ErrNoCharacters
	}
	slices.Sort(heights)
	median := stat.Quantile(0.5, stat.Empirical, heights, nil)

	var good []int
	for i, c := range contours {
		ch := float64(c.Bounds.Height())
		if math.Abs(ch-median) > heightTolerance*median || float64(c.Bounds.Width()) > maxAspect*ch {
			continue
		}
		good = append(good, i)
	}
	good = dropOffCentre(contours, good, median)
	if len(good) < minGoodContours {
		return nil, ErrNoCharacters
	}

	xs := make([]float64, len(good))
	tops := make([]float64, len(good))
	bottoms := make([]float64, len(good))
	for k, i := range good {
		c := &contours[i]
		c.Good = true
		xs[k] = float64(c.Bounds.X1+c.Bounds.X2) / 2
		tops[k] = float64(c.Bounds.Y1)
		bottoms[k] = float64(c.Bounds.Y2)
	}

	x1, x2 := float64(b.Min.X), float64(b.Max.X-1)
	line := plate.NewTextLine(fit(xs, tops, x1, x2), fit(xs, bottoms, x1, x2))
	line.Contours = contours
	return line, nil
}

// dropOffCentre removes components whose vertical centre is far from the
// median centre of the others, such as bolts and stickers of glyph height.
func dropOffCentre(contours []detection.Contour, idx []int, height float64) []int {
	if len(idx) < 3 {
		return idx
	}
	centres := make([]float64, len(idx))
	for k, i := range idx {
		centres[k] = float64(contours[i].Bounds.Y1+contours[i].Bounds.Y2) / 2
	}
	sorted := slices.Clone(centres)
	slices.Sort(sorted)
	mid := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	kept := idx[:0]
	for k, i := range idx {
		if math.Abs(centres[k]-mid) <= centreTolerance*height {
			kept = append(kept, i)
		}
	}
	return kept
}

// fit returns the least-squares line y = a + b·x over [x1, x2]. A single
// distinct x gives a horizontal line at the mean y.
func fit(xs, ys []float64, x1, x2 float64) detection.LineSegment {
	if slices.Min(xs) == slices.Max(xs) {
		y := stat.Mean(ys, nil)
		return detection.NewLineSegment(x1, y, x2, y)
	}
	a, b := stat.LinearRegression(xs, ys, nil, false)
	return detection.NewLineSegment(x1, a+b*x1, x2, a+b*x2)
}
