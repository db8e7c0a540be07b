package segment

import (
	"image"
	"math"

	"github.com/ironsheep/plate-ocr/internal/detection"
	"github.com/ironsheep/plate-ocr/internal/imaging"
	"github.com/ironsheep/plate-ocr/internal/plate"
)

// runLeniency is the widest gap of empty columns joined into one run.
const runLeniency = 2

// lineMask rasterizes the line polygon.
func lineMask(b image.Rectangle, line *plate.TextLine) *image.Gray {
	mask := imaging.NewBinary(b.Dx(), b.Dy(), 0)
	imaging.FillConvexPoly(mask, detection.ImagePoints(line.Polygon[:]), 255)
	return mask
}

// boxFromSpan spans a column range vertically from one pixel above the top
// line to one pixel below the bottom line, clamped to b.
func boxFromSpan(s span, line *plate.TextLine, b image.Rectangle) image.Rectangle {
	y0 := int(line.Top.YAt(float64(s.start))) - 1
	y1 := int(line.Bottom.YAt(float64(s.end))) + 1
	return image.Rect(s.start, y0, s.end, y1).Intersect(b)
}

// splitDouble tries to cut an oversized box at the histogram valley between
// 40% and 60% of its width. Each half is kept when the valley is below a
// quarter of that half's peak; when peakFloor is positive the peak must also
// exceed it.
func splitDouble(box image.Rectangle, hist *VerticalHistogram, peakFloor float64) []image.Rectangle {
	w := box.Dx()
	left := box.Min.X + int(float64(w)*0.4)
	right := box.Min.X + int(float64(w)*0.6)

	minX := hist.LocalMinimum(left, right)
	valley := float64(hist.HeightAt(minX))
	peak1 := float64(hist.HeightAt(hist.LocalMaximum(box.Min.X, minX)))
	peak2 := float64(hist.HeightAt(hist.LocalMaximum(minX, box.Max.X)))

	var out []image.Rectangle
	if peak1 > peakFloor && valley < 0.25*peak1 {
		if r := image.Rect(box.Min.X, box.Min.Y, minX-1, box.Max.Y); !r.Empty() {
			out = append(out, r)
		}
	}
	if peak2 > peakFloor && valley < 0.25*peak2 {
		if r := image.Rect(minX+1, box.Min.Y, box.Max.X, box.Max.Y); !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

// boxesForImage returns the character box candidates of one binary image.
func boxesForImage(img, mask *image.Gray, line *plate.TextLine, m lineMetrics) []image.Rectangle {
	hist := NewVerticalHistogram(img, mask)
	b := img.Bounds()

	var boxes []image.Rectangle
	for _, s := range hist.Runs(0, runLeniency) {
		box := boxFromSpan(s, line, b)
		w, h := float64(box.Dx()), float64(box.Dy())
		if h <= m.minHistogramHeight {
			continue
		}
		switch {
		case box.Dx() >= m.minBoxWidth && w <= m.maxBoxWidth:
			boxes = append(boxes, box)
		case w > 2*m.avgWidth && w < 2*m.maxBoxWidth:
			boxes = append(boxes, splitDouble(box, hist, m.minHistogramHeight)...)
		}
	}
	return boxes
}

// bestBoxes chooses the canonical box layout for a line from the boxes found
// in every image. A coverage histogram counts how many boxes span each column;
// each coverage level is scored by how close its runs are to the average
// character width, and the first strictly best level wins.
func bestBoxes(b image.Rectangle, candidates []image.Rectangle, line *plate.TextLine, m lineMetrics) ([]image.Rectangle, float64) {
	coverage := make([]int, b.Dx())
	maxCount := 0
	for x := range coverage {
		col := b.Min.X + x
		for _, c := range candidates {
			if col >= c.Min.X && col < c.Max.X {
				coverage[x]++
			}
		}
		maxCount = max(maxCount, coverage[x])
	}
	hist := histogramOf(coverage)

	var best []image.Rectangle
	bestScore := 0.0
	for row := 0; row < maxCount; row++ {
		var valid []image.Rectangle
		score := 0.0
		for _, s := range hist.Runs(row, 0) {
			box := boxFromSpan(s, line, b)
			w := float64(box.Dx())
			switch {
			case box.Dx() >= m.minBoxWidth && w <= m.maxBoxWidth:
				diff := math.Abs(w-m.avgWidth) / m.avgWidth
				score += 10 * (1 - diff)
				if diff < 0.25 {
					score += 8
				}
				valid = append(valid, box)
			case w > 2*m.avgWidth && w <= 2*m.maxBoxWidth:
				valid = append(valid, splitDouble(box, hist, 0)...)
			}
		}
		if score > bestScore {
			bestScore = score
			best = valid
		}
	}
	return best, bestScore
}
