package segment

import (
	"image"

	"github.com/ironsheep/plate-ocr/internal/imaging"
)

// VerticalHistogram holds the foreground pixel count of every column.
type VerticalHistogram struct {
	heights []int
}

// NewVerticalHistogram projects img onto the x axis. When mask is non-nil
// only pixels that are foreground in mask are counted.
func NewVerticalHistogram(img, mask *image.Gray) *VerticalHistogram {
	b := img.Bounds()
	heights := make([]int, b.Dx())
	for x := b.Min.X; x < b.Max.X; x++ {
		n := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if mask != nil && !imaging.IsForeground(mask, x, y) {
				continue
			}
			if imaging.IsForeground(img, x, y) {
				n++
			}
		}
		heights[x-b.Min.X] = n
	}
	return &VerticalHistogram{heights: heights}
}

// histogramOf wraps precomputed column heights.
func histogramOf(heights []int) *VerticalHistogram {
	return &VerticalHistogram{heights: heights}
}

// Len returns the number of columns.
func (h *VerticalHistogram) Len() int { return len(h.heights) }

// HeightAt returns the count at column x, clamped to the histogram.
func (h *VerticalHistogram) HeightAt(x int) int {
	if len(h.heights) == 0 {
		return 0
	}
	return h.heights[h.clamp(x)]
}

func (h *VerticalHistogram) clamp(x int) int {
	return max(0, min(x, len(h.heights)-1))
}

// LocalMinimum returns the column in [left, right] with the lowest count.
// Ties resolve to the leftmost column.
func (h *VerticalHistogram) LocalMinimum(left, right int) int {
	left, right = h.clamp(left), h.clamp(right)
	best := left
	for x := left; x <= right; x++ {
		if h.heights[x] < h.heights[best] {
			best = x
		}
	}
	return best
}

// LocalMaximum returns the column in [left, right] with the highest count.
// Ties resolve to the leftmost column.
func (h *VerticalHistogram) LocalMaximum(left, right int) int {
	left, right = h.clamp(left), h.clamp(right)
	best := left
	for x := left; x <= right; x++ {
		if h.heights[x] > h.heights[best] {
			best = x
		}
	}
	return best
}

// span is a half-open column range [start, end).
type span struct {
	start, end int
}

// Runs returns the column ranges whose count exceeds threshold. Runs
// separated by at most leniency columns at or below the threshold are
// joined.
func (h *VerticalHistogram) Runs(threshold, leniency int) []span {
	var runs []span
	on := false
	start, lastOn := 0, 0
	for x, v := range h.heights {
		if v <= threshold {
			continue
		}
		if on && x-lastOn-1 <= leniency {
			lastOn = x
			continue
		}
		if on {
			runs = append(runs, span{start, lastOn + 1})
		}
		on, start, lastOn = true, x, x
	}
	if on {
		runs = append(runs, span{start, lastOn + 1})
	}
	return runs
}
