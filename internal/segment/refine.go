package segment

import (
	"image"
	"math"
	"slices"

	"github.com/ironsheep/plate-ocr/internal/detection"
	"github.com/ironsheep/plate-ocr/internal/imaging"
	"github.com/ironsheep/plate-ocr/internal/plate"
)

const (
	minRotationAngle  = 0.4
	maxEdgeCoverage   = 0.6
	minFullBoxRatio   = 0.49
	speckleHeightFrac = 0.13
	speckleWidthPx    = 3
	minAreaFrac       = 0.05
)

// charGap is the distance between the midpoints of two boxes.
func charGap(left, right image.Rectangle) int {
	return (right.Min.X + right.Dx()/2) - (left.Min.X + left.Dx()/2)
}

// median of integers; the mean of the two middle values for even counts.
func median(vals []int) int {
	if len(vals) == 0 {
		return 0
	}
	s := slices.Clone(vals)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// combineCloseBoxes merges neighbouring boxes that are halves of one
// character. Box i absorbs box i+1 when one of the gaps around box i is within
// 75%-125% of the median gap and the merged width does not exceed 1.2x the
// second widest box. Lines with fewer than minChars boxes are left alone.
func combineCloseBoxes(boxes []image.Rectangle, minChars int) []image.Rectangle {
	if len(boxes) < minChars || len(boxes) < 2 {
		return boxes
	}

	gaps := make([]int, 0, len(boxes)-1)
	for i := 0; i < len(boxes)-1; i++ {
		gaps = append(gaps, charGap(boxes[i], boxes[i+1]))
	}
	med := median(gaps)

	widths := make([]int, len(boxes))
	for i, b := range boxes {
		widths[i] = b.Dx()
	}
	slices.Sort(widths)
	biggest := widths[len(widths)-2]

	minGap := int(float64(med) * 0.75)
	maxGap := int(float64(med) * 1.25)
	maxWidth := int(float64(biggest) * 1.2)
	goodGap := func(g int) bool { return g >= minGap && g <= maxGap }

	out := make([]image.Rectangle, 0, len(boxes))
	for i := 0; i < len(boxes); i++ {
		if i == len(boxes)-1 {
			out = append(out, boxes[i])
			break
		}
		merged := boxes[i].Union(boxes[i+1])
		good := goodGap(charGap(boxes[i], boxes[i+1]))
		if i > 0 {
			good = good || goodGap(charGap(boxes[i-1], boxes[i]))
		}
		if good && merged.Dx() <= maxWidth {
			out = append(out, merged)
			i++
			continue
		}
		out = append(out, boxes[i])
	}
	return out
}

// longestRunBetweenLines returns the longest vertical foreground run in
// column col that touches the band between the line's top and bottom
// segments. Pixels outside the band weigh 1.1.
func longestRunBetweenLines(img *image.Gray, col int, line *plate.TextLine) float64 {
	b := img.Bounds()
	longest, cur := 0.0, 0.0
	on, touched := false, false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		fg := imaging.IsForeground(img, col, y)
		if fg {
			p := detection.PointF{X: float64(col), Y: float64(y)}
			between := line.Top.IsPointBelow(p) && !line.Bottom.IsPointBelow(p)
			if between {
				cur++
				touched = true
			} else {
				cur += 1.1
			}
			on = true
		}
		if on && (!fg || y == b.Max.Y-1) {
			if touched && cur > longest {
				longest = cur
			}
			on, touched, cur = false, false, 0
		}
	}
	return longest
}

// filterEdgeBoxes looks outward from the first and last boxes for tall
// vertical runs, which mark the plate border. It returns a mask that blanks
// everything beyond the border at the height of the line, together with the
// boxes that survive: an edge box mostly covered by the mask is dropped.
func filterEdgeBoxes(images plate.BinaryImageSet, boxes []image.Rectangle, line *plate.TextLine, m lineMetrics) (*image.Gray, []image.Rectangle) {
	b := images.Bounds()
	mask := imaging.NewBinary(b.Dx(), b.Dy(), 255)
	if len(boxes) <= 1 {
		return mask, boxes
	}

	minConnected := float64(int(m.avgHeight * 1.5))
	if alt := float64(int(float64(b.Dy()) * 0.92)); alt < minConnected && alt > m.avgHeight {
		minConnected = alt
	}

	angle := line.Angle()
	rotate := math.Abs(angle) > minRotationAngle
	first, last := boxes[0], boxes[len(boxes)-1]

	var leftEdges, rightEdges []int
	for _, img := range images {
		work := img
		if rotate {
			work = imaging.RotateBinary(img, angle)
		}

		leftX, rightX := 0, b.Dx()
		for col := min(first.Max.X, b.Dx()-1); col >= 0; col-- {
			if longestRunBetweenLines(work, col, line) > minConnected {
				leftX = col
				break
			}
		}
		for col := max(last.Min.X, 0); col < b.Dx(); col++ {
			if longestRunBetweenLines(work, col, line) > minConnected {
				rightX = col
				break
			}
		}
		if leftX != 0 {
			leftEdges = append(leftEdges, leftX)
		}
		if rightX != b.Dx() {
			rightEdges = append(rightEdges, rightX)
		}
	}

	// One image seeing a border is not enough; take the second closest.
	leftEdge, rightEdge := 0, b.Dx()
	if len(leftEdges) > 1 {
		slices.Sort(leftEdges)
		leftEdge = leftEdges[len(leftEdges)-2] + 1
	}
	if len(rightEdges) > 1 {
		slices.Sort(rightEdges)
		rightEdge = rightEdges[1] - 1
	}
	if leftEdge == 0 && rightEdge == b.Dx() {
		return mask, boxes
	}

	blocked := imaging.NewBinary(b.Dx(), b.Dy(), 0)
	imaging.FillRect(blocked, image.Rect(0, first.Min.Y, leftEdge, first.Max.Y), 255)
	imaging.FillRect(blocked, image.Rect(rightEdge, first.Min.Y, b.Dx(), first.Max.Y), 255)
	if rotate {
		blocked = imaging.RotateBinary(blocked, -angle)
	}

	kept := boxes
	leftCov := leftEdge - first.Min.X
	if float64(leftCov)/float64(first.Dx()) > maxEdgeCoverage || first.Dx()-leftCov < m.minBoxWidth {
		imaging.FillRect(blocked, first, 255)
		kept = kept[1:]
	}
	rightCov := last.Max.X - rightEdge
	if len(kept) > 0 && (float64(rightCov)/float64(last.Dx()) > maxEdgeCoverage || last.Dx()-rightCov < m.minBoxWidth) {
		imaging.FillRect(blocked, last, 255)
		if kept[len(kept)-1] == last {
			kept = kept[:len(kept)-1]
		}
	}

	return imaging.Invert(blocked), slices.Clone(kept)
}

// verticalExtent returns the height of the foreground inside r.
func verticalExtent(img *image.Gray, r image.Rectangle) int {
	r = r.Intersect(img.Bounds())
	top, bottom := -1, -1
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if imaging.IsForeground(img, x, y) {
				if top < 0 {
					top = y
				}
				bottom = y
				break
			}
		}
	}
	if top < 0 {
		return 0
	}
	return bottom - top + 1
}

// filterMostlyEmptyBoxes drops boxes that hold a character-height glyph in
// fewer than 49% as many images as the best box does.
func filterMostlyEmptyBoxes(images plate.BinaryImageSet, boxes []image.Rectangle, minCharHeightPercent float64) []image.Rectangle {
	scores := make([]int, len(boxes))
	for _, img := range images {
		for j, box := range boxes {
			if float64(verticalExtent(img, box)) >= float64(box.Dy())*minCharHeightPercent {
				scores[j]++
			}
		}
	}

	maxScore := 0
	for _, s := range scores {
		maxScore = max(maxScore, s)
	}
	minFull := int(float64(maxScore) * minFullBoxRatio)

	kept := make([]image.Rectangle, 0, len(boxes))
	for j, box := range boxes {
		if scores[j] >= minFull {
			kept = append(kept, box)
		}
	}
	return kept
}

// cleanCharRegions clears everything outside the regions, erases speckles
// inside them, blanks regions whose remaining glyph is too small, and draws a
// separator on both sides of every region.
func cleanCharRegions(images plate.BinaryImageSet, regions []image.Rectangle, minCharHeightPercent float64) {
	if len(images) == 0 {
		return
	}
	b := images.Bounds()
	mask := imaging.NewBinary(b.Dx(), b.Dy(), 0)
	for _, r := range regions {
		imaging.FillRect(mask, r, 255)
	}

	for _, img := range images {
		imaging.And(img, mask)
		contours := detection.FindContours(img, 1)

		for _, r := range regions {
			minSpeckle := float64(r.Dy()) * speckleHeightFrac
			minArea := float64(r.Dx()*r.Dy()) * minAreaFrac

			tallest, total := 0, 0
			for _, c := range contours {
				first := c.Points[0]
				if !image.Pt(first.X, first.Y).In(r) {
					continue
				}
				if float64(c.Bounds.Height()) <= minSpeckle || c.Bounds.Width() <= speckleWidthPx {
					c.Fill(img, 0)
					continue
				}
				tallest = max(tallest, c.Bounds.Height())
				total += c.Area()
			}

			if float64(total) < minArea || float64(tallest) < float64(r.Dy())*minCharHeightPercent {
				imaging.FillRect(img, r, 0)
			}
		}

		for _, r := range regions {
			imaging.DrawLine(img, image.Pt(r.Min.X-1, r.Min.Y), image.Pt(r.Min.X-1, r.Max.Y), 0, 1)
			imaging.DrawLine(img, image.Pt(r.Max.X+1, r.Min.Y), image.Pt(r.Max.X+1, r.Max.Y), 0, 1)
		}
	}
}

// normalizeRegions clamps regions to b, sorts them by x and trims overlaps so
// that every region starts at or after the end of the previous one.
func normalizeRegions(regions []image.Rectangle, b image.Rectangle) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(regions))
	for _, r := range regions {
		if r = r.Intersect(b); !r.Empty() {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, c image.Rectangle) int { return a.Min.X - c.Min.X })

	trimmed := out[:0]
	for _, r := range out {
		if n := len(trimmed); n > 0 && r.Min.X < trimmed[n-1].Max.X {
			r.Min.X = trimmed[n-1].Max.X
		}
		if !r.Empty() {
			trimmed = append(trimmed, r)
		}
	}
	return trimmed
}
