package segment

import (
	"image"

	"github.com/ironsheep/plate-ocr/internal/detection"
	"github.com/ironsheep/plate-ocr/internal/imaging"
	"github.com/ironsheep/plate-ocr/internal/plate"
)

// contourLimits are the glyph size limits of one line.
type contourLimits struct {
	minArea        float64
	minHeight      float64
	minWidth       float64
	maxWidth       float64
	plateMinWidth  float64
	plateMinHeight float64
}

func newContourLimits(m lineMetrics) contourLimits {
	return contourLimits{
		minArea:        0.05 * m.avgWidth * m.avgHeight,
		minHeight:      m.minSpeckleHeight,
		minWidth:       0.1 * m.avgWidth,
		maxWidth:       3 * m.avgWidth,
		plateMinWidth:  8 * 1.15 * m.avgWidth,
		plateMinHeight: 1.1 * m.avgHeight,
	}
}

func (l contourLimits) tooSmall(c detection.Contour) bool {
	return float64(c.Bounds.Height()) < l.minHeight ||
		float64(c.Bounds.Width()) < l.minWidth ||
		float64(c.Area()) < l.minArea
}

func (l contourLimits) isPlateFrame(c detection.Contour) bool {
	return float64(c.Bounds.Width()) > l.plateMinWidth && float64(c.Bounds.Height()) > l.plateMinHeight
}

// concavityFraction is the share of the bounding rectangle a concave region
// must cover before it is folded into the plate polygon.
const concavityFraction = 0.125

// edgeInset moves corrected line endpoints inside the plate frame.
const edgeInset = 5

// filterContours removes implausible glyph components from every image and,
// when image 0 shows an enclosed plate frame, clips the images to the frame
// and tightens the line's top and bottom segments to it. It reports whether
// the line was corrected.
func filterContours(images plate.BinaryImageSet, line *plate.TextLine, m lineMetrics) bool {
	lim := newContourLimits(m)
	primary := images[0]
	b := primary.Bounds()

	for _, c := range detection.FindContours(primary, 1) {
		if lim.tooSmall(c) {
			c.Fill(primary, 0)
		}
	}

	var polys [][]detection.PointF
	var biggest []detection.PointF
	biggestWidth := 0
	for _, hole := range detection.FindHoles(primary, 1) {
		if !lim.isPlateFrame(hole) {
			continue
		}
		outline := detection.PointsF(hole.Outline())
		if len(outline) < 3 {
			continue
		}
		polys = append(polys, plateBoundary(outline, b))
		if w := hole.Bounds.Width(); w > biggestWidth {
			biggestWidth = w
			biggest = outline
		}
	}

	mask := imaging.NewBinary(b.Dx(), b.Dy(), 255)
	if len(polys) > 0 {
		union := imaging.NewBinary(b.Dx(), b.Dy(), 0)
		for _, p := range polys {
			imaging.FillConvexPoly(union, detection.ImagePoints(p), 255)
		}
		mask = union
	}

	corrected := false
	if biggest != nil {
		corners := detection.MinAreaRect(biggest).Corners()
		rect := imaging.NewBinary(b.Dx(), b.Dy(), 0)
		imaging.FillConvexPoly(rect, detection.ImagePoints(corners[:]), 255)
		imaging.And(mask, rect)

		edge := imaging.NewBinary(b.Dx(), b.Dy(), 0)
		for _, p := range biggest {
			edge.Pix[edge.PixOffset(int(p.X), int(p.Y))] = 255
		}
		top := clipToFrame(line.Top, edge)
		bottom := clipToFrame(line.Bottom, edge)
		if top != line.Top || bottom != line.Bottom {
			line.SetLines(top, bottom)
			corrected = true
		}
	}

	for _, seg := range []detection.LineSegment{line.Top, line.Bottom} {
		imaging.DrawLine(mask, seg.P1.Image(), seg.P2.Image(), 0, 1)
	}

	for _, img := range images {
		imaging.And(img, mask)
		for _, c := range detection.FindContours(img, 1) {
			if float64(c.Bounds.Width()) > lim.maxWidth || lim.tooSmall(c) {
				c.Fill(img, 0)
			}
		}
	}
	return corrected
}

// plateBoundary simplifies a frame outline to a convex polygon. Concave
// regions larger than concavityFraction of the enclosing rectangle are added
// back before hulling so that glyphs touching the frame stay inside.
func plateBoundary(outline []detection.PointF, b image.Rectangle) []detection.PointF {
	approx := detection.ApproxPolyDP(outline, 0.05*detection.ArcLength(outline, true), true)
	if len(approx) < 4 {
		corners := detection.MinAreaRect(outline).Corners()
		return corners[:]
	}

	poly := approx
	if !detection.IsConvex(poly) {
		poly = detection.ConvexHull(poly)
	}

	corners := detection.MinAreaRect(poly).Corners()
	rectPts := detection.ImagePoints(corners[:])
	rectArea := detection.PolygonArea(corners[:])

	diff := imaging.NewBinary(b.Dx(), b.Dy(), 0)
	imaging.FillConvexPoly(diff, rectPts, 255)
	imaging.FillConvexPoly(diff, detection.ImagePoints(poly), 0)

	grown := false
	for _, c := range detection.FindContours(diff, 1) {
		if float64(c.Area()) > rectArea*concavityFraction {
			poly = append(poly, detection.PointsF(c.Outline())...)
			grown = true
		}
	}
	if grown {
		poly = detection.ConvexHull(poly)
	}
	return poly
}

// clipToFrame moves the endpoints of seg inward to where its 2px rendering
// crosses the frame edge: a crossing in the left half moves P1 to 5px right
// of it, one in the right half moves P2 to 5px left of it.
func clipToFrame(seg detection.LineSegment, edge *image.Gray) detection.LineSegment {
	b := edge.Bounds()
	drawn := imaging.NewBinary(b.Dx(), b.Dy(), 0)
	imaging.DrawLine(drawn, seg.P1.Image(), seg.P2.Image(), 255, 2)
	imaging.And(drawn, edge)

	hits := imaging.NonZeroPoints(drawn)
	if len(hits) == 0 {
		return seg
	}
	minX, maxX := hits[0].X, hits[0].X
	for _, p := range hits[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
	}

	out := seg
	if minX < b.Dx()/2 {
		x := float64(minX + edgeInset)
		out.P1 = detection.PointF{X: x, Y: seg.YAt(x)}
	}
	if maxX > b.Dx()/2 {
		x := float64(maxX - edgeInset)
		out.P2 = detection.PointF{X: x, Y: seg.YAt(x)}
	}
	return out
}
