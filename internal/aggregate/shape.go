package aggregate

import (
	"math"

	"github.com/ironsheep/plate-ocr/internal/detection"
)

// maxAreaRatio is the largest size difference between two sightings of the
// same plate.
const maxAreaRatio = 4.0

// ShapeInfo summarizes a plate quadrilateral for clustering.
type ShapeInfo struct {
	Center detection.PointF
	Area   float64
	Width  float64
	Height float64
}

// Shape computes the centroid and area of the quadrilateral from its
// moments, and its axis-aligned extent.
func Shape(corners [4]detection.PointF) ShapeInfo {
	pts := corners[:]
	m := detection.PolygonMoments(pts)
	lo, hi := detection.BoundingBox(pts)
	return ShapeInfo{
		Center: m.Centroid(detection.MeanPoint(pts)),
		Area:   math.Abs(m.M00),
		Width:  hi.X - lo.X,
		Height: hi.Y - lo.Y,
	}
}

// Overlaps reports whether two shapes are the same plate: their centres are
// no further apart than the average half-width and half-height, and neither
// area is more than four times the other.
func Overlaps(a, b ShapeInfo) bool {
	maxDX := (a.Width/2 + b.Width/2) / 2
	maxDY := (a.Height/2 + b.Height/2) / 2
	if math.Abs(a.Center.X-b.Center.X) > maxDX || math.Abs(a.Center.Y-b.Center.Y) > maxDY {
		return false
	}
	return areaRatio(a.Area, b.Area) <= maxAreaRatio
}

func areaRatio(a, b float64) float64 {
	lo, hi := math.Min(a, b), math.Max(a, b)
	switch {
	case hi == 0:
		return 1
	case lo == 0:
		return math.Inf(1)
	}
	return hi / lo
}
