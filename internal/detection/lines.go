package detection

import "math"

// LineSegment is a straight segment from P1 to P2. Text-line geometry uses
// segments running left to right, so P1.X <= P2.X for well-formed lines.
type LineSegment struct {
	P1 PointF `json:"p1" yaml:"p1"`
	P2 PointF `json:"p2" yaml:"p2"`
}

// NewLineSegment creates a segment from two coordinate pairs.
func NewLineSegment(x1, y1, x2, y2 float64) LineSegment {
	return LineSegment{P1: PointF{X: x1, Y: y1}, P2: PointF{X: x2, Y: y2}}
}

// Length returns the Euclidean length of the segment.
func (l LineSegment) Length() float64 { return dist(l.P1, l.P2) }

// Slope returns dy/dx, or +Inf for a vertical segment.
func (l LineSegment) Slope() float64 {
	dx := l.P2.X - l.P1.X
	if dx == 0 {
		return math.Inf(1)
	}
	return (l.P2.Y - l.P1.Y) / dx
}

// Angle returns the direction of the segment in degrees, in image
// coordinates (positive angles slope downward to the right).
func (l LineSegment) Angle() float64 {
	return math.Atan2(l.P2.Y-l.P1.Y, l.P2.X-l.P1.X) * 180 / math.Pi
}

// YAt evaluates the infinite line through the segment at x.
// Vertical segments return P1.Y.
func (l LineSegment) YAt(x float64) float64 {
	m := l.Slope()
	if math.IsInf(m, 0) {
		return l.P1.Y
	}
	return l.P1.Y + m*(x-l.P1.X)
}

// XAt evaluates the infinite line through the segment at y.
// Horizontal segments return P1.X.
func (l LineSegment) XAt(y float64) float64 {
	dy := l.P2.Y - l.P1.Y
	if dy == 0 {
		return l.P1.X
	}
	return l.P1.X + (y-l.P1.Y)*(l.P2.X-l.P1.X)/dy
}

// IsPointBelow reports whether p lies below the line (larger y).
func (l LineSegment) IsPointBelow(p PointF) bool {
	return p.Y > l.YAt(p.X)
}

// MidPoint returns the centre of the segment.
func (l LineSegment) MidPoint() PointF {
	return PointF{X: (l.P1.X + l.P2.X) / 2, Y: (l.P1.Y + l.P2.Y) / 2}
}

// Intersection returns where the infinite lines through l and o cross.
// ok is false for parallel lines.
func (l LineSegment) Intersection(o LineSegment) (p PointF, ok bool) {
	d1x, d1y := l.P2.X-l.P1.X, l.P2.Y-l.P1.Y
	d2x, d2y := o.P2.X-o.P1.X, o.P2.Y-o.P1.Y
	den := d1x*d2y - d1y*d2x
	if math.Abs(den) < 1e-12 {
		return PointF{}, false
	}
	t := ((o.P1.X-l.P1.X)*d2y - (o.P1.Y-l.P1.Y)*d2x) / den
	return PointF{X: l.P1.X + t*d1x, Y: l.P1.Y + t*d1y}, true
}

// Offset returns the segment shifted vertically by dy pixels.
func (l LineSegment) Offset(dy float64) LineSegment {
	return LineSegment{
		P1: PointF{X: l.P1.X, Y: l.P1.Y + dy},
		P2: PointF{X: l.P2.X, Y: l.P2.Y + dy},
	}
}
