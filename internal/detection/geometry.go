package detection

import (
	"image"
	"math"
	"sort"
)

// PointF is a sub-pixel coordinate.
type PointF struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Image rounds the point down to the containing pixel.
func (p PointF) Image() image.Point {
	return image.Pt(int(math.Floor(p.X)), int(math.Floor(p.Y)))
}

// PointsF converts pixel coordinates to sub-pixel points.
func PointsF(pts []Point) []PointF {
	out := make([]PointF, len(pts))
	for i, p := range pts {
		out[i] = PointF{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}

// ImagePoints rounds every point down to its pixel.
func ImagePoints(pts []PointF) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Image()
	}
	return out
}

func cross(o, a, b PointF) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull returns the convex hull of pts using Andrew's monotone chain.
// Collinear points on the hull boundary are dropped.
func ConvexHull(pts []PointF) []PointF {
	if len(pts) < 3 {
		return append([]PointF(nil), pts...)
	}

	sorted := append([]PointF(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	hull := make([]PointF, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// IsConvex reports whether the closed polygon turns consistently in one direction.
func IsConvex(poly []PointF) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		c := cross(poly[i], poly[(i+1)%n], poly[(i+2)%n])
		switch {
		case c > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case c < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return sign != 0
}

// ArcLength returns the perimeter of a polygon, or the length of a polyline
// when closed is false.
func ArcLength(poly []PointF, closed bool) float64 {
	total := 0.0
	for i := 1; i < len(poly); i++ {
		total += dist(poly[i-1], poly[i])
	}
	if closed && len(poly) > 1 {
		total += dist(poly[len(poly)-1], poly[0])
	}
	return total
}

func dist(a, b PointF) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PolygonArea returns the unsigned area of a closed polygon (shoelace formula).
func PolygonArea(poly []PointF) float64 {
	return math.Abs(PolygonMoments(poly).M00)
}

// Moments holds the spatial moments of a polygon up to first order.
type Moments struct {
	M00 float64
	M10 float64
	M01 float64
}

// Centroid returns the centre of mass. Degenerate polygons fall back to the
// mean of their vertices, which the caller passes in as fallback.
func (m Moments) Centroid(fallback PointF) PointF {
	if math.Abs(m.M00) < 1e-9 {
		return fallback
	}
	return PointF{X: m.M10 / m.M00, Y: m.M01 / m.M00}
}

// PolygonMoments computes area and first moments of a closed polygon with
// Green's theorem. The sign of M00 follows the vertex winding.
func PolygonMoments(poly []PointF) Moments {
	var m Moments
	n := len(poly)
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		c := a.X*b.Y - b.X*a.Y
		m.M00 += c
		m.M10 += (a.X + b.X) * c
		m.M01 += (a.Y + b.Y) * c
	}
	m.M00 /= 2
	m.M10 /= 6
	m.M01 /= 6
	return m
}

// MeanPoint returns the arithmetic mean of pts.
func MeanPoint(pts []PointF) PointF {
	var p PointF
	if len(pts) == 0 {
		return p
	}
	for _, q := range pts {
		p.X += q.X
		p.Y += q.Y
	}
	return PointF{X: p.X / float64(len(pts)), Y: p.Y / float64(len(pts))}
}

// BoundingBox returns the axis-aligned box enclosing pts.
func BoundingBox(pts []PointF) (lo, hi PointF) {
	if len(pts) == 0 {
		return lo, hi
	}
	lo, hi = pts[0], pts[0]
	for _, p := range pts[1:] {
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// ApproxPolyDP simplifies a curve with the Douglas-Peucker algorithm.
// For closed curves the split starts at the vertex farthest from the first.
func ApproxPolyDP(pts []PointF, epsilon float64, closed bool) []PointF {
	if len(pts) < 3 {
		return append([]PointF(nil), pts...)
	}
	if !closed {
		return douglasPeucker(pts, epsilon)
	}

	far, farDist := 0, -1.0
	for i, p := range pts {
		if d := dist(pts[0], p); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return []PointF{pts[0]}
	}

	first := douglasPeucker(pts[:far+1], epsilon)
	loop := append(append([]PointF(nil), pts[far:]...), pts[0])
	second := douglasPeucker(loop, epsilon)

	out := append([]PointF(nil), first...)
	out = append(out, second[1:len(second)-1]...)
	return out
}

func douglasPeucker(pts []PointF, epsilon float64) []PointF {
	if len(pts) < 3 {
		return append([]PointF(nil), pts...)
	}
	a, b := pts[0], pts[len(pts)-1]
	idx, maxDist := 0, -1.0
	for i := 1; i < len(pts)-1; i++ {
		if d := pointSegmentDistance(pts[i], a, b); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= epsilon {
		return []PointF{a, b}
	}
	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

func pointSegmentDistance(p, a, b PointF) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return dist(p, PointF{X: a.X + t*dx, Y: a.Y + t*dy})
}

// RotatedRect is a rectangle of Width along the direction Angle (degrees)
// and Height perpendicular to it.
type RotatedRect struct {
	Center PointF  `json:"center"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
}

// Area returns Width*Height.
func (r RotatedRect) Area() float64 { return r.Width * r.Height }

// Corners returns the four vertices in winding order.
func (r RotatedRect) Corners() [4]PointF {
	rad := r.Angle * math.Pi / 180
	ux, uy := math.Cos(rad), math.Sin(rad)
	vx, vy := -uy, ux
	hw, hh := r.Width/2, r.Height/2
	at := func(su, sv float64) PointF {
		return PointF{
			X: r.Center.X + su*hw*ux + sv*hh*vx,
			Y: r.Center.Y + su*hw*uy + sv*hh*vy,
		}
	}
	return [4]PointF{at(-1, -1), at(1, -1), at(1, 1), at(-1, 1)}
}

// MinAreaRect finds the minimum-area enclosing rectangle with rotating
// calipers over the convex hull edges.
func MinAreaRect(pts []PointF) RotatedRect {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{Center: hull[0]}
	case 2:
		a, b := hull[0], hull[1]
		return RotatedRect{
			Center: PointF{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
			Width:  dist(a, b),
			Angle:  math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi,
		}
	}

	best := RotatedRect{}
	bestArea := math.Inf(1)
	n := len(hull)
	for i := 0; i < n; i++ {
		a, b := hull[i], hull[(i+1)%n]
		l := dist(a, b)
		if l == 0 {
			continue
		}
		ux, uy := (b.X-a.X)/l, (b.Y-a.Y)/l
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			u := p.X*ux + p.Y*uy
			v := p.X*vx + p.Y*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			best = RotatedRect{
				Center: PointF{X: cu*ux + cv*vx, Y: cu*uy + cv*vy},
				Width:  maxU - minU,
				Height: maxV - minV,
				Angle:  math.Atan2(uy, ux) * 180 / math.Pi,
			}
		}
	}
	return best
}
