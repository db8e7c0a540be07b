package imaging

import (
	"image"
	"image/color"
	"math"
)

// NewBinary returns a w x h image with every pixel set to v.
func NewBinary(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	if v != 0 {
		for i := range img.Pix {
			img.Pix[i] = v
		}
	}
	return img
}

// FillRect sets every pixel of r (clamped to the image) to v.
func FillRect(img *image.Gray, r image.Rectangle, v uint8) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):]
		for x := 0; x < r.Dx(); x++ {
			row[x] = v
		}
	}
}

// DrawLine draws a line from p0 to p1 with Bresenham's algorithm. A thickness
// above 1 stamps a thickness x thickness square at every step.
func DrawLine(img *image.Gray, p0, p1 image.Point, v uint8, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	c := color.Gray{Y: v}
	half := (thickness - 1) / 2

	stamp := func(x, y int) {
		for dy := 0; dy < thickness; dy++ {
			for dx := 0; dx < thickness; dx++ {
				px, py := x+dx-half, y+dy-half
				if (image.Point{X: px, Y: py}).In(img.Bounds()) {
					img.SetGray(px, py, c)
				}
			}
		}
	}

	dx := abs(p1.X - p0.X)
	dy := -abs(p1.Y - p0.Y)
	sx, sy := 1, 1
	if p0.X > p1.X {
		sx = -1
	}
	if p0.Y > p1.Y {
		sy = -1
	}
	err := dx + dy
	x, y := p0.X, p0.Y
	for {
		stamp(x, y)
		if x == p1.X && y == p1.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// FillConvexPoly fills a convex polygon, boundary pixels included.
// Non-convex input fills the span between the outermost edge crossings of
// each row.
func FillConvexPoly(img *image.Gray, poly []image.Point, v uint8) {
	if len(poly) == 0 {
		return
	}
	minY, maxY := poly[0].Y, poly[0].Y
	for _, p := range poly {
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	bounds := img.Bounds()
	minY, maxY = max(minY, bounds.Min.Y), min(maxY, bounds.Max.Y-1)
	n := len(poly)
	for y := minY; y <= maxY; y++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		fy := float64(y)
		for i := 0; i < n; i++ {
			a, b := poly[i], poly[(i+1)%n]
			if y < min(a.Y, b.Y) || y > max(a.Y, b.Y) {
				continue
			}
			if a.Y == b.Y {
				lo = math.Min(lo, float64(min(a.X, b.X)))
				hi = math.Max(hi, float64(max(a.X, b.X)))
				continue
			}
			x := float64(a.X) + (fy-float64(a.Y))*float64(b.X-a.X)/float64(b.Y-a.Y)
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
		if math.IsInf(lo, 1) {
			continue
		}
		x0 := max(int(math.Ceil(lo-1e-9)), bounds.Min.X)
		x1 := min(int(math.Floor(hi+1e-9)), bounds.Max.X-1)
		if x0 > x1 {
			continue
		}
		row := img.Pix[img.PixOffset(x0, y):]
		for x := 0; x <= x1-x0; x++ {
			row[x] = v
		}
	}
}

// And clears every pixel of dst whose counterpart in mask is background.
// Both images must share bounds; pixels outside mask are cleared.
func And(dst, mask *image.Gray) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !IsForeground(mask, x, y) {
				dst.SetGray(x, y, black)
			}
		}
	}
}

// Or sets every pixel of dst whose counterpart in src is foreground.
func Or(dst, src *image.Gray) {
	b := dst.Bounds().Intersect(src.Bounds())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if IsForeground(src, x, y) {
				dst.SetGray(x, y, white)
			}
		}
	}
}

// CountNonZero counts foreground pixels inside r.
func CountNonZero(img *image.Gray, r image.Rectangle) int {
	r = r.Intersect(img.Bounds())
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.GrayAt(x, y).Y > 127 {
				n++
			}
		}
	}
	return n
}

// NonZeroPoints lists the foreground pixels in row-major order.
func NonZeroPoints(img *image.Gray) []image.Point {
	var pts []image.Point
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y > 127 {
				pts = append(pts, image.Pt(x, y))
			}
		}
	}
	return pts
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
