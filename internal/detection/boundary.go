package detection

// neighbours in clockwise order starting west: W, NW, N, NE, E, SE, S, SW.
var neighbours = [8]Point{
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
}

func neighbourIndex(dx, dy int) int {
	for i, n := range neighbours {
		if n.X == dx && n.Y == dy {
			return i
		}
	}
	return 0
}

// Outline traces the outer boundary of the component with Moore-neighbour
// tracing and returns the boundary pixels in traversal order.
//
// Tracing starts at the top-most, left-most pixel and stops with Jacob's
// criterion (re-entering the start pixel in the original direction), so
// one-pixel bridges that pass through the start pixel are walked correctly.
func (c Contour) Outline() []Point {
	if len(c.Points) == 0 {
		return nil
	}

	w, h := c.Bounds.Width(), c.Bounds.Height()
	inside := make([][]bool, h)
	for y := range inside {
		inside[y] = make([]bool, w)
	}
	for _, p := range c.Points {
		inside[p.Y-c.Bounds.Y1][p.X-c.Bounds.X1] = true
	}
	at := func(p Point) bool {
		x, y := p.X-c.Bounds.X1, p.Y-c.Bounds.Y1
		return x >= 0 && y >= 0 && x < w && y < h && inside[y][x]
	}

	var start Point
	for x := 0; x < w; x++ {
		if inside[0][x] {
			start = Point{X: c.Bounds.X1 + x, Y: c.Bounds.Y1}
			break
		}
	}

	// step scans clockwise from the backtrack neighbour and returns the
	// next boundary pixel and the backtrack direction as seen from it.
	step := func(cur Point, back int) (Point, int, bool) {
		for i := 1; i <= 8; i++ {
			d := (back + i) % 8
			next := Point{X: cur.X + neighbours[d].X, Y: cur.Y + neighbours[d].Y}
			if !at(next) {
				continue
			}
			prevDir := neighbours[(d+7)%8]
			prev := Point{X: cur.X + prevDir.X, Y: cur.Y + prevDir.Y}
			return next, neighbourIndex(prev.X-next.X, prev.Y-next.Y), true
		}
		return cur, back, false
	}

	outline := []Point{start}
	cur, back := start, 0
	limit := 4*len(c.Points) + 8
	for i := 0; i < limit; i++ {
		next, nb, ok := step(cur, back)
		if !ok {
			break
		}
		if cur == start && len(outline) > 1 && next == outline[1] {
			break
		}
		outline = append(outline, next)
		cur, back = next, nb
	}
	if len(outline) > 1 && outline[len(outline)-1] == start {
		outline = outline[:len(outline)-1]
	}
	return outline
}
