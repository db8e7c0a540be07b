package detection

import (
	"image"
	"image/color"
	"sort"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Width returns the horizontal extent in pixels.
func (b Bounds) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent in pixels.
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

// Rect converts the bounds to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle { return image.Rect(b.X1, b.Y1, b.X2, b.Y2) }

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Contour is one 8-connected component of pixels.
//
// Area is the pixel count of the component, which for filled glyphs is the
// same quantity a polygon area of the traced outline approximates.
type Contour struct {
	Points []Point `json:"-"`
	Bounds Bounds  `json:"bounds"`

	// Good marks contours accepted as character glyphs by line estimation.
	// Excluded contours keep Good == false.
	Good bool `json:"good"`

	// TouchesBorder reports whether any pixel lies on the image edge.
	TouchesBorder bool `json:"touches_border"`
}

// Area returns the number of pixels in the component.
func (c Contour) Area() int { return len(c.Points) }

// Fill paints every pixel of the component with v.
func (c Contour) Fill(img *image.Gray, v uint8) {
	for _, p := range c.Points {
		img.SetGray(p.X, p.Y, color.Gray{Y: v})
	}
}

// FindContours returns the foreground components (pixels > 127) of a binary
// image, sorted left to right. Components smaller than minPixels are dropped.
func FindContours(img *image.Gray, minPixels int) []Contour {
	return findComponents(img, minPixels, true)
}

// FindHoles returns the background components that are fully enclosed by
// foreground, i.e. that never reach the image border.
func FindHoles(img *image.Gray, minPixels int) []Contour {
	all := findComponents(img, minPixels, false)
	holes := all[:0]
	for _, c := range all {
		if !c.TouchesBorder {
			holes = append(holes, c)
		}
	}
	return holes
}

func findComponents(img *image.Gray, minPixels int, foreground bool) []Contour {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	mask := make([][]bool, height)
	for y := 0; y < height; y++ {
		mask[y] = make([]bool, width)
		row := img.Pix[y*img.Stride : y*img.Stride+width]
		for x, v := range row {
			mask[y][x] = (v > 127) == foreground
		}
	}

	visited := make([][]bool, height)
	for y := range visited {
		visited[y] = make([]bool, width)
	}

	contours := make([]Contour, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !mask[y][x] || visited[y][x] {
				continue
			}
			points := make([]Point, 0)
			floodFill(mask, visited, x, y, width, height, &points)
			if len(points) < minPixels {
				continue
			}
			contours = append(contours, newContour(points, b.Min, width, height))
		}
	}

	sort.Slice(contours, func(i, j int) bool {
		if contours[i].Bounds.X1 != contours[j].Bounds.X1 {
			return contours[i].Bounds.X1 < contours[j].Bounds.X1
		}
		return contours[i].Bounds.Y1 < contours[j].Bounds.Y1
	})
	return contours
}

// newContour offsets the points into image coordinates and computes bounds.
func newContour(points []Point, origin image.Point, width, height int) Contour {
	c := Contour{Points: points}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for i, p := range points {
		if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
			c.TouchesBorder = true
		}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		points[i] = Point{X: p.X + origin.X, Y: p.Y + origin.Y}
	}
	c.Bounds = Bounds{
		X1: minX + origin.X,
		Y1: minY + origin.Y,
		X2: maxX + origin.X + 1,
		Y2: maxY + origin.Y + 1,
	}
	return c
}

// floodFill collects all connected pixels starting from (startX, startY).
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large components. Uses 8-connectivity (includes diagonal neighbors).
func floodFill(mask, visited [][]bool, startX, startY, width, height int, contour *[]Point) {
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !mask[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*contour = append(*contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}
