package trace

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/ironsheep/plate-ocr/internal/detection"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// palette returns n visually distinct colours.
func palette(n int) []color.Color {
	if n < 1 {
		n = 1
	}
	colors := colorful.FastHappyPalette(n)
	out := make([]color.Color, len(colors))
	for i, c := range colors {
		out[i] = c
	}
	return out
}

func toRGBA(base image.Image) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)
	return out
}

// Boxes renders base with one coloured outline and index label per box.
func Boxes(base image.Image, boxes []image.Rectangle) *image.RGBA {
	out := toRGBA(base)
	colors := palette(len(boxes))
	for i, r := range boxes {
		c := colors[i%len(colors)]
		outline(out, r, c)
		label(out, r.Min.X+1, r.Min.Y-2, strconv.Itoa(i), c)
	}
	return out
}

// Lines renders base with each segment drawn across the full image width.
func Lines(base image.Image, segs ...detection.LineSegment) *image.RGBA {
	out := toRGBA(base)
	colors := palette(len(segs))
	w := out.Bounds().Dx()
	for i, s := range segs {
		for x := 0; x < w; x++ {
			out.Set(x, int(s.YAt(float64(x))), colors[i%len(colors)])
		}
	}
	return out
}

// Dashboard tiles images into a grid with cols columns, separated by a
// 2px gap. Every tile takes the size of the largest image.
func Dashboard(images []image.Image, cols int) *image.RGBA {
	if len(images) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	if cols < 1 {
		cols = 1
	}
	tw, th := 0, 0
	for _, img := range images {
		tw = max(tw, img.Bounds().Dx())
		th = max(th, img.Bounds().Dy())
	}
	rows := (len(images) + cols - 1) / cols
	const gap = 2
	out := image.NewRGBA(image.Rect(0, 0, cols*(tw+gap), rows*(th+gap)))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.RGBA{R: 40, G: 40, B: 40, A: 255}), image.Point{}, draw.Src)

	for i, img := range images {
		x := (i % cols) * (tw + gap)
		y := (i / cols) * (th + gap)
		b := img.Bounds()
		draw.Draw(out, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
	}
	return out
}

// GrayDashboard is Dashboard for binary image sets.
func GrayDashboard(images []*image.Gray, cols int) *image.RGBA {
	tiles := make([]image.Image, len(images))
	for i, img := range images {
		tiles[i] = img
	}
	return Dashboard(tiles, cols)
}

func outline(img *image.RGBA, r image.Rectangle, c color.Color) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

// label draws text with its baseline at (x, y), clamped so it stays visible.
func label(img *image.RGBA, x, y int, text string, c color.Color) {
	face := basicfont.Face7x13
	if y < face.Ascent {
		y = face.Ascent
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
