// Package consensus reads every character region under every binarization
// and streams the letter candidates to a post-processor.
//
// Before reading single characters, each binarization is read as a whole
// line. The image whose line reading gives the most confident symbol inside
// a region decides whether that region actually holds two or three glyphs;
// if so the region is split at the gaps between those symbols.
package consensus

import (
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/ironsheep/plate-ocr/internal/imaging"
	"github.com/ironsheep/plate-ocr/internal/ocr"
	"github.com/ironsheep/plate-ocr/internal/plate"
	"github.com/ironsheep/plate-ocr/internal/trace"
	"gonum.org/v1/gonum/stat"
)

// OcrChar is one letter candidate at an absolute plate position.
type OcrChar struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
	Line       int             `json:"line"`
	Position   int             `json:"position"`
	Image      int             `json:"image"`
	Alternates []ocr.Alternate `json:"alternates,omitempty"`
}

// PostProcessor accumulates letter candidates per position.
type PostProcessor interface {
	AddLetter(letter string, line, position int, confidence float64)
}

// Options configures a Reader.
type Options struct {
	// MaxCharacters is the position stride between lines.
	MaxCharacters int
	// MinPointSize drops symbols the engine reports as smaller.
	MinPointSize float64
}

// Split thresholds relative to the average character width.
const (
	twoWaySplitRatio   = 1.5
	threeWaySplitRatio = 2.5
)

// Reader runs the recognizer over a segmented workspace.
type Reader struct {
	rec   ocr.Recognizer
	opts  Options
	log   *slog.Logger
	trace trace.Sink
}

// New creates a Reader around rec, which must not be shared with other
// goroutines while the Reader is in use.
func New(rec ocr.Recognizer, opts Options, log *slog.Logger, sink trace.Sink) *Reader {
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxCharacters <= 0 {
		opts.MaxCharacters = 8
	}
	return &Reader{rec: rec, opts: opts, log: log, trace: trace.OrNop(sink)}
}

// Run splits over-wide regions, reads every region in every image, forwards
// each accepted letter to pp, and returns the letters. Regions in ws are
// replaced by their split form.
func (r *Reader) Run(ws *plate.Workspace, pp PostProcessor) ([]OcrChar, error) {
	if ws.Disqualified {
		return nil, nil
	}

	if ws.RegionCount() == 0 {
		return nil, nil
	}
	lineSymbols, err := r.readLines(ws.Images)
	if err != nil {
		return nil, err
	}

	var chars []OcrChar
	for li, line := range ws.Lines {
		if li >= len(ws.Regions) || len(ws.Regions[li]) == 0 {
			continue
		}

		avg := averageCharWidth(line, ws.Regions[li])
		before := len(ws.Regions[li])
		ws.Regions[li] = splitRegions(ws.Regions[li], lineSymbols, avg)
		if n := len(ws.Regions[li]); n != before {
			r.log.Debug("regions split", "line", li, "before", before, "after", n, "avg_char_width", avg)
		}

		lineChars, err := r.readChars(ws.Images, li, ws.Regions[li])
		if err != nil {
			return nil, err
		}
		for _, c := range lineChars {
			pp.AddLetter(c.Text, c.Line, c.Position, c.Confidence)
			for _, alt := range c.Alternates {
				pp.AddLetter(alt.Text, c.Line, c.Position, alt.Confidence)
			}
		}
		chars = append(chars, lineChars...)

		if r.trace.Enabled() {
			r.trace.Emit(fmt.Sprintf("ocr-regions-line-%d", li), r.regionDashboard(ws.Images, ws.Regions[li]))
		}
	}
	return chars, nil
}

// averageCharWidth is the mean width of the line's good glyph contours, or of
// its regions when no contour is flagged good.
func averageCharWidth(line *plate.TextLine, regions []image.Rectangle) float64 {
	var widths []float64
	for _, c := range line.GoodContours() {
		widths = append(widths, float64(c.Bounds.Width()))
	}
	if len(widths) == 0 {
		for _, r := range regions {
			widths = append(widths, float64(r.Dx()))
		}
	}
	if len(widths) == 0 {
		return 0
	}
	return stat.Mean(widths, nil)
}

// readLines reads every image as one line of text. Symbols are x-sorted.
func (r *Reader) readLines(images plate.BinaryImageSet) ([][]ocr.Symbol, error) {
	out := make([][]ocr.Symbol, len(images))
	for i, img := range images {
		symbols, err := r.rec.Recognize(img, nil, ocr.ModeSingleLine)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %d as a line: %w", i, err)
		}
		symbols = slices.DeleteFunc(symbols, func(s ocr.Symbol) bool { return !r.accept(s) })
		slices.SortStableFunc(symbols, func(a, b ocr.Symbol) int { return a.Box.Min.X - b.Box.Min.X })
		out[i] = symbols
	}
	return out, nil
}

func (r *Reader) accept(s ocr.Symbol) bool {
	return s.Text != "" && s.Text != " " && s.PointSize >= r.opts.MinPointSize
}

// innerSymbols returns the symbols whose box centre lies inside region.
func innerSymbols(symbols []ocr.Symbol, region image.Rectangle) []ocr.Symbol {
	var inner []ocr.Symbol
	for _, s := range symbols {
		if s.Box.Min.X > region.Max.X {
			break
		}
		cx := s.Box.Min.X + s.Box.Dx()/2
		if cx >= region.Min.X && cx <= region.Max.X {
			inner = append(inner, s)
		}
	}
	return inner
}

// dominantImage returns the index of the image with the most confident
// symbol inside region, or -1 when no image has one.
func dominantImage(lineSymbols [][]ocr.Symbol, region image.Rectangle) int {
	best, bestConf := -1, 0.0
	for i, symbols := range lineSymbols {
		for _, s := range innerSymbols(symbols, region) {
			if s.Confidence > bestConf {
				best, bestConf = i, s.Confidence
			}
		}
	}
	return best
}

// splitRegions replaces each region that the dominant image reads as several
// symbols with one region per symbol.
func splitRegions(regions []image.Rectangle, lineSymbols [][]ocr.Symbol, avgWidth float64) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(regions))
	for _, region := range regions {
		d := dominantImage(lineSymbols, region)
		if d < 0 {
			out = append(out, region)
			continue
		}
		out = append(out, splitRegion(region, innerSymbols(lineSymbols[d], region), avgWidth)...)
	}
	return out
}

// splitRegion cuts region at the midpoints between the inner symbol boxes:
// three ways when more than two symbols sit in a region wider than 2.5
// average characters, two ways when at least two sit in one wider than 1.5.
func splitRegion(region image.Rectangle, inner []ocr.Symbol, avgWidth float64) []image.Rectangle {
	if len(inner) < 2 || avgWidth <= 0 {
		return []image.Rectangle{region}
	}
	w := float64(region.Dx())
	cut := func(a, b ocr.Symbol) int { return (a.Box.Max.X + b.Box.Min.X) / 2 }

	var cuts []int
	switch {
	case len(inner) > 2 && w > threeWaySplitRatio*avgWidth:
		cuts = []int{cut(inner[0], inner[1]), cut(inner[1], inner[2])}
	case w > twoWaySplitRatio*avgWidth:
		cuts = []int{cut(inner[0], inner[1])}
	default:
		return []image.Rectangle{region}
	}

	parts := make([]image.Rectangle, 0, len(cuts)+1)
	x := region.Min.X
	for _, c := range append(cuts, region.Max.X) {
		c = max(x, min(c, region.Max.X))
		if c > x {
			parts = append(parts, image.Rect(x, region.Min.Y, c, region.Max.Y))
		}
		x = c
	}
	return parts
}

// readChars reads each region of one line as a single character in every
// image.
func (r *Reader) readChars(images plate.BinaryImageSet, line int, regions []image.Rectangle) ([]OcrChar, error) {
	var chars []OcrChar
	for i, img := range images {
		for j := range regions {
			region := regions[j]
			symbols, err := r.rec.Recognize(img, &region, ocr.ModeSingleChar)
			if err != nil {
				return nil, fmt.Errorf("failed to read region %d of line %d in image %d: %w", j, line, i, err)
			}
			for _, s := range symbols {
				if !r.accept(s) {
					continue
				}
				alts := make([]ocr.Alternate, 0, len(s.Alternates))
				for _, a := range s.Alternates {
					if a.Text != "" {
						alts = append(alts, ocr.Alternate{Text: a.Text, Confidence: ocr.ClampConfidence(a.Confidence)})
					}
				}
				chars = append(chars, OcrChar{
					Text:       s.Text,
					Confidence: ocr.ClampConfidence(s.Confidence),
					Box:        s.Box,
					Line:       line,
					Position:   line*r.opts.MaxCharacters + j,
					Image:      i,
					Alternates: alts,
				})
			}
		}
	}
	return chars, nil
}

func (r *Reader) regionDashboard(images plate.BinaryImageSet, regions []image.Rectangle) image.Image {
	tiles := make([]image.Image, len(images))
	for i, img := range images {
		tiles[i] = trace.Boxes(imaging.Invert(img), regions)
	}
	return trace.Dashboard(tiles, 3)
}
