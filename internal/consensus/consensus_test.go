package consensus

import (
	"errors"
	"image"
	"testing"

	"github.com/ironsheep/plate-ocr/internal/detection"
	"github.com/ironsheep/plate-ocr/internal/ocr"
	"github.com/ironsheep/plate-ocr/internal/plate"
)

// scriptedRecognizer answers line reads per image and character reads per
// (image, region).
type scriptedRecognizer struct {
	images []*image.Gray
	lines  map[int][]ocr.Symbol
	chars  map[int]map[image.Rectangle][]ocr.Symbol
	err    error
	calls  int
}

func (s *scriptedRecognizer) index(img image.Image) int {
	for i, candidate := range s.images {
		if image.Image(candidate) == img {
			return i
		}
	}
	return -1
}

func (s *scriptedRecognizer) Recognize(img image.Image, region *image.Rectangle, mode ocr.Mode) ([]ocr.Symbol, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	i := s.index(img)
	if mode == ocr.ModeSingleLine {
		return s.lines[i], nil
	}
	if region == nil || s.chars[i] == nil {
		return nil, nil
	}
	return s.chars[i][*region], nil
}

func (s *scriptedRecognizer) Close() error { return nil }

// recordingPostProcessor captures AddLetter calls.
type recordingPostProcessor struct {
	letters []struct {
		letter     string
		line, pos  int
		confidence float64
	}
}

func (r *recordingPostProcessor) AddLetter(letter string, line, position int, confidence float64) {
	r.letters = append(r.letters, struct {
		letter     string
		line, pos  int
		confidence float64
	}{letter, line, position, confidence})
}

func sym(text string, conf float64, x0, x1 int) ocr.Symbol {
	return ocr.Symbol{Text: text, Confidence: conf, Box: image.Rect(x0, 10, x1, 40), PointSize: 20}
}

func newWorkspace(n int, regions ...image.Rectangle) *plate.Workspace {
	images := make(plate.BinaryImageSet, n)
	for i := range images {
		images[i] = image.NewGray(image.Rect(0, 0, 200, 50))
	}
	return &plate.Workspace{
		Images: images,
		Lines: []*plate.TextLine{plate.NewTextLine(
			detection.NewLineSegment(0, 10, 199, 10),
			detection.NewLineSegment(0, 40, 199, 40),
		)},
		Regions: [][]image.Rectangle{regions},
	}
}

func region(x0, x1 int) image.Rectangle { return image.Rect(x0, 8, x1, 42) }

func TestSplitRegion(t *testing.T) {
	tests := []struct {
		name   string
		region image.Rectangle
		inner  []ocr.Symbol
		avg    float64
		want   []image.Rectangle
	}{
		{
			name:   "two-way at ratio 2.5",
			region: region(0, 30),
			inner:  []ocr.Symbol{sym("A", 80, 1, 13), sym("B", 70, 17, 29)},
			avg:    12,
			want:   []image.Rectangle{region(0, 15), region(15, 30)},
		},
		{
			name:   "three-way above 2.5",
			region: region(0, 40),
			inner:  []ocr.Symbol{sym("A", 80, 1, 11), sym("B", 80, 15, 25), sym("C", 80, 29, 39)},
			avg:    12,
			want:   []image.Rectangle{region(0, 13), region(13, 27), region(27, 40)},
		},
		{
			name:   "narrow region kept",
			region: region(0, 16),
			inner:  []ocr.Symbol{sym("A", 80, 1, 7), sym("B", 80, 9, 15)},
			avg:    12,
			want:   []image.Rectangle{region(0, 16)},
		},
		{
			name:   "single symbol kept",
			region: region(0, 30),
			inner:  []ocr.Symbol{sym("W", 80, 2, 28)},
			avg:    12,
			want:   []image.Rectangle{region(0, 30)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitRegion(tt.region, tt.inner, tt.avg)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("part %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDominantImage(t *testing.T) {
	lines := [][]ocr.Symbol{
		{sym("A", 60, 2, 12)},
		{sym("A", 90, 2, 12), sym("Z", 99, 100, 110)},
		{},
	}
	if got := dominantImage(lines, region(0, 20)); got != 1 {
		t.Errorf("dominant image: got %d, want 1", got)
	}
	if got := dominantImage(lines, region(50, 60)); got != -1 {
		t.Errorf("empty region should have no dominant image, got %d", got)
	}
}

func TestAverageCharWidth(t *testing.T) {
	line := &plate.TextLine{Contours: []detection.Contour{
		{Bounds: detection.Bounds{X1: 0, X2: 10}, Good: true},
		{Bounds: detection.Bounds{X1: 20, X2: 34}, Good: true},
		{Bounds: detection.Bounds{X1: 40, X2: 140}},
	}}
	if got := averageCharWidth(line, nil); got != 12 {
		t.Errorf("good contours: got %v, want 12", got)
	}

	if got := averageCharWidth(&plate.TextLine{}, []image.Rectangle{region(0, 10), region(20, 40)}); got != 15 {
		t.Errorf("region fallback: got %v, want 15", got)
	}
}

func TestRun_SplitsAndForwards(t *testing.T) {
	ws := newWorkspace(2, region(20, 50), region(60, 72))
	// One region of width 30 holding two glyphs, average width 12.
	ws.Lines[0].Contours = []detection.Contour{
		{Bounds: detection.Bounds{X1: 60, X2: 72}, Good: true},
	}

	rec := &scriptedRecognizer{
		images: ws.Images,
		lines: map[int][]ocr.Symbol{
			0: {sym("A", 70, 21, 33), sym("B", 65, 37, 49), sym("C", 80, 61, 71)},
			1: {sym("A", 50, 21, 33)},
		},
		chars: map[int]map[image.Rectangle][]ocr.Symbol{
			0: {
				region(20, 35): {{Text: "A", Confidence: 88, PointSize: 20, Alternates: []ocr.Alternate{{Text: "4", Confidence: 40}}}},
				region(35, 50): {{Text: "B", Confidence: 77, PointSize: 20}},
				region(60, 72): {{Text: "C", Confidence: 91, PointSize: 20}, {Text: " ", Confidence: 99, PointSize: 20}},
			},
			1: {
				region(60, 72): {{Text: "G", Confidence: 140, PointSize: 20}, {Text: "C", Confidence: 60, PointSize: 4}},
			},
		},
	}
	pp := &recordingPostProcessor{}

	chars, err := New(rec, Options{MaxCharacters: 8, MinPointSize: 10}, nil, nil).Run(ws, pp)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []image.Rectangle{region(20, 35), region(35, 50), region(60, 72)}
	if len(ws.Regions[0]) != len(want) {
		t.Fatalf("regions: got %v, want %v", ws.Regions[0], want)
	}
	for i := range want {
		if ws.Regions[0][i] != want[i] {
			t.Errorf("region %d: got %v, want %v", i, ws.Regions[0][i], want[i])
		}
	}

	if len(chars) != 4 {
		t.Fatalf("expected 4 chars (blank and tiny symbols dropped), got %+v", chars)
	}
	for _, c := range chars {
		if c.Confidence < 0 || c.Confidence > 100 {
			t.Errorf("confidence out of range: %+v", c)
		}
	}
	if chars[3].Text != "G" || chars[3].Confidence != 100 || chars[3].Position != 2 || chars[3].Image != 1 {
		t.Errorf("clamped char: got %+v", chars[3])
	}

	// Letters plus the one alternate.
	if len(pp.letters) != 5 {
		t.Fatalf("expected 5 AddLetter calls, got %d", len(pp.letters))
	}
	if pp.letters[1].letter != "4" || pp.letters[1].pos != 0 {
		t.Errorf("alternate should follow its letter at the same position: %+v", pp.letters[1])
	}
}

func TestRun_PositionsAcrossLines(t *testing.T) {
	ws := newWorkspace(1, region(20, 32))
	ws.Lines = append(ws.Lines, plate.NewTextLine(
		detection.NewLineSegment(0, 10, 199, 10),
		detection.NewLineSegment(0, 40, 199, 40),
	))
	ws.Regions = append(ws.Regions, []image.Rectangle{region(20, 32), region(40, 52)})

	rec := &scriptedRecognizer{
		images: ws.Images,
		chars: map[int]map[image.Rectangle][]ocr.Symbol{
			0: {
				region(20, 32): {{Text: "X", Confidence: 90, PointSize: 20}},
				region(40, 52): {{Text: "Y", Confidence: 90, PointSize: 20}},
			},
		},
	}
	pp := &recordingPostProcessor{}

	if _, err := New(rec, Options{MaxCharacters: 7}, nil, nil).Run(ws, pp); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	var positions []int
	for _, l := range pp.letters {
		positions = append(positions, l.pos)
	}
	want := []int{0, 7, 8}
	if len(positions) != len(want) {
		t.Fatalf("positions: got %v, want %v", positions, want)
	}
	for i := range want {
		if positions[i] != want[i] {
			t.Errorf("position %d: got %d, want %d", i, positions[i], want[i])
		}
	}
}

func TestRun_RecognizerError(t *testing.T) {
	ws := newWorkspace(1, region(20, 32))
	rec := &scriptedRecognizer{images: ws.Images, err: errors.New("engine down")}

	if _, err := New(rec, Options{}, nil, nil).Run(ws, &recordingPostProcessor{}); err == nil {
		t.Error("recognizer failure should be returned")
	}
}

func TestRun_SkipsDisqualified(t *testing.T) {
	ws := newWorkspace(1, region(20, 32))
	ws.Disqualify("test")
	rec := &scriptedRecognizer{images: ws.Images}

	chars, err := New(rec, Options{}, nil, nil).Run(ws, &recordingPostProcessor{})
	if err != nil || chars != nil {
		t.Errorf("disqualified workspace: got %v, %v", chars, err)
	}
	if rec.calls != 0 {
		t.Errorf("recognizer should not be called, got %d calls", rec.calls)
	}
}
