package pipeline

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"

	"github.com/ironsheep/plate-ocr/internal/config"
	"github.com/ironsheep/plate-ocr/internal/detection"
	"github.com/ironsheep/plate-ocr/internal/imaging"
	"github.com/ironsheep/plate-ocr/internal/ocr"
	"github.com/ironsheep/plate-ocr/internal/plate"
)

const plateText = "ABC123"

// plateCrop renders six dark 12x28 glyphs on a light 200x60 plate.
func plateCrop() *image.Gray {
	img := imaging.NewBinary(200, 60, 200)
	for i := range plateText {
		x := 20 + 20*i
		imaging.FillRect(img, image.Rect(x, 16, x+12, 44), 30)
	}
	return img
}

func plateLines() []*plate.TextLine {
	return []*plate.TextLine{plate.NewTextLine(
		detection.NewLineSegment(0, 15, 199, 15),
		detection.NewLineSegment(0, 45, 199, 45),
	)}
}

// glyphReader reads the plateText letter whose glyph starts at the region.
type glyphReader struct{}

func (glyphReader) Recognize(_ image.Image, region *image.Rectangle, mode ocr.Mode) ([]ocr.Symbol, error) {
	if mode != ocr.ModeSingleChar || region == nil {
		return nil, nil
	}
	i := (region.Min.X - 20 + 10) / 20
	if i < 0 || i >= len(plateText) {
		return nil, nil
	}
	return []ocr.Symbol{{Text: plateText[i : i+1], Confidence: 90, Box: *region, PointSize: 24}}, nil
}

func (glyphReader) Close() error { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Binarize.Adaptive = false
	cfg.Pipeline.Attempts = 3
	cfg.Pipeline.Workers = 2
	return cfg
}

func countingFactory(created *atomic.Int32) ocr.Factory {
	return func() (ocr.Recognizer, error) {
		created.Add(1)
		return glyphReader{}, nil
	}
}

func TestNewReader_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Attempts = 0
	if _, err := NewReader(cfg, nil, nil); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestReadAttempt(t *testing.T) {
	r, err := NewReader(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	res, err := r.ReadAttempt(glyphReader{}, Attempt{Index: 0, Gray: plateCrop(), Lines: plateLines()})
	if err != nil {
		t.Fatalf("ReadAttempt failed: %v", err)
	}
	if res.Disqualified {
		t.Fatal("attempt should not be disqualified")
	}
	best, ok := res.BestCandidate()
	if !ok || best.Text != plateText || !best.MatchesTemplate {
		t.Errorf("best candidate: got %+v", res.Candidates)
	}
	if res.Region != "us" {
		t.Errorf("region: got %q", res.Region)
	}
	if res.ID == "" {
		t.Error("attempt should get an ID")
	}
	if res.Corners != plate.RectCorners(image.Rect(0, 0, 200, 60)) {
		t.Errorf("corners should default to the crop, got %v", res.Corners)
	}

	stats := r.Stats()
	if stats.Attempts != 1 || stats.Regions != 6 || stats.Chars != 18 {
		t.Errorf("stats: got %+v", stats)
	}
}

func TestReadAttempt_KeepsCallerLines(t *testing.T) {
	r, _ := NewReader(testConfig(), nil, nil)
	lines := plateLines()
	before := *lines[0]

	if _, err := r.ReadAttempt(glyphReader{}, Attempt{Gray: plateCrop(), Lines: lines}); err != nil {
		t.Fatalf("ReadAttempt failed: %v", err)
	}
	if lines[0].Top != before.Top || lines[0].Bottom != before.Bottom {
		t.Error("caller lines should not be modified")
	}
}

func TestReadAttempt_Disqualified(t *testing.T) {
	r, _ := NewReader(testConfig(), nil, nil)

	res, err := r.ReadAttempt(glyphReader{}, Attempt{Gray: imaging.NewBinary(200, 60, 200)})
	if err != nil {
		t.Fatalf("ReadAttempt failed: %v", err)
	}
	if !res.Disqualified || len(res.Candidates) != 0 {
		t.Errorf("blank crop should be disqualified, got %+v", res)
	}
	if r.Stats().Disqualified != 1 {
		t.Errorf("stats: got %+v", r.Stats())
	}
}

func TestReadAttempt_NoImage(t *testing.T) {
	r, _ := NewReader(testConfig(), nil, nil)
	if _, err := r.ReadAttempt(glyphReader{}, Attempt{}); err == nil {
		t.Error("missing image should fail")
	}
}

func TestRunAttempts(t *testing.T) {
	r, _ := NewReader(testConfig(), nil, nil)
	var created atomic.Int32

	attempts := make([]Attempt, 5)
	for i := range attempts {
		attempts[i] = Attempt{Index: i, Gray: plateCrop(), Lines: plateLines()}
	}

	results, err := r.RunAttempts(context.Background(), countingFactory(&created), attempts, 2)
	if err != nil {
		t.Fatalf("RunAttempts failed: %v", err)
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d has index %d", i, res.Index)
		}
	}
	if n := created.Load(); n < 1 || n > 2 {
		t.Errorf("expected one recognizer per worker, got %d", n)
	}
	if r.Stats().Attempts != 5 {
		t.Errorf("stats: got %+v", r.Stats())
	}
}

func TestRunAttempts_FactoryError(t *testing.T) {
	r, _ := NewReader(testConfig(), nil, nil)
	failing := func() (ocr.Recognizer, error) { return nil, ocr.ErrUnavailable }

	_, err := r.RunAttempts(context.Background(), failing, []Attempt{{Gray: plateCrop()}}, 1)
	if !errors.Is(err, ocr.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestRead(t *testing.T) {
	r, _ := NewReader(testConfig(), nil, nil)
	var created atomic.Int32

	results, err := r.Read(context.Background(), countingFactory(&created), plateCrop(), plateLines())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one plate, got %d", len(results))
	}
	best, _ := results[0].BestCandidate()
	if best.Text != plateText || best.Count != 3 {
		t.Errorf("best: got %+v", best)
	}
	if len(results[0].Sources) != 3 {
		t.Errorf("sources: got %v", results[0].Sources)
	}
}
