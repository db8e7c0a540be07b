package ocr

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"testing"
)

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeSingleChar, "single-char"},
		{ModeSingleLine, "single-line"},
		{Mode(9), "mode(9)"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(tt.mode), got, tt.want)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{55.5, 55.5},
		{100, 100},
		{180, 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEstimatePointSize(t *testing.T) {
	if got := EstimatePointSize(70); math.Abs(got-72) > 1e-9 {
		t.Errorf("EstimatePointSize(70) = %v, want 72", got)
	}
	if got := EstimatePointSize(0); got != 0 {
		t.Errorf("EstimatePointSize(0) = %v, want 0", got)
	}
}

func whiteOnBlack(w, h int, r image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Pix[y*img.Stride+x] = 255
		}
	}
	return img
}

func TestPrepare_Region(t *testing.T) {
	img := whiteOnBlack(100, 60, image.Rect(20, 10, 30, 50))
	region := image.Rect(15, 5, 35, 55)

	prep, err := prepare(img, &region)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if prep.scale != 1 {
		t.Errorf("scale: got %d, want 1 for a 50px tall crop", prep.scale)
	}
	if prep.origin != region.Min {
		t.Errorf("origin: got %v, want %v", prep.origin, region.Min)
	}

	decoded, err := png.Decode(bytes.NewReader(prep.png))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := image.Rect(0, 0, 20+2*padding, 50+2*padding)
	if decoded.Bounds() != want {
		t.Errorf("prepared bounds: got %v, want %v", decoded.Bounds(), want)
	}

	// Text becomes black, background and margin white.
	if r, _, _, _ := decoded.At(padding+10, padding+20).RGBA(); r != 0 {
		t.Error("glyph pixel should be black after inversion")
	}
	if r, _, _, _ := decoded.At(0, 0).RGBA(); r == 0 {
		t.Error("margin should be white")
	}
}

func TestPrepare_ScalesSmallCrops(t *testing.T) {
	img := whiteOnBlack(40, 10, image.Rect(5, 2, 10, 8))

	prep, err := prepare(img, nil)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if prep.scale != 4 {
		t.Errorf("scale: got %d, want 4 for a 10px tall image", prep.scale)
	}
}

func TestPrepared_ToSource(t *testing.T) {
	p := prepared{origin: image.Pt(100, 50), scale: 2}

	got := p.toSource(image.Rect(padding+10, padding+4, padding+30, padding+24))
	want := image.Rect(105, 52, 115, 62)
	if got != want {
		t.Errorf("toSource: got %v, want %v", got, want)
	}
}

func TestPrepare_RegionOutsideImage(t *testing.T) {
	img := whiteOnBlack(20, 20, image.Rect(0, 0, 5, 5))
	region := image.Rect(50, 50, 60, 60)

	if _, err := prepare(img, &region); err == nil {
		t.Error("prepare should fail for a region outside the image")
	}
}
