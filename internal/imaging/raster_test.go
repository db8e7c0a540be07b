package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestNewBinary(t *testing.T) {
	img := NewBinary(10, 5, 255)

	if img.Bounds() != image.Rect(0, 0, 10, 5) {
		t.Errorf("bounds: got %v", img.Bounds())
	}
	if n := CountNonZero(img, img.Bounds()); n != 50 {
		t.Errorf("foreground: got %d, want 50", n)
	}
}

func TestFillRect(t *testing.T) {
	img := NewBinary(20, 20, 0)

	FillRect(img, image.Rect(5, 5, 10, 8), 255)
	if n := CountNonZero(img, img.Bounds()); n != 15 {
		t.Errorf("filled: got %d, want 15", n)
	}

	// Clamped to the image
	FillRect(img, image.Rect(-5, -5, 2, 2), 255)
	if n := CountNonZero(img, image.Rect(0, 0, 2, 2)); n != 4 {
		t.Errorf("clamped fill: got %d, want 4", n)
	}
}

func TestDrawLine(t *testing.T) {
	tests := []struct {
		name      string
		p0, p1    image.Point
		thickness int
		want      int
	}{
		{"horizontal", image.Pt(2, 5), image.Pt(11, 5), 1, 10},
		{"vertical", image.Pt(3, 0), image.Pt(3, 9), 1, 10},
		{"diagonal", image.Pt(0, 0), image.Pt(9, 9), 1, 10},
		{"reversed", image.Pt(11, 5), image.Pt(2, 5), 1, 10},
		{"thick", image.Pt(2, 5), image.Pt(11, 5), 2, 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewBinary(20, 20, 0)
			DrawLine(img, tt.p0, tt.p1, 255, tt.thickness)
			if n := CountNonZero(img, img.Bounds()); n != tt.want {
				t.Errorf("pixels: got %d, want %d", n, tt.want)
			}
		})
	}
}

func TestFillConvexPoly(t *testing.T) {
	img := NewBinary(30, 30, 0)

	FillConvexPoly(img, []image.Point{{5, 5}, {14, 5}, {14, 9}, {5, 9}}, 255)

	// Boundary inclusive: 10 x 5
	if n := CountNonZero(img, img.Bounds()); n != 50 {
		t.Errorf("filled: got %d, want 50", n)
	}
}

func TestFillConvexPoly_Triangle(t *testing.T) {
	img := NewBinary(30, 30, 0)

	FillConvexPoly(img, []image.Point{{0, 0}, {10, 0}, {0, 10}}, 255)

	if !IsForeground(img, 1, 1) || !IsForeground(img, 5, 5) {
		t.Error("points inside or on the hypotenuse should be filled")
	}
	if IsForeground(img, 8, 8) {
		t.Error("point beyond the hypotenuse should not be filled")
	}
}

func TestAndOr(t *testing.T) {
	dst := NewBinary(10, 10, 255)
	mask := NewBinary(10, 10, 0)
	FillRect(mask, image.Rect(0, 0, 5, 10), 255)

	And(dst, mask)
	if n := CountNonZero(dst, dst.Bounds()); n != 50 {
		t.Errorf("after And: got %d, want 50", n)
	}

	extra := NewBinary(10, 10, 0)
	FillRect(extra, image.Rect(8, 0, 10, 10), 255)
	Or(dst, extra)
	if n := CountNonZero(dst, dst.Bounds()); n != 70 {
		t.Errorf("after Or: got %d, want 70", n)
	}
}

func TestNonZeroPoints(t *testing.T) {
	img := NewBinary(5, 5, 0)
	img.SetGray(3, 1, color.Gray{Y: 255})
	img.SetGray(1, 2, color.Gray{Y: 255})

	pts := NonZeroPoints(img)
	if len(pts) != 2 || pts[0] != image.Pt(3, 1) || pts[1] != image.Pt(1, 2) {
		t.Errorf("got %v, want row-major [(3,1) (1,2)]", pts)
	}
}

func TestThreshold(t *testing.T) {
	// Offset bounds: the result is re-anchored at (0,0).
	img := image.NewGray(image.Rect(2, 1, 6, 2))
	img.Pix = []uint8{10, 100, 160, 255}

	out := Threshold(img, 128)
	if out.Bounds() != image.Rect(0, 0, 4, 1) {
		t.Errorf("bounds = %v, want 4x1 at origin", out.Bounds())
	}
	want := []uint8{0, 0, 255, 255}
	for i, v := range want {
		if out.Pix[i] != v {
			t.Errorf("got %v, want %v", out.Pix, want)
			break
		}
	}
	if img.Pix[0] != 10 {
		t.Error("Threshold must not modify its input")
	}
}

func TestCropGray(t *testing.T) {
	img := NewBinary(40, 20, 0)
	FillRect(img, image.Rect(10, 5, 20, 15), 255)

	crop, err := CropGray(img, image.Rect(10, 5, 30, 15))
	if err != nil {
		t.Fatalf("CropGray failed: %v", err)
	}
	if crop.Bounds() != image.Rect(0, 0, 20, 10) {
		t.Errorf("crop bounds: got %v", crop.Bounds())
	}
	if n := CountNonZero(crop, crop.Bounds()); n != 100 {
		t.Errorf("crop foreground: got %d, want 100", n)
	}
}

func TestCropGray_OutOfBounds(t *testing.T) {
	img := NewBinary(10, 10, 0)

	if _, err := CropGray(img, image.Rect(20, 20, 30, 30)); err == nil {
		t.Error("CropGray should fail for a region outside the image")
	}
}

func TestResizeGray_Binary(t *testing.T) {
	img := NewBinary(10, 10, 0)
	FillRect(img, image.Rect(0, 0, 5, 10), 255)

	out := ResizeGray(img, 20, 20, true)
	for _, v := range out.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("binary resize produced intermediate value %d", v)
		}
	}
	if n := CountNonZero(out, out.Bounds()); n != 200 {
		t.Errorf("foreground: got %d, want 200", n)
	}
}

func TestInvertAndPad(t *testing.T) {
	img := NewBinary(4, 4, 255)

	inv := Invert(img)
	if CountNonZero(inv, inv.Bounds()) != 0 {
		t.Error("inverted white image should be black")
	}

	padded := PadGray(img, 2, 0)
	if padded.Bounds() != image.Rect(0, 0, 8, 8) {
		t.Errorf("padded bounds: got %v", padded.Bounds())
	}
	if n := CountNonZero(padded, padded.Bounds()); n != 16 {
		t.Errorf("padded foreground: got %d, want 16", n)
	}
}

func TestRotateBinary(t *testing.T) {
	img := NewBinary(40, 40, 0)
	FillRect(img, image.Rect(10, 18, 30, 22), 255)

	same := RotateBinary(img, 0)
	if CountNonZero(same, same.Bounds()) != CountNonZero(img, img.Bounds()) {
		t.Error("zero rotation should copy the image")
	}

	rotated := RotateBinary(img, 90)
	if rotated.Bounds() != img.Bounds() {
		t.Fatalf("rotation must keep dimensions, got %v", rotated.Bounds())
	}
	// Horizontal bar becomes vertical
	if !IsForeground(rotated, 20, 12) || IsForeground(rotated, 12, 20) {
		t.Error("bar should be vertical after a 90 degree rotation")
	}
}

func TestIsForeground_OutOfBounds(t *testing.T) {
	img := NewBinary(5, 5, 255)

	if IsForeground(img, -1, 0) || IsForeground(img, 5, 5) {
		t.Error("out-of-bounds pixels are background")
	}
}
