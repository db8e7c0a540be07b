package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeCrop saves a plate-like PNG: light background with a dark band of
// "characters" across the middle rows.
func writeCrop(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{230, 230, 220, 255}
			if y >= h/4 && y < 3*h/4 && (x/4)%2 == 0 {
				c = color.RGBA{20, 20, 30, 255}
			}
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, "crop.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestGrayCache_LoadGray(t *testing.T) {
	path := writeCrop(t, t.TempDir(), 40, 20)

	cache := NewGrayCache()
	gray, err := cache.LoadGray(path)
	if err != nil {
		t.Fatalf("LoadGray failed: %v", err)
	}
	if gray.Bounds() != image.Rect(0, 0, 40, 20) {
		t.Errorf("bounds = %v, want 40x20", gray.Bounds())
	}
	if v := gray.GrayAt(1, 10).Y; v > 64 {
		t.Errorf("character pixel should be dark, got %d", v)
	}
	if v := gray.GrayAt(1, 1).Y; v < 200 {
		t.Errorf("background pixel should be light, got %d", v)
	}
}

func TestGrayCache_RepeatedPathShared(t *testing.T) {
	dir := t.TempDir()
	path := writeCrop(t, dir, 24, 12)

	cache := NewGrayCache()
	if cache.Contains(path) {
		t.Fatal("empty cache should not contain path")
	}
	first, err := cache.LoadGray(path)
	if err != nil {
		t.Fatalf("LoadGray failed: %v", err)
	}

	// Removing the file proves the second load never touches disk.
	os.Remove(path)

	tests := []struct {
		name string
		path string
	}{
		{"same path", path},
		{"relative spelling", filepath.Join(dir, ".", "crop.png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cache.LoadGray(tt.path)
			if err != nil {
				t.Fatalf("cached LoadGray failed: %v", err)
			}
			if got != first {
				t.Error("repeated path should return the shared raster")
			}
			if !cache.Contains(tt.path) {
				t.Error("Contains should report the cached path")
			}
		})
	}
	if n := cache.Len(); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestGrayCache_Errors(t *testing.T) {
	dir := t.TempDir()
	notImage := filepath.Join(dir, "notes.png")
	os.WriteFile(notImage, []byte("not an image"), 0644)

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.png")},
		{"undecodable", notImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewGrayCache()
			if _, err := cache.LoadGray(tt.path); err == nil {
				t.Fatal("expected error")
			}
			if cache.Contains(tt.path) || cache.Len() != 0 {
				t.Error("failed load should not be cached")
			}
		})
	}
}

func TestGrayCache_RetryAfterFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crop.png")

	cache := NewGrayCache()
	if _, err := cache.LoadGray(path); err == nil {
		t.Fatal("expected error before the file exists")
	}
	writeCrop(t, dir, 16, 8)
	if _, err := cache.LoadGray(path); err != nil {
		t.Errorf("load after the file appears failed: %v", err)
	}
}

func TestGrayCache_ConcurrentAccess(t *testing.T) {
	path := writeCrop(t, t.TempDir(), 32, 16)
	cache := NewGrayCache()

	const workers = 16
	results := make([]*image.Gray, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := cache.LoadGray(path)
			if err != nil {
				t.Errorf("concurrent LoadGray: %v", err)
				return
			}
			results[i] = g
		}(i)
	}
	wg.Wait()

	for i, g := range results {
		if g != results[0] {
			t.Errorf("worker %d got a different raster", i)
		}
	}
}
