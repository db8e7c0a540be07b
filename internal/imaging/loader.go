package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sync"
)

// GrayCache decodes plate crops from disk once and hands every caller the
// same 8-bit grayscale raster.
//
// Entries are keyed by absolute path, so "crop.png" and "./crop.png" share
// one entry. Concurrent first loads of one path decode it once; the other
// callers wait for that decode. A failed load is not remembered and the
// next call retries.
//
// The returned *image.Gray is shared. Callers must treat it as read-only
// and copy it (ToGray, Crop) before drawing on it.
type GrayCache struct {
	mu      sync.Mutex
	entries map[string]*grayEntry
}

type grayEntry struct {
	once  sync.Once
	gray  *image.Gray
	err   error
	ready bool // guarded by GrayCache.mu
}

// NewGrayCache returns an empty cache.
func NewGrayCache() *GrayCache {
	return &GrayCache{entries: make(map[string]*grayEntry)}
}

// LoadGray returns the grayscale raster of the PNG, JPEG, or GIF at path,
// decoding it on first use.
func (c *GrayCache) LoadGray(path string) (*image.Gray, error) {
	key, err := cacheKey(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &grayEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() { e.gray, e.err = decodeGray(path) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.err != nil {
		if c.entries[key] == e {
			delete(c.entries, key)
		}
		return nil, e.err
	}
	e.ready = true
	return e.gray, nil
}

// Contains reports whether path has already been decoded successfully.
func (c *GrayCache) Contains(path string) bool {
	key, err := cacheKey(path)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.ready
}

// Len returns the number of decoded rasters held.
func (c *GrayCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.ready {
			n++
		}
	}
	return n
}

func cacheKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve image path: %w", err)
	}
	return abs, nil
}

func decodeGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return ToGray(img), nil
}
