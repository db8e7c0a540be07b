// Package trace provides an optional sink for intermediate pipeline images.
//
// Components receive a Sink and check Enabled before building any debug
// image, so a disabled sink costs one method call per stage. Emitting never
// returns an error to the caller: write failures are logged and dropped.
package trace

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Sink receives intermediate images keyed by stage name.
type Sink interface {
	Enabled() bool
	Emit(stage string, img image.Image)
}

// Nop discards everything.
type Nop struct{}

// Enabled always returns false.
func (Nop) Enabled() bool { return false }

// Emit does nothing.
func (Nop) Emit(string, image.Image) {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Scoped returns s with file names prefixed when s supports it.
func Scoped(s Sink, prefix string) Sink {
	if d, ok := s.(*DirSink); ok {
		return d.WithPrefix(prefix)
	}
	return OrNop(s)
}

// DirSink writes each emitted image as a numbered PNG file.
type DirSink struct {
	dir    string
	prefix string
	seq    *atomic.Int64
	log    *slog.Logger
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir string, log *slog.Logger) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &DirSink{dir: dir, seq: new(atomic.Int64), log: log}, nil
}

// WithPrefix returns a sink sharing the directory and sequence counter whose
// file names start with prefix. Attempts use it to keep their files apart.
func (s *DirSink) WithPrefix(prefix string) *DirSink {
	return &DirSink{dir: s.dir, prefix: prefix, seq: s.seq, log: s.log}
}

// Enabled always returns true.
func (s *DirSink) Enabled() bool { return true }

// Emit writes img to <dir>/<prefix>-<seq>-<stage>.png.
func (s *DirSink) Emit(stage string, img image.Image) {
	n := s.seq.Add(1)
	name := fmt.Sprintf("%03d-%s.png", n, sanitize(stage))
	if s.prefix != "" {
		name = sanitize(s.prefix) + "-" + name
	}
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		s.log.Warn("trace write failed", "stage", stage, "error", err)
		return
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		s.log.Warn("trace encode failed", "stage", stage, "error", err)
		return
	}
	s.log.Debug("trace emitted", "stage", stage, "path", path)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
