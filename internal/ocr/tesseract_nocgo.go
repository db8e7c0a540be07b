//go:build !cgo

package ocr

import "image"

// Engine is unavailable without cgo.
type Engine struct{}

// NewEngine always fails with ErrUnavailable.
func NewEngine(Options) (*Engine, error) {
	return nil, ErrUnavailable
}

// NewFactory returns a Factory that always fails with ErrUnavailable.
func NewFactory(Options) Factory {
	return func() (Recognizer, error) {
		return nil, ErrUnavailable
	}
}

// Recognize always fails with ErrUnavailable.
func (e *Engine) Recognize(image.Image, *image.Rectangle, Mode) ([]Symbol, error) {
	return nil, ErrUnavailable
}

// Close does nothing.
func (e *Engine) Close() error { return nil }

// Version reports that Tesseract is not linked.
func Version() string { return "unavailable" }
