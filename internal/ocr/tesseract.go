//go:build cgo

package ocr

import (
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine is a Recognizer backed by one Tesseract client.
//
// The client keeps the last image and page segmentation mode, so an Engine
// serves a single goroutine. gosseract does not expose Tesseract's choice
// iterator, so symbols carry no alternates.
type Engine struct {
	client *gosseract.Client
}

// NewEngine creates a Tesseract client configured from opts.
func NewEngine(opts Options) (*Engine, error) {
	client := gosseract.NewClient()

	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	return &Engine{client: client}, nil
}

// NewFactory returns a Factory producing Engines with the same options.
func NewFactory(opts Options) Factory {
	return func() (Recognizer, error) {
		return NewEngine(opts)
	}
}

// Recognize runs Tesseract on img (restricted to region when non-nil) and
// returns one Symbol per recognized character.
func (e *Engine) Recognize(img image.Image, region *image.Rectangle, mode Mode) ([]Symbol, error) {
	prep, err := prepare(img, region)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	psm := gosseract.PSM_SINGLE_CHAR
	if mode == ModeSingleLine {
		psm = gosseract.PSM_SINGLE_LINE
	}
	if err := e.client.SetPageSegMode(psm); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	if err := e.client.SetImageFromBytes(prep.png); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	symbols := make([]Symbol, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		r := prep.toSource(box.Box)
		symbols = append(symbols, Symbol{
			Text:       text,
			Confidence: ClampConfidence(box.Confidence),
			Box:        r,
			PointSize:  EstimatePointSize(r.Dy()),
		})
	}
	return symbols, nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	return e.client.Close()
}

// Version returns the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}
