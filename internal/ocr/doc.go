// Package ocr recognizes characters in binary plate crops using Tesseract.
//
// The package exposes a small Recognizer interface so the segmentation and
// consensus code can be driven by Tesseract in production and by scripted
// recognizers in tests. Engine wraps a gosseract client and requires cgo; a
// binary built without cgo gets a stub whose constructor returns
// ErrUnavailable.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Input Layout
//
// Plate images are white text on black. Recognize inverts the crop, scales
// glyphs shorter than 32 pixels up with nearest-neighbour sampling and adds a
// white margin before handing it to Tesseract. Symbol boxes are mapped back to
// the coordinates of the image passed in.
//
// # Concurrency
//
// A Tesseract client keeps the current image and mode as state, so each
// worker must own its Recognizer. Use a Factory to create one per goroutine.
package ocr
