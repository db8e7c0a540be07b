// Package plate holds the data model shared by every stage of a recognition
// attempt: the binarized image set, text-line geometry, the per-attempt
// working set, and the attempt result handed to aggregation.
package plate

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/plate-ocr/internal/detection"
	yaml "go.yaml.in/yaml/v3"
)

var (
	// ErrEmptyImageSet is returned when a BinaryImageSet holds no images.
	ErrEmptyImageSet = errors.New("binary image set is empty")

	// ErrImageSizeMismatch is returned when images in a set differ in size.
	ErrImageSizeMismatch = errors.New("binary images differ in size")
)

// BinaryImageSet is an ordered collection of same-sized binarizations of one
// plate crop. Index 0 is the primary binarization.
type BinaryImageSet []*image.Gray

// Validate checks the set is non-empty and uniformly sized.
func (s BinaryImageSet) Validate() error {
	if len(s) == 0 {
		return ErrEmptyImageSet
	}
	size := s[0].Bounds().Size()
	for i, img := range s[1:] {
		if img.Bounds().Size() != size {
			return fmt.Errorf("image %d is %v, want %v: %w", i+1, img.Bounds().Size(), size, ErrImageSizeMismatch)
		}
	}
	return nil
}

// Bounds returns the shared bounds of the set.
func (s BinaryImageSet) Bounds() image.Rectangle {
	if len(s) == 0 {
		return image.Rectangle{}
	}
	return s[0].Bounds()
}

// TextLine describes one row of text on the plate.
type TextLine struct {
	Top    detection.LineSegment `json:"top"`
	Bottom detection.LineSegment `json:"bottom"`

	// Polygon bounds the text row: top-left, top-right, bottom-right, bottom-left.
	Polygon [4]detection.PointF `json:"polygon"`

	LineHeight float64             `json:"line_height"`
	Contours   []detection.Contour `json:"-"`
}

// NewTextLine builds a line from its top and bottom segments. The polygon
// spans the x-range of the top segment.
func NewTextLine(top, bottom detection.LineSegment) *TextLine {
	l := &TextLine{Top: top, Bottom: bottom}
	l.updateGeometry()
	return l
}

// SetLines replaces the top and bottom segments and recomputes the polygon
// and line height.
func (l *TextLine) SetLines(top, bottom detection.LineSegment) {
	l.Top, l.Bottom = top, bottom
	l.updateGeometry()
}

func (l *TextLine) updateGeometry() {
	x1, x2 := l.Top.P1.X, l.Top.P2.X
	l.Polygon = [4]detection.PointF{
		{X: x1, Y: l.Top.YAt(x1)},
		{X: x2, Y: l.Top.YAt(x2)},
		{X: x2, Y: l.Bottom.YAt(x2)},
		{X: x1, Y: l.Bottom.YAt(x1)},
	}
	mid := (x1 + x2) / 2
	l.LineHeight = l.Bottom.YAt(mid) - l.Top.YAt(mid)
}

// Angle returns the slope of the top line in degrees.
func (l *TextLine) Angle() float64 { return l.Top.Angle() }

// GoodContours returns the contours flagged as character glyphs.
func (l *TextLine) GoodContours() []detection.Contour {
	var good []detection.Contour
	for _, c := range l.Contours {
		if c.Good {
			good = append(good, c)
		}
	}
	return good
}

// Workspace is the working set of one recognition attempt. It is created per
// attempt, mutated by each stage in turn, and never shared across attempts.
type Workspace struct {
	Gray   *image.Gray
	Images BinaryImageSet
	Lines  []*TextLine

	Multiline bool

	// Disqualified short-circuits the remaining stages of the attempt.
	Disqualified     bool
	DisqualifyReason string

	// Regions holds the character regions per line, x-sorted.
	Regions [][]image.Rectangle

	// Corners of the plate quadrilateral in source-image coordinates.
	Corners [4]detection.PointF
}

// Disqualify marks the attempt as unusable.
func (w *Workspace) Disqualify(reason string) {
	w.Disqualified = true
	w.DisqualifyReason = reason
}

// RegionCount returns the total number of character regions across lines.
func (w *Workspace) RegionCount() int {
	n := 0
	for _, r := range w.Regions {
		n += len(r)
	}
	return n
}

// Candidate is one ranked plate string.
type Candidate struct {
	Text            string  `json:"text" yaml:"text"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`
	MatchesTemplate bool    `json:"matches_template" yaml:"matches_template"`

	// Count is the number of attempts that produced the string; set by aggregation.
	Count int `json:"count,omitempty" yaml:"count,omitempty"`
}

// Duration is a time.Duration stored as integer nanoseconds, so results
// written as JSON or YAML read back unchanged.
type Duration time.Duration

// MarshalYAML writes d as nanoseconds.
func (d Duration) MarshalYAML() (any, error) { return int64(d), nil }

// UnmarshalYAML reads nanoseconds.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var ns int64
	if err := n.Decode(&ns); err != nil {
		return fmt.Errorf("failed to parse duration: %w", err)
	}
	*d = Duration(ns)
	return nil
}

// AttemptResult is the outcome of one recognition attempt.
type AttemptResult struct {
	ID    string `json:"id" yaml:"id"`
	Index int    `json:"index" yaml:"index"`

	Candidates []Candidate `json:"candidates" yaml:"candidates"`

	Region           string  `json:"region,omitempty" yaml:"region,omitempty"`
	RegionConfidence float64 `json:"region_confidence,omitempty" yaml:"region_confidence,omitempty"`

	Corners [4]detection.PointF `json:"corners" yaml:"corners"`

	Disqualified   bool     `json:"disqualified,omitempty" yaml:"disqualified,omitempty"`
	ProcessingTime Duration `json:"processing_time_ns,omitempty" yaml:"processing_time_ns,omitempty"`

	// Sources lists the attempt IDs merged into an aggregated result.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// BestCandidate returns the top-ranked candidate, or false when there is none.
func (r AttemptResult) BestCandidate() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// RectCorners returns the corners of an axis-aligned rectangle in the
// clockwise order used for plate quadrilaterals.
func RectCorners(r image.Rectangle) [4]detection.PointF {
	return [4]detection.PointF{
		{X: float64(r.Min.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Max.Y)},
		{X: float64(r.Min.X), Y: float64(r.Max.Y)},
	}
}
