package segment

import (
	"image"
	"log/slog"

	"github.com/ironsheep/plate-ocr/internal/config"
	"github.com/ironsheep/plate-ocr/internal/imaging"
	"github.com/ironsheep/plate-ocr/internal/plate"
	"github.com/ironsheep/plate-ocr/internal/trace"
)

// Segmenter finds character regions for every line of a Workspace.
type Segmenter struct {
	cfg   *config.Config
	log   *slog.Logger
	trace trace.Sink
}

// New creates a Segmenter. A nil logger uses slog.Default and a nil sink
// disables tracing.
func New(cfg *config.Config, log *slog.Logger, sink trace.Sink) *Segmenter {
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{cfg: cfg, log: log, trace: trace.OrNop(sink)}
}

// Segment cleans the workspace images and fills ws.Regions. A workspace with
// no regions on any line is disqualified; that is not an error.
func (s *Segmenter) Segment(ws *plate.Workspace) error {
	if ws.Disqualified {
		return nil
	}
	if err := ws.Images.Validate(); err != nil {
		return err
	}

	b := ws.Images.Bounds()
	seg := s.cfg.Segmentation
	edgeMask := imaging.NewBinary(b.Dx(), b.Dy(), 255)
	ws.Regions = make([][]image.Rectangle, len(ws.Lines))

	for i, line := range ws.Lines {
		m := newLineMetrics(line, s.cfg.LineSpecFor(i), seg)
		if !m.valid() {
			s.log.Warn("skipping line with degenerate geometry", "line", i, "line_height", line.LineHeight)
			continue
		}

		if filterContours(ws.Images, line, m) {
			s.log.Debug("line clipped to plate frame", "line", i,
				"top", line.Top, "bottom", line.Bottom)
		}
		s.emitImages("contour-filter", ws.Images)

		mask := lineMask(b, line)
		var candidates []image.Rectangle
		for _, img := range ws.Images {
			candidates = append(candidates, boxesForImage(img, mask, line, m)...)
		}
		boxes, score := bestBoxes(b, candidates, line, m)
		s.emitBoxes("histogram-boxes", ws.Images[0], boxes)

		lineEdges, boxes := filterEdgeBoxes(ws.Images, boxes, line, m)
		imaging.And(edgeMask, lineEdges)

		boxes = combineCloseBoxes(boxes, s.cfg.PostProcess.MinCharacters)
		boxes = filterMostlyEmptyBoxes(ws.Images, boxes, seg.MinCharHeightPercent)
		ws.Regions[i] = normalizeRegions(boxes, b)

		s.log.Debug("line segmented",
			"line", i,
			"avg_char_width", m.avgWidth,
			"avg_char_height", m.avgHeight,
			"candidates", len(candidates),
			"row_score", score,
			"regions", len(ws.Regions[i]))
	}

	for _, img := range ws.Images {
		imaging.And(img, edgeMask)
	}

	var all []image.Rectangle
	for _, r := range ws.Regions {
		all = append(all, r...)
	}
	cleanCharRegions(ws.Images, all, seg.MinCharHeightPercent)
	s.emitBoxes("char-regions", ws.Images[0], all)

	if len(all) == 0 {
		ws.Disqualify("no character regions found")
		s.log.Warn("attempt disqualified", "reason", ws.DisqualifyReason)
	}
	return nil
}

func (s *Segmenter) emitImages(stage string, images plate.BinaryImageSet) {
	if !s.trace.Enabled() {
		return
	}
	s.trace.Emit(stage, trace.GrayDashboard(images, 3))
}

func (s *Segmenter) emitBoxes(stage string, base *image.Gray, boxes []image.Rectangle) {
	if !s.trace.Enabled() {
		return
	}
	s.trace.Emit(stage, trace.Boxes(base, boxes))
}
