// Package pipeline runs recognition attempts over a grayscale plate crop and
// aggregates them into the final answer.
//
// Each attempt perturbs the crop, binarizes it, finds or reuses the text
// lines, segments characters, reads them, and ranks plate strings. Attempts
// share nothing but the Reader's configuration and Stats, so they run in
// parallel with one recognizer per worker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ironsheep/plate-ocr/internal/aggregate"
	"github.com/ironsheep/plate-ocr/internal/binarize"
	"github.com/ironsheep/plate-ocr/internal/config"
	"github.com/ironsheep/plate-ocr/internal/consensus"
	"github.com/ironsheep/plate-ocr/internal/detection"
	"github.com/ironsheep/plate-ocr/internal/linefind"
	"github.com/ironsheep/plate-ocr/internal/ocr"
	"github.com/ironsheep/plate-ocr/internal/plate"
	"github.com/ironsheep/plate-ocr/internal/postprocess"
	"github.com/ironsheep/plate-ocr/internal/segment"
	"github.com/ironsheep/plate-ocr/internal/trace"
	"golang.org/x/sync/errgroup"
)

// Attempt is the input of one recognition attempt.
type Attempt struct {
	Index int
	Gray  *image.Gray

	// Lines are the known text lines. When empty they are estimated from
	// the primary binarization.
	Lines   []*plate.TextLine
	Corners [4]detection.PointF
}

// Reader runs attempts with one configuration.
type Reader struct {
	cfg   *config.Config
	bin   *binarize.Binarizer
	post  postprocess.Options
	log   *slog.Logger
	trace trace.Sink
	stats Stats
}

// NewReader validates cfg and prepares the shared stages. A nil logger uses
// slog.Default and a nil sink disables tracing.
func NewReader(cfg *config.Config, log *slog.Logger, sink trace.Sink) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	post, err := postprocess.FromConfig(cfg.PostProcess)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reader{
		cfg:   cfg,
		bin:   binarize.New(cfg.Binarize),
		post:  post,
		log:   log,
		trace: trace.OrNop(sink),
	}, nil
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() StatsSnapshot { return r.stats.Snapshot() }

// ReadAttempt runs one attempt with rec. A disqualified attempt returns a
// result with no candidates and a nil error.
func (r *Reader) ReadAttempt(rec ocr.Recognizer, a Attempt) (plate.AttemptResult, error) {
	start := time.Now()
	id := uuid.NewString()
	log := r.log.With("attempt", a.Index, "id", id)
	sink := trace.Scoped(r.trace, fmt.Sprintf("attempt-%d", a.Index))

	res := plate.AttemptResult{ID: id, Index: a.Index, Corners: a.Corners}
	if a.Gray == nil {
		return res, fmt.Errorf("attempt %d has no image", a.Index)
	}
	if res.Corners == ([4]detection.PointF{}) {
		res.Corners = plate.RectCorners(a.Gray.Bounds())
	}

	gray := binarize.Perturb(a.Gray, a.Index)
	images, err := r.bin.Binarize(gray)
	if err != nil {
		return res, err
	}
	ws := &plate.Workspace{Gray: gray, Images: images, Corners: res.Corners}

	if len(a.Lines) > 0 {
		for _, l := range a.Lines {
			line := *l
			ws.Lines = append(ws.Lines, &line)
		}
	} else {
		line, err := linefind.Find(images)
		switch {
		case errors.Is(err, linefind.ErrNoCharacters):
			ws.Disqualify("no text line found")
		case err != nil:
			return res, err
		default:
			ws.Lines = []*plate.TextLine{line}
		}
	}
	ws.Multiline = len(ws.Lines) > 1

	if err := segment.New(r.cfg, log, sink).Segment(ws); err != nil {
		return res, fmt.Errorf("failed to segment attempt %d: %w", a.Index, err)
	}

	var chars []consensus.OcrChar
	if !ws.Disqualified {
		acc := postprocess.New(r.post, log)
		reader := consensus.New(rec, consensus.Options{
			MaxCharacters: r.cfg.PostProcess.MaxCharacters,
			MinPointSize:  r.cfg.OCR.MinFontSize,
		}, log, sink)
		chars, err = reader.Run(ws, acc)
		if err != nil {
			return res, fmt.Errorf("failed to read attempt %d: %w", a.Index, err)
		}
		post := acc.Results()
		res.Candidates = post.Candidates
		res.Region, res.RegionConfidence = post.Region, post.RegionConfidence
	}

	res.Disqualified = ws.Disqualified
	elapsed := time.Since(start)
	res.ProcessingTime = plate.Duration(elapsed)
	r.stats.record(ws.RegionCount(), len(chars), len(res.Candidates), ws.Disqualified, elapsed)

	if ws.Disqualified {
		log.Warn("attempt disqualified", "reason", ws.DisqualifyReason)
	} else {
		log.Debug("attempt complete",
			"regions", ws.RegionCount(),
			"chars", len(chars),
			"candidates", len(res.Candidates),
			"elapsed", elapsed)
	}
	return res, nil
}

// RunAttempts runs attempts on up to workers goroutines, each with its own
// recognizer from factory. Results keep the order of attempts.
func (r *Reader) RunAttempts(ctx context.Context, factory ocr.Factory, attempts []Attempt, workers int) ([]plate.AttemptResult, error) {
	workers = max(1, min(workers, len(attempts)))
	results := make([]plate.AttemptResult, len(attempts))

	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range attempts {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			rec, err := factory()
			if err != nil {
				return fmt.Errorf("failed to create recognizer: %w", err)
			}
			defer rec.Close()

			for i := range jobs {
				res, err := r.ReadAttempt(rec, attempts[i])
				if err != nil {
					return err
				}
				results[i] = res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Read runs the configured number of attempts over gray and returns the
// aggregated results, one per plate found.
func (r *Reader) Read(ctx context.Context, factory ocr.Factory, gray *image.Gray, lines []*plate.TextLine) ([]plate.AttemptResult, error) {
	attempts := make([]Attempt, r.cfg.Pipeline.Attempts)
	for i := range attempts {
		attempts[i] = Attempt{Index: i, Gray: gray, Lines: lines}
	}

	results, err := r.RunAttempts(ctx, factory, attempts, r.cfg.Pipeline.Workers)
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(aggregate.FromConfig(r.cfg.Aggregation), r.log)
	for _, res := range results {
		agg.Add(res)
	}
	return agg.Results()
}
