// Package aggregate fuses independent recognition attempts of the same
// plate into one ranked answer per physical plate.
//
// Attempts are clustered by the position and size of their plate
// quadrilaterals, then each cluster is merged either by picking its most
// confident attempt or by combining the candidate lists of all of them.
package aggregate

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ironsheep/plate-ocr/internal/config"
	"github.com/ironsheep/plate-ocr/internal/plate"
	"gonum.org/v1/gonum/floats"
)

// ErrNoAttempts is returned by Results when nothing was added.
var ErrNoAttempts = errors.New("no attempt results to aggregate")

// Scoring constants for the combine strategy.
const (
	defaultMinConfidence = 50
	confidenceBaseline   = 60
	confidenceWeight     = 4
	templateBonus        = 150
	positionBonus        = 65

	// minRegionConfidence is the best-candidate confidence an attempt needs
	// to vote for the region.
	minRegionConfidence = 60

	// preferLongerWithin is the confidence gap under which the longer of
	// two template matches wins.
	preferLongerWithin = 5
)

// State is the aggregator's lifecycle stage.
type State int

// Lifecycle stages, in order.
const (
	StateCollecting State = iota
	StateClustered
	StateMerged
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateClustered:
		return "clustered"
	case StateMerged:
		return "merged"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures an Aggregator.
type Options struct {
	// Strategy is config.StrategyCombine or config.StrategyPickBest.
	Strategy string
	TopN     int
	// MinConfidence is the floor below which combine ignores a candidate.
	MinConfidence float64
}

// FromConfig builds Options from the aggregation settings.
func FromConfig(c config.Aggregation) Options {
	return Options{Strategy: c.Strategy, TopN: c.TopN, MinConfidence: c.MinConfidence}
}

// Aggregator collects attempt results and merges them on demand. Add may be
// called from several goroutines.
type Aggregator struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	results []plate.AttemptResult
	state   State
}

// New creates an empty Aggregator.
func New(opts Options, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	if opts.Strategy == "" {
		opts.Strategy = config.StrategyCombine
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = defaultMinConfidence
	}
	return &Aggregator{opts: opts, log: log}
}

// Add appends one attempt result.
func (a *Aggregator) Add(r plate.AttemptResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, r)
	a.state = StateCollecting
}

// Len returns the number of collected results.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// State returns the current lifecycle stage.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Results clusters the collected attempts and returns one merged result per
// cluster, most confident first.
func (a *Aggregator) Results() ([]plate.AttemptResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.results) == 0 {
		return nil, ErrNoAttempts
	}

	clusters := cluster(a.results)
	a.state = StateClustered
	a.log.Debug("attempts clustered", "attempts", len(a.results), "clusters", len(clusters))

	merged := make([]plate.AttemptResult, 0, len(clusters))
	for i, c := range clusters {
		var (
			r  plate.AttemptResult
			ok bool
		)
		if a.opts.Strategy == config.StrategyPickBest {
			r, ok = pickBest(c), true
		} else {
			r, ok = a.combine(c)
		}
		if !ok {
			a.log.Debug("cluster produced no candidates", "cluster", i, "attempts", len(c))
			continue
		}
		merged = append(merged, r)
	}
	a.state = StateMerged

	slices.SortStableFunc(merged, func(x, y plate.AttemptResult) int {
		return cmp.Compare(topConfidence(y), topConfidence(x))
	})
	a.state = StateDone
	return merged, nil
}

// cluster greedily assigns each result to the first cluster holding an
// overlapping shape.
func cluster(results []plate.AttemptResult) [][]plate.AttemptResult {
	var (
		clusters [][]plate.AttemptResult
		shapes   [][]ShapeInfo
	)
	for _, r := range results {
		s := Shape(r.Corners)
		idx := slices.IndexFunc(shapes, func(members []ShapeInfo) bool {
			return slices.ContainsFunc(members, func(m ShapeInfo) bool { return Overlaps(s, m) })
		})
		if idx < 0 {
			clusters = append(clusters, []plate.AttemptResult{r})
			shapes = append(shapes, []ShapeInfo{s})
			continue
		}
		clusters[idx] = append(clusters[idx], r)
		shapes[idx] = append(shapes[idx], s)
	}
	return clusters
}

// topConfidence is the highest candidate confidence of r, or -1.
func topConfidence(r plate.AttemptResult) float64 {
	if len(r.Candidates) == 0 {
		return -1
	}
	confs := make([]float64, len(r.Candidates))
	for i, c := range r.Candidates {
		confs[i] = c.Confidence
	}
	return floats.Max(confs)
}

func bestConfidence(r plate.AttemptResult) float64 {
	if c, ok := r.BestCandidate(); ok {
		return c.Confidence
	}
	return 0
}

// pickBest returns the attempt whose best candidate is most confident. The
// first attempt wins ties.
func pickBest(c []plate.AttemptResult) plate.AttemptResult {
	best, bestConf := 0, 0.0
	for i, r := range c {
		if conf := bestConfidence(r); conf > bestConf {
			best, bestConf = i, conf
		}
	}
	return c[best]
}

// candidateScore weighs one candidate at rank j of an n-long list.
func candidateScore(confidence float64, matchesTemplate bool, j, n int) float64 {
	score := (confidence - confidenceBaseline) * confidenceWeight
	if matchesTemplate {
		score += templateBonus
	}
	return score + positionBonus - float64(j)*positionBonus/float64(n)
}

// plateScore accumulates one candidate string across a cluster.
type plateScore struct {
	candidate plate.Candidate
	total     float64
}

// combine scores every candidate of every attempt in the cluster and merges
// them into one ranked list. It reports false when no candidate passes the
// confidence floor.
func (a *Aggregator) combine(c []plate.AttemptResult) (plate.AttemptResult, bool) {
	n := a.opts.TopN
	scores := map[string]*plateScore{}
	var order []*plateScore
	for _, r := range c {
		for j, cand := range r.Candidates[:min(len(r.Candidates), n)] {
			if cand.Confidence < a.opts.MinConfidence {
				continue
			}
			s := scores[cand.Text]
			if s == nil {
				s = &plateScore{candidate: cand}
				s.candidate.Count = 0
				scores[cand.Text] = s
				order = append(order, s)
			}
			s.total += candidateScore(cand.Confidence, cand.MatchesTemplate, j, n)
			s.candidate.Count++
			s.candidate.Confidence = max(s.candidate.Confidence, cand.Confidence)
		}
	}
	if len(order) == 0 {
		return plate.AttemptResult{}, false
	}

	slices.SortStableFunc(order, func(x, y *plateScore) int { return cmp.Compare(y.total, x.total) })
	order = order[:min(len(order), n)]

	first := c[0]
	out := plate.AttemptResult{
		ID:             first.ID,
		Index:          first.Index,
		Corners:        first.Corners,
		ProcessingTime: first.ProcessingTime,
		Candidates:     make([]plate.Candidate, len(order)),
	}
	for i, s := range order {
		out.Candidates[i] = s.candidate
	}
	slices.SortStableFunc(out.Candidates, compareTemplate)
	out.Region, out.RegionConfidence = voteRegion(c)
	for _, r := range c {
		out.Sources = append(out.Sources, r.ID)
	}

	a.log.Debug("cluster combined",
		"attempts", len(c),
		"candidates", len(out.Candidates),
		"best", out.Candidates[0].Text,
		"score", order[0].total)
	return out, true
}

// compareTemplate orders template matches before non-matches. Between two
// matches of different length the longer one wins unless it trails by
// preferLongerWithin points or more.
func compareTemplate(x, y plate.Candidate) int {
	byConfidence := cmp.Compare(y.Confidence, x.Confidence)
	switch {
	case x.MatchesTemplate && y.MatchesTemplate:
		lx, ly := len([]rune(x.Text)), len([]rune(y.Text))
		switch {
		case lx == ly:
			return byConfidence
		case lx > ly:
			if x.Confidence > y.Confidence || y.Confidence-x.Confidence < preferLongerWithin {
				return -1
			}
			return 1
		default:
			if y.Confidence > x.Confidence || x.Confidence-y.Confidence < preferLongerWithin {
				return 1
			}
			return -1
		}
	case x.MatchesTemplate:
		return -1
	case y.MatchesTemplate:
		return 1
	}
	return byConfidence
}

// voteRegion sums the region confidence of every sufficiently confident
// attempt per region and returns the winner with its mean confidence.
func voteRegion(c []plate.AttemptResult) (string, float64) {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range c {
		if r.Region == "" || bestConfidence(r) < minRegionConfidence {
			continue
		}
		sums[r.Region] += r.RegionConfidence
		counts[r.Region]++
	}

	regions := make([]string, 0, len(sums))
	for region := range sums {
		regions = append(regions, region)
	}
	slices.Sort(regions)

	best, bestScore := "", -1.0
	for _, region := range regions {
		if sums[region] > bestScore {
			best, bestScore = region, sums[region]
		}
	}
	if bestScore <= 0 {
		return "", 0
	}
	return best, bestScore / float64(counts[best])
}
