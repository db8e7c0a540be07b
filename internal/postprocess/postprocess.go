// Package postprocess turns per-position letter votes into ranked plate
// strings and matches them against regional plate formats.
package postprocess

import (
	"cmp"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/ironsheep/plate-ocr/internal/config"
	"github.com/ironsheep/plate-ocr/internal/plate"
)

// maxLettersPerPosition bounds the alternatives tried at each position.
const maxLettersPerPosition = 3

// Template is a compiled plate format.
type Template struct {
	Region string
	re     *regexp.Regexp
}

// Matches reports whether text satisfies the format.
func (t Template) Matches(text string) bool { return t.re.MatchString(text) }

// CompileTemplates compiles the configured formats.
func CompileTemplates(specs []config.Template) ([]Template, error) {
	out := make([]Template, 0, len(specs))
	for _, s := range specs {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile template %s: %w", s.Region, err)
		}
		out = append(out, Template{Region: s.Region, re: re})
	}
	return out, nil
}

// Options configures an Accumulator.
type Options struct {
	MinCharacters int
	MaxCharacters int
	// MinConfidence drops letters read with less confidence.
	MinConfidence float64
	// SkipLevel lets a position be left out of a permutation when its best
	// letter is below this confidence.
	SkipLevel float64
	TopN      int
	Templates []Template
}

// FromConfig builds Options from the post-processing settings.
func FromConfig(c config.PostProcess) (Options, error) {
	templates, err := CompileTemplates(c.Templates)
	if err != nil {
		return Options{}, err
	}
	return Options{
		MinCharacters: c.MinCharacters,
		MaxCharacters: c.MaxCharacters,
		MinConfidence: c.MinConfidence,
		SkipLevel:     c.ConfidenceSkipLevel,
		TopN:          c.TopN,
		Templates:     templates,
	}, nil
}

// letter is the running vote for one reading at one position.
type letter struct {
	text        string
	line        int
	occurrences int
	total       float64

	// confidence is total spread over the most votes any letter received,
	// so a reading seen in few binarizations scores lower.
	confidence float64
}

// Result is the ranked output of one attempt.
type Result struct {
	Candidates       []plate.Candidate
	Region           string
	RegionConfidence float64
}

// Accumulator collects letters by absolute position. It is safe for
// concurrent use, though one attempt normally owns it.
type Accumulator struct {
	opts Options
	log  *slog.Logger

	mu        sync.Mutex
	positions map[int]map[string]*letter
}

// New creates an empty Accumulator.
func New(opts Options, log *slog.Logger) *Accumulator {
	if log == nil {
		log = slog.Default()
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	return &Accumulator{opts: opts, log: log, positions: make(map[int]map[string]*letter)}
}

// AddLetter records one reading at position.
func (a *Accumulator) AddLetter(text string, line, position int, confidence float64) {
	if text == "" || confidence < a.opts.MinConfidence {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	pos := a.positions[position]
	if pos == nil {
		pos = make(map[string]*letter)
		a.positions[position] = pos
	}
	l := pos[text]
	if l == nil {
		l = &letter{text: text, line: line}
		pos[text] = l
	}
	l.occurrences++
	l.total += confidence
}

// Reset discards every recorded letter.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.positions)
}

// ranked returns the positions in order, each with its letters sorted by
// vote weight and trimmed to maxLettersPerPosition.
func (a *Accumulator) ranked() ([][]*letter, int) {
	keys := make([]int, 0, len(a.positions))
	votes := 1
	for k, pos := range a.positions {
		keys = append(keys, k)
		for _, l := range pos {
			votes = max(votes, l.occurrences)
		}
	}
	slices.Sort(keys)

	lines := map[int]bool{}
	out := make([][]*letter, 0, len(keys))
	for _, k := range keys {
		letters := make([]*letter, 0, len(a.positions[k]))
		for _, l := range a.positions[k] {
			l.confidence = l.total / float64(votes)
			letters = append(letters, l)
			lines[l.line] = true
		}
		slices.SortFunc(letters, func(x, y *letter) int {
			if c := cmp.Compare(y.total, x.total); c != 0 {
				return c
			}
			return strings.Compare(x.text, y.text)
		})
		out = append(out, letters[:min(len(letters), maxLettersPerPosition)])
	}
	return out, len(lines)
}

// permutation is a partial plate string during the search.
type permutation struct {
	text  string
	sum   float64
	count int
}

func (p *permutation) mean() float64 {
	if p.count == 0 {
		return 0
	}
	return p.sum / float64(p.count)
}

func (p *permutation) extend(l *letter) *permutation {
	n := &permutation{text: p.text, sum: p.sum, count: p.count}
	if l != nil {
		n.text += l.text
		n.sum += l.confidence
		n.count++
	}
	return n
}

// Results builds the ranked plate candidates from the recorded letters.
//
// Positions are walked left to right keeping a beam of the best partial
// strings by mean letter confidence. A position whose best letter is below
// the skip level may also be left out.
func (a *Accumulator) Results() Result {
	a.mu.Lock()
	positions, lineCount := a.ranked()
	a.mu.Unlock()

	if len(positions) == 0 {
		return Result{}
	}

	beamWidth := max(a.opts.TopN*4, 32)
	beam := []*permutation{{}}
	for _, letters := range positions {
		next := make([]*permutation, 0, len(beam)*(len(letters)+1))
		skippable := letters[0].confidence < a.opts.SkipLevel
		for _, p := range beam {
			for _, l := range letters {
				next = append(next, p.extend(l))
			}
			if skippable {
				next = append(next, p.extend(nil))
			}
		}
		slices.SortStableFunc(next, func(x, y *permutation) int { return cmp.Compare(y.mean(), x.mean()) })
		beam = next[:min(len(next), beamWidth)]
	}

	maxLen := a.opts.MaxCharacters * max(lineCount, 1)
	seen := map[string]bool{}
	var candidates []plate.Candidate
	for _, p := range beam {
		text := p.text
		n := len([]rune(text))
		if n == 0 || seen[text] || n < a.opts.MinCharacters || (a.opts.MaxCharacters > 0 && n > maxLen) {
			continue
		}
		seen[text] = true
		candidates = append(candidates, plate.Candidate{Text: text, Confidence: p.mean()})
	}
	slices.SortStableFunc(candidates, func(x, y plate.Candidate) int { return cmp.Compare(y.Confidence, x.Confidence) })
	candidates = candidates[:min(len(candidates), a.opts.TopN)]

	res := Result{Candidates: candidates}
	for i := range res.Candidates {
		c := &res.Candidates[i]
		for _, t := range a.opts.Templates {
			if t.Matches(c.Text) {
				c.MatchesTemplate = true
				if res.Region == "" {
					res.Region, res.RegionConfidence = t.Region, c.Confidence
				}
				break
			}
		}
	}

	a.log.Debug("post-processing complete",
		"positions", len(positions),
		"candidates", len(res.Candidates),
		"region", res.Region)
	return res
}
