package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats counts what one Reader has processed. Counters are updated by
// concurrent attempts.
type Stats struct {
	attempts     atomic.Int64
	disqualified atomic.Int64
	regions      atomic.Int64
	chars        atomic.Int64
	candidates   atomic.Int64
	elapsed      atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Attempts     int64         `json:"attempts"`
	Disqualified int64         `json:"disqualified"`
	Regions      int64         `json:"regions"`
	Chars        int64         `json:"chars"`
	Candidates   int64         `json:"candidates"`
	Elapsed      time.Duration `json:"elapsed_ns"`
}

func (s *Stats) record(regions, chars, candidates int, disqualified bool, elapsed time.Duration) {
	s.attempts.Add(1)
	if disqualified {
		s.disqualified.Add(1)
	}
	s.regions.Add(int64(regions))
	s.chars.Add(int64(chars))
	s.candidates.Add(int64(candidates))
	s.elapsed.Add(int64(elapsed))
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Attempts:     s.attempts.Load(),
		Disqualified: s.disqualified.Load(),
		Regions:      s.regions.Load(),
		Chars:        s.chars.Load(),
		Candidates:   s.candidates.Load(),
		Elapsed:      time.Duration(s.elapsed.Load()),
	}
}
