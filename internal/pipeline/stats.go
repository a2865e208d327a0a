package pipeline

import (
	"time"

	"github.com/sodas-cph/urlharvest/internal/fetch"
)

// Stats aggregates run counters. It is only ever touched by the coordinator
// goroutine that drains the completion channel, so it needs no locking;
// workers report through results, never through shared counters.
type Stats struct {
	Total     int                   `json:"total"`
	Processed int                   `json:"processed"`
	Success   int                   `json:"success"`
	Failed    int                   `json:"failed"`
	CacheHits int                   `json:"cache_hits"`
	ByOutcome map[fetch.Outcome]int `json:"by_outcome"`
	StartedAt time.Time             `json:"started_at"`
}

func newStats(total int) *Stats {
	return &Stats{
		Total:     total,
		ByOutcome: make(map[fetch.Outcome]int),
		StartedAt: time.Now(),
	}
}

func (s *Stats) record(r *fetch.Result) {
	s.Processed++
	s.ByOutcome[r.Outcome]++
	if r.CacheHit {
		s.CacheHits++
	}
	if r.Success() {
		s.Success++
	} else {
		s.Failed++
	}
}

// Elapsed returns time since the run started.
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

// Rate returns processed URLs per second.
func (s *Stats) Rate() float64 {
	secs := s.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Processed) / secs
}

// ETA estimates remaining run time at the current rate.
func (s *Stats) ETA() time.Duration {
	rate := s.Rate()
	if rate <= 0 {
		return 0
	}
	remaining := s.Total - s.Processed
	return time.Duration(float64(remaining)/rate) * time.Second
}

// SuccessRate returns the fraction of processed URLs that succeeded.
func (s *Stats) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Processed)
}
