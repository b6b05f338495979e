package sqlexec

import (
	"context"
	"sync"
	"time"
)

// Stats counts the statements an Executor runs under one context, typically
// one HTTP request. Safe for concurrent use; a nil *Stats ignores updates.
type Stats struct {
	mu       sync.Mutex
	snapshot StatsSnapshot
}

// StatsSnapshot is a copy of the counters at one point in time.
type StatsSnapshot struct {
	Statements int
	Failures   int
	Slow       int
	Elapsed    time.Duration
}

type statsKey struct{}

// WithStats returns a child context whose statements are counted into the
// returned Stats.
func WithStats(ctx context.Context) (context.Context, *Stats) {
	s := &Stats{}
	return context.WithValue(ctx, statsKey{}, s), s
}

// StatsFromContext returns the Stats attached by WithStats, or nil.
func StatsFromContext(ctx context.Context) *Stats {
	s, _ := ctx.Value(statsKey{}).(*Stats)
	return s
}

func (s *Stats) add(elapsed time.Duration, slow, failed bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Statements++
	s.snapshot.Elapsed += elapsed
	if slow {
		s.snapshot.Slow++
	}
	if failed {
		s.snapshot.Failures++
	}
}

// Snapshot copies the current counters. A nil *Stats reports zeros.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}
