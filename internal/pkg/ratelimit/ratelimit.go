// Package ratelimit defines the sliding-window limiter contract shared by
// the in-process and Redis-backed implementations.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the oldest counted request leaves the window.
	ResetAt time.Time
}

// RetryAfter returns how long a rejected caller should wait.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.Before(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Limiter counts requests per key over a sliding window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Memory is an in-process sliding-window log. It is only suitable for a
// single gateway instance.
type Memory struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{hits: make(map[string][]time.Time), now: time.Now}
}

func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)
	log := m.hits[key]
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	log = log[i:]

	d := Decision{Limit: limit}
	if len(log) < limit {
		log = append(log, now)
		d.Allowed = true
	}
	d.Remaining = limit - len(log)
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if len(log) == 0 {
		delete(m.hits, key)
		d.ResetAt = now.Add(window)
		return d, nil
	}
	m.hits[key] = log
	d.ResetAt = log[0].Add(window)
	return d, nil
}

// Sweep drops keys whose every entry is older than window.
func (m *Memory) Sweep(window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-window)
	for k, log := range m.hits {
		if len(log) == 0 || !log[len(log)-1].After(cutoff) {
			delete(m.hits, k)
		}
	}
}
