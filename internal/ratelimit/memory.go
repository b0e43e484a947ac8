package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = time.Minute

type memoryWindow struct {
	times  []time.Time
	window time.Duration
}

// MemoryStore keeps attempts in process memory. It is used for tests and
// single-instance deployments. Keys whose window has emptied are dropped.
type MemoryStore struct {
	mu        sync.Mutex
	events    map[string]*memoryWindow
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]*memoryWindow)}
}

func (m *MemoryStore) Acquire(_ context.Context, userID, action string, rule Rule, now time.Time) (bool, error) {
	key := userID + ":" + action

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}

	w := m.events[key]
	if w == nil {
		w = &memoryWindow{}
	}
	w.window = rule.Window
	w.times = prune(w.times, now.Add(-rule.Window))
	if len(w.times) >= rule.Max {
		if len(w.times) == 0 {
			delete(m.events, key)
		} else {
			m.events[key] = w
		}
		return false, nil
	}
	w.times = append(w.times, now)
	m.events[key] = w
	return true, nil
}

// sweep drops every key with no attempts left inside its window. Callers hold mu.
func (m *MemoryStore) sweep(now time.Time) {
	for key, w := range m.events {
		w.times = prune(w.times, now.Add(-w.window))
		if len(w.times) == 0 {
			delete(m.events, key)
		}
	}
	m.lastSweep = now
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, ts := range times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
