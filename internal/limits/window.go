package limits

import (
	"sync"
	"time"
)

const windowSpan = time.Minute

// Window enforces a fixed sixty-second requests-per-minute cap per key id.
// Each key keeps the timestamps of its requests inside the current window;
// rejected requests are not recorded, so a client that keeps hammering past
// the limit recovers as soon as its admitted requests age out.
type Window struct {
	defaultLimit int
	now          func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewWindow creates a minute-window limiter. defaultLimit applies to keys
// without their own limit; <= 0 disables the default cap.
func NewWindow(defaultLimit int) *Window {
	return &Window{
		defaultLimit: defaultLimit,
		now:          time.Now,
		hits:         make(map[string][]time.Time),
	}
}

// Allow records one request for id if it is under its minute limit and
// reports whether it was admitted. limit overrides the default for this key
// when > 0.
func (w *Window) Allow(id string, limit int) bool {
	if limit <= 0 {
		limit = w.defaultLimit
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-windowSpan)
	recent := pruneBefore(w.hits[id], cutoff)

	if limit > 0 && len(recent) >= limit {
		w.hits[id] = recent
		return false
	}
	w.hits[id] = append(recent, w.now())
	return true
}

// Recent returns how many requests id has made inside the current window.
func (w *Window) Recent(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-windowSpan)
	recent := pruneBefore(w.hits[id], cutoff)
	w.hits[id] = recent
	return len(recent)
}

// Snapshot returns the in-window request count for every active key.
func (w *Window) Snapshot() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-windowSpan)
	out := make(map[string]int, len(w.hits))
	for id, ts := range w.hits {
		recent := pruneBefore(ts, cutoff)
		if len(recent) == 0 {
			delete(w.hits, id)
			continue
		}
		w.hits[id] = recent
		out[id] = len(recent)
	}
	return out
}

// pruneBefore drops timestamps at or before cutoff, keeping order.
func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}
