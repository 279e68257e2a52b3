package limits

import "sync"

// PerKey caps simultaneous in-flight requests per key id. A limit of 0
// disables enforcement; in-flight counts are tracked either way so status
// reporting stays meaningful.
type PerKey struct {
	limit int

	mu       sync.Mutex
	inflight map[string]int
}

// NewPerKey creates a per-key concurrency gate. limit <= 0 means unlimited.
func NewPerKey(limit int) *PerKey {
	return &PerKey{limit: limit, inflight: make(map[string]int)}
}

// Acquire attempts to take an in-flight slot for id. When it returns true
// the caller must call Release(id) exactly once.
func (p *PerKey) Acquire(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.limit > 0 && p.inflight[id] >= p.limit {
		return false
	}
	p.inflight[id]++
	return true
}

// Release returns a slot taken by Acquire.
func (p *PerKey) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.inflight[id] - 1
	if n <= 0 {
		delete(p.inflight, id)
		return
	}
	p.inflight[id] = n
}

// Inflight returns the current in-flight count for id.
func (p *PerKey) Inflight(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight[id]
}

// Limit returns the configured per-key cap, 0 when disabled.
func (p *PerKey) Limit() int { return p.limit }
