package manager

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gatewayd/internal/limits"
)

// Manager owns the admission queue and the backend lifecycle state machine.
// One Manager fronts exactly one backend.
type Manager struct {
	cfg Config

	// queueCh bounds total occupancy (in-flight plus waiting); slotCh bounds
	// in-flight work. A request holds a queueCh reservation for its whole
	// stay and a slotCh token while it runs.
	queueCh chan struct{}
	slotCh  chan struct{}
	perKey  *limits.PerKey

	mu           sync.Mutex
	state        BackendState
	stateSince   time.Time
	lastHealthy  time.Time
	probeFails   int
	wakes        uint64
	lastActivity time.Time
	wakeStarted  time.Time
	drainTimer   *time.Timer
	// gateCh is closed when the pending wake attempt resolves (Warm or
	// Failed) and replaced with a fresh channel on entering Cold or on
	// Failed->Warming recovery. Open exactly while state is Cold or Warming.
	gateCh   chan struct{}
	gateOpen bool

	kickCh    chan struct{} // nudges the probe loop out of its idle cadence
	closed    chan struct{}
	closeOnce sync.Once
	loopsWG   sync.WaitGroup

	startTime   time.Time
	probeClient *http.Client
}

// New constructs a Manager with defaults for everything but the queue shape.
func New(maxConcurrent, maxQueueDepth int, queueWait time.Duration) *Manager {
	return NewWithConfig(Config{
		MaxConcurrent: maxConcurrent,
		MaxQueueDepth: maxQueueDepth,
		QueueWait:     queueWait,
	})
}

// State returns the current backend state.
func (m *Manager) State() BackendState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether the backend is serving (warm or draining; a drain is
// cancelable, so the backend is still usable).
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateWarm || m.state == StateDraining
}

// Inflight returns the number of requests currently running on the backend.
func (m *Manager) Inflight() int { return len(m.slotCh) }

// Queued returns the number of requests waiting for a slot.
func (m *Manager) Queued() int {
	n := len(m.queueCh) - len(m.slotCh)
	if n < 0 {
		return 0
	}
	return n
}

// Wakes returns how many backend-start signals have been issued.
func (m *Manager) Wakes() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wakes
}

// StartedAt returns when this Manager was constructed.
func (m *Manager) StartedAt() time.Time { return m.startTime }

// Close stops the loops, waits for occupancy to drain within ctx's budget,
// and stops a managed backend. Safe to call once.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() { close(m.closed) })
	m.loopsWG.Wait()

	m.mu.Lock()
	if m.drainTimer != nil {
		m.drainTimer.Stop()
		m.drainTimer = nil
	}
	m.mu.Unlock()

	// Let queued and in-flight work finish, bounded by ctx.
	for len(m.queueCh) > 0 {
		if err := ctx.Err(); err != nil {
			m.cfg.Publisher.Publish(Event{Name: "shutdown_timeout", Fields: map[string]any{
				"inflight": m.Inflight(), "queued": m.Queued(),
			}})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	err := m.cfg.Controller.Stop(ctx)

	m.mu.Lock()
	m.setStateLocked(StateCold, "shutdown", nil)
	m.openGateLocked()
	m.mu.Unlock()
	return err
}
