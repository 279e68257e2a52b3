package manager

import (
	"context"
	"log"
	"time"
)

const idleCheckInterval = time.Second

// awaitWarm blocks until the backend can serve the caller's request,
// triggering a wake when it finds the backend cold. The caller already
// holds an in-flight slot. Waiting is bounded by ctx and by the warming
// budget enforced in the probe loop, not by the queue-wait timer.
func (m *Manager) awaitWarm(ctx context.Context) error {
	for {
		m.mu.Lock()
		switch m.state {
		case StateWarm:
			m.lastActivity = time.Now()
			m.mu.Unlock()
			return nil

		case StateDraining:
			// The backend is still up; take the drain back.
			m.cancelDrainLocked()
			m.lastActivity = time.Now()
			m.mu.Unlock()
			return nil

		case StateFailed:
			m.mu.Unlock()
			return ErrBackendUnavailable("backend unavailable: failed health checks")

		case StateCold:
			m.beginWakeLocked()
			// Now warming; fall through to wait like everyone else.

		case StateWarming:
		}
		gate := m.gateCh
		m.mu.Unlock()

		select {
		case <-gate:
			// The wake attempt resolved one way or the other; re-check.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// beginWakeLocked transitions Cold->Warming and issues the start signal.
// Exactly one caller performs this per cold period: the transition happens
// under the lock, so concurrent arrivals observe Warming and just wait.
func (m *Manager) beginWakeLocked() {
	m.wakes++
	m.wakeStarted = time.Now()
	metricWakes.Inc()
	m.setStateLocked(StateWarming, "backend_wake", map[string]any{"wakes": m.wakes})
	m.kickProbe()

	ctrl := m.cfg.Controller
	budget := m.cfg.WakeTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()
		if err := ctrl.Start(ctx); err != nil {
			log.Printf("manager event=wake_error err=%v", err)
			m.mu.Lock()
			if m.state == StateWarming {
				m.failLocked("wake error: " + err.Error())
			}
			m.mu.Unlock()
		}
	}()
}

// warmLocked marks the backend serving and releases everyone waiting on the
// gate together.
func (m *Manager) warmLocked() {
	m.probeFails = 0
	m.lastHealthy = time.Now()
	m.lastActivity = time.Now()
	m.setStateLocked(StateWarm, "backend_warm", nil)
	m.closeGateLocked()
}

// failLocked gives up on the backend until a probe succeeds again. Waiters
// are released so they can observe the failure.
func (m *Manager) failLocked(reason string) {
	m.setStateLocked(StateFailed, "backend_failed", map[string]any{"reason": reason})
	m.closeGateLocked()
}

// recoverLocked reacts to a healthy probe in the failed state: back to
// Warming for confirmation, without issuing a wake signal.
func (m *Manager) recoverLocked() {
	m.wakeStarted = time.Now()
	m.setStateLocked(StateWarming, "backend_recovering", nil)
	m.openGateLocked()
	m.kickProbe()
}

// idleLoop drains the backend after a configured warm-and-idle period.
func (m *Manager) idleLoop() {
	defer m.loopsWG.Done()
	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.closed:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		idle := m.state == StateWarm &&
			len(m.slotCh) == 0 && len(m.queueCh) == 0 &&
			time.Since(m.lastActivity) >= m.cfg.IdleDrain
		if idle {
			m.startDrainLocked()
		}
		m.mu.Unlock()
	}
}

// startDrainLocked enters Draining and arms the grace timer. An admission
// before the timer fires cancels the drain; otherwise the backend is
// stopped and the state goes Cold.
func (m *Manager) startDrainLocked() {
	m.setStateLocked(StateDraining, "drain_start", map[string]any{
		"idle": time.Since(m.lastActivity).Round(time.Second).String(),
	})
	m.drainTimer = time.AfterFunc(m.cfg.DrainGrace, m.finishDrain)
}

// cancelDrainLocked returns a draining backend to Warm without a wake.
func (m *Manager) cancelDrainLocked() {
	if m.drainTimer != nil {
		m.drainTimer.Stop()
		m.drainTimer = nil
	}
	m.setStateLocked(StateWarm, "drain_cancel", nil)
}

// finishDrain completes a drain whose grace period elapsed untouched: state
// goes Cold first so late arrivals start a clean cold period, then the
// managed backend is stopped.
func (m *Manager) finishDrain() {
	m.mu.Lock()
	if m.state != StateDraining {
		// An admission canceled the drain while this timer was firing.
		m.mu.Unlock()
		return
	}
	m.drainTimer = nil
	m.setStateLocked(StateCold, "scaled_to_zero", nil)
	m.openGateLocked()
	ctrl := m.cfg.Controller
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ctrl.Stop(ctx); err != nil {
		log.Printf("manager event=stop_error err=%v", err)
	}
}

// setStateLocked records a transition, updates the one-hot state gauge, and
// publishes the matching event.
func (m *Manager) setStateLocked(next BackendState, event string, fields map[string]any) {
	prev := m.state
	m.state = next
	m.stateSince = time.Now()
	metricBackendState.WithLabelValues(string(prev)).Set(0)
	metricBackendState.WithLabelValues(string(next)).Set(1)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["from"] = string(prev)
	fields["to"] = string(next)
	m.cfg.Publisher.Publish(Event{Name: event, Fields: fields})
	log.Printf("manager event=%s from=%s to=%s", event, prev, next)
}

// closeGateLocked resolves the pending wake gate, waking all waiters.
func (m *Manager) closeGateLocked() {
	if m.gateOpen {
		close(m.gateCh)
		m.gateOpen = false
	}
}

// openGateLocked installs a fresh gate for the next wake cycle.
func (m *Manager) openGateLocked() {
	m.gateCh = make(chan struct{})
	m.gateOpen = true
}

// kickProbe nudges the probe loop out of its idle cadence.
func (m *Manager) kickProbe() {
	select {
	case m.kickCh <- struct{}{}:
	default:
	}
}
