package manager

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	// warmingProbeInterval is the tight cadence used while waiting for a
	// woken backend to come up; the configured interval applies otherwise.
	warmingProbeInterval = 300 * time.Millisecond

	// failThreshold is how many consecutive probe failures flip a serving
	// backend to Failed.
	failThreshold = 3
)

// probeLoop periodically checks backend health and drives the state
// transitions that depend on it. Nothing is probed while Cold: a stopped
// backend is not an error.
func (m *Manager) probeLoop() {
	defer m.loopsWG.Done()
	for {
		m.mu.Lock()
		st := m.state
		m.mu.Unlock()

		wait := m.cfg.HealthInterval
		if st == StateWarming {
			wait = warmingProbeInterval
		}
		timer := time.NewTimer(wait)
		select {
		case <-m.closed:
			timer.Stop()
			return
		case <-m.kickCh:
			timer.Stop()
		case <-timer.C:
		}

		m.mu.Lock()
		st = m.state
		m.mu.Unlock()
		if st == StateCold {
			continue
		}
		m.onProbeResult(m.probeOnce())
	}
}

// probeOnce performs a single health check against the backend.
func (m *Manager) probeOnce() bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HealthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.HealthURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.probeClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// onProbeResult applies one probe outcome to the state machine.
func (m *Manager) onProbeResult(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateCold:
		// Raced a drain completion; nothing to apply.

	case StateWarming:
		if healthy {
			m.warmLocked()
			return
		}
		if time.Since(m.wakeStarted) > m.cfg.WakeTimeout {
			m.failLocked("wake timeout after " + m.cfg.WakeTimeout.String())
		}

	case StateWarm, StateDraining:
		if healthy {
			m.probeFails = 0
			m.lastHealthy = time.Now()
			return
		}
		m.probeFails++
		metricProbeFailures.Inc()
		if m.probeFails >= failThreshold {
			m.failLocked("consecutive probe failures")
		}

	case StateFailed:
		if healthy {
			m.recoverLocked()
		}
	}
}
