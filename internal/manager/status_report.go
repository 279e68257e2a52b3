package manager

import (
	"time"

	"gatewayd/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	queued := len(m.queueCh) - len(m.slotCh)
	if queued < 0 {
		queued = 0
	}
	return Snapshot{
		State:         m.state,
		StateSince:    m.stateSince,
		LastHealthy:   m.lastHealthy,
		ProbeFailures: m.probeFails,
		Wakes:         m.wakes,
		Inflight:      len(m.slotCh),
		Queued:        queued,
		MaxConcurrent: cap(m.slotCh),
		MaxQueueDepth: cap(m.queueCh) - cap(m.slotCh),
	}
}

// Status builds a detailed status response for /status. The model field is
// left for the caller; the manager does not know what it fronts.
func (m *Manager) Status() types.StatusResponse {
	s := m.Snapshot()
	now := time.Now()

	var lastHealthy int64
	if !s.LastHealthy.IsZero() {
		lastHealthy = s.LastHealthy.Unix()
	}
	return types.StatusResponse{
		State:           string(s.State),
		Inflight:        s.Inflight,
		Queued:          s.Queued,
		MaxConcurrent:   s.MaxConcurrent,
		MaxQueueDepth:   s.MaxQueueDepth,
		WakesTotal:      s.Wakes,
		ProbeFailStreak: s.ProbeFailures,
		LastHealthyUnix: lastHealthy,
		StateSinceUnix:  s.StateSince.Unix(),
		UptimeSeconds:   int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:  now.Unix(),
	}
}
