package manager

import (
	"context"
	"sync"
	"time"
)

// Admit reserves capacity for one request attributed to keyID and blocks
// until the backend can take it. On success it returns a release func that
// must be called exactly when the request finishes; calling it more than
// once is safe. On failure nothing is held.
//
// Order of gates: per-key cap, queue reservation, slot acquisition (bounded
// by the queue-wait budget and ctx), then backend readiness. Blocked
// acquirers are served in arrival order; a canceled or timed-out waiter
// withdraws without disturbing the rest of the line.
func (m *Manager) Admit(ctx context.Context, keyID string) (func(), error) {
	// Fast path: respect an already-canceled context.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Per-key cap. Checked before the shared queue so one key at its limit
	// cannot occupy (or reorder) the common waiting list.
	if !m.perKey.Acquire(keyID) {
		metricRejections.WithLabelValues(reasonPerKey).Inc()
		return nil, ErrPerKeyLimit()
	}

	// Reserve total occupancy. A full channel means in-flight plus waiting
	// is at capacity: reject immediately, never block here.
	select {
	case m.queueCh <- struct{}{}:
	default:
		m.perKey.Release(keyID)
		metricRejections.WithLabelValues(reasonQueueFull).Inc()
		return nil, ErrQueueFull()
	}

	enqueued := time.Now()
	admitted := false
	slotHeld := false
	defer func() {
		if admitted {
			return
		}
		if slotHeld {
			<-m.slotCh
		}
		<-m.queueCh
		m.perKey.Release(keyID)
	}()

	// Wait for an in-flight slot.
	timer := time.NewTimer(m.cfg.QueueWait)
	defer timer.Stop()
	select {
	case m.slotCh <- struct{}{}:
		slotHeld = true
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		metricRejections.WithLabelValues(reasonQueueTimeout).Inc()
		return nil, ErrQueueTimeout(m.cfg.QueueWait.String())
	}
	metricQueueWait.Observe(time.Since(enqueued).Seconds())

	// The slot is our claim to run next: hold it while the backend wakes.
	if err := m.awaitWarm(ctx); err != nil {
		if IsBackendUnavailable(err) {
			metricRejections.WithLabelValues(reasonBackendUnavailable).Inc()
		}
		return nil, err
	}

	admitted = true
	var once sync.Once
	release := func() {
		once.Do(func() {
			<-m.slotCh
			<-m.queueCh
			m.perKey.Release(keyID)
			m.mu.Lock()
			m.lastActivity = time.Now()
			m.mu.Unlock()
		})
	}
	return release, nil
}
