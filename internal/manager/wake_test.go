package manager

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAdmit_ColdStartIssuesOneWake(t *testing.T) {
	backend, ctrl := managedBackend(t)
	pub := NewMemoryPublisher()
	m := newTestManager(t, Config{
		MaxConcurrent: 4, MaxQueueDepth: 8,
		QueueWait:      2 * time.Second,
		HealthURL:      backend.URL(),
		HealthInterval: 20 * time.Millisecond,
		HealthTimeout:  500 * time.Millisecond,
		WakeTimeout:    2 * time.Second,
		Controller:     ctrl,
		Publisher:      pub,
	})

	// A burst of arrivals against a cold backend.
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, err := m.Admit(testCtx(t), "k")
			if err != nil {
				t.Errorf("admit: %v", err)
				return
			}
			rel()
		}()
	}
	wg.Wait()

	starts, _ := ctrl.counts()
	if starts != 1 {
		t.Fatalf("controller started %d times, want 1", starts)
	}
	if got := len(pub.Named("backend_wake")); got != 1 {
		t.Fatalf("published %d backend_wake events, want 1", got)
	}
	if m.Wakes() != 1 {
		t.Fatalf("wakes = %d, want 1", m.Wakes())
	}
	if m.State() != StateWarm {
		t.Fatalf("state = %s, want warm", m.State())
	}
}

func TestAdmit_WakeErrorFailsBackend(t *testing.T) {
	backend := newFakeBackend(t) // stays unhealthy
	ctrl := &fakeController{startErr: errors.New("spawn refused")}
	m := newTestManager(t, Config{
		MaxConcurrent: 1, MaxQueueDepth: 1,
		HealthURL:      backend.URL(),
		HealthInterval: 20 * time.Millisecond,
		WakeTimeout:    2 * time.Second,
		Controller:     ctrl,
	})

	_, err := m.Admit(testCtx(t), "k")
	if err == nil || !IsBackendUnavailable(err) {
		t.Fatalf("expected backend-unavailable after wake error, got %v", err)
	}
	waitForState(t, m, StateFailed)
}

func TestAdmit_WakeTimeoutFailsBackend(t *testing.T) {
	backend := newFakeBackend(t) // never becomes healthy
	ctrl := &fakeController{}
	m := newTestManager(t, Config{
		MaxConcurrent: 1, MaxQueueDepth: 1,
		HealthURL:      backend.URL(),
		HealthInterval: 20 * time.Millisecond,
		HealthTimeout:  200 * time.Millisecond,
		WakeTimeout:    150 * time.Millisecond,
		Controller:     ctrl,
	})

	_, err := m.Admit(testCtx(t), "k")
	if err == nil || !IsBackendUnavailable(err) {
		t.Fatalf("expected backend-unavailable after wake timeout, got %v", err)
	}
	if m.State() != StateFailed {
		t.Fatalf("state = %s, want failed", m.State())
	}
}
