package manager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend is an httptest server standing in for the inference backend's
// health endpoint. Healthiness is toggled by tests (or by fakeController).
type fakeBackend struct {
	srv     *httptest.Server
	healthy atomic.Bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) SetHealthy(v bool) { b.healthy.Store(v) }
func (b *fakeBackend) URL() string       { return b.srv.URL }

// fakeController counts start/stop signals and optionally flips a
// fakeBackend so a wake actually produces a healthy backend.
type fakeController struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	onStart  func()
	onStop   func()
}

func (c *fakeController) Start(ctx context.Context) error {
	c.mu.Lock()
	c.starts++
	err := c.startErr
	fn := c.onStart
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return err
}

func (c *fakeController) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.stops++
	fn := c.onStop
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (c *fakeController) counts() (starts, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts, c.stops
}

// managedBackend wires a controller to a backend so Start/Stop toggle health,
// approximating a real managed process.
func managedBackend(t *testing.T) (*fakeBackend, *fakeController) {
	t.Helper()
	b := newFakeBackend(t)
	c := &fakeController{
		onStart: func() { b.SetHealthy(true) },
		onStop:  func() { b.SetHealthy(false) },
	}
	return b, c
}

// newTestManager constructs a Manager and closes it on test cleanup.
func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewWithConfig(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Close(ctx)
	})
	return m
}

// forceWarm puts the manager straight into the warm state, bypassing the
// wake path, for tests that only exercise admission.
func forceWarm(m *Manager) {
	m.mu.Lock()
	m.warmLocked()
	m.mu.Unlock()
}

func waitForState(t *testing.T, m *Manager, want BackendState) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, still %s", want, m.State())
}

func waitForEvent(t *testing.T, pub *MemoryPublisher, name string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(pub.Named(name)) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("event %q never published; got %+v", name, pub.Events())
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}
