package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gatewayd/internal/httpapi"
	"gatewayd/internal/keystore"
	"gatewayd/internal/manager"
	"gatewayd/internal/proxy"
	"gatewayd/internal/registry"
)

const testModelID = "tiny-test-model"

// fakeBackend stands in for the inference server. Its health endpoint
// follows the up flag; every other path streams a short SSE completion and
// records the forwarded request headers.
type fakeBackend struct {
	srv *httptest.Server
	up  atomic.Bool

	started atomic.Int64 // completion requests that entered the handler

	mu     sync.Mutex
	auths  []string      // Authorization header as the backend saw it
	hosts  []string      // X-Forwarded-Host
	reqIDs []string      // X-Request-Id
	gate   chan struct{} // when set, completions block until closed
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if f.up.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.started.Add(1)
		f.mu.Lock()
		f.auths = append(f.auths, r.Header.Get("Authorization"))
		f.hosts = append(f.hosts, r.Header.Get("X-Forwarded-Host"))
		f.reqIDs = append(f.reqIDs, r.Header.Get("X-Request-Id"))
		gate := f.gate
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		for _, tok := range []string{"green", " tide", " rises"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", tok)
			if fl != nil {
				fl.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// block makes subsequent completion requests hang; the returned func lets
// them proceed.
func (f *fakeBackend) block() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *fakeBackend) seenAuths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.auths))
	copy(out, f.auths)
	return out
}

// fakeController wires wake/stop signals to the fake backend's up flag.
// broken simulates a backend that never comes up.
type fakeController struct {
	backend *fakeBackend
	broken  bool
	starts  atomic.Int64
	stops   atomic.Int64
}

func (c *fakeController) Start(ctx context.Context) error {
	c.starts.Add(1)
	if !c.broken {
		c.backend.up.Store(true)
	}
	return nil
}

func (c *fakeController) Stop(ctx context.Context) error {
	c.stops.Add(1)
	c.backend.up.Store(false)
	return nil
}

// stackOpts tunes the assembled gateway; zero values pick test defaults.
type stackOpts struct {
	maxConcurrent int
	maxQueueDepth int
	queueWait     time.Duration
	idleDrain     time.Duration
	drainGrace    time.Duration
	wakeTimeout   time.Duration
	maxBody       int64
	authDisabled  bool
	brokenBackend bool
}

// stack is a full in-process gateway: fake backend, lifecycle manager,
// keystore with one issued key, forwarding proxy and the HTTP mux.
type stack struct {
	srv     *httptest.Server
	backend *fakeBackend
	ctrl    *fakeController
	mgr     *manager.Manager
	keys    *keystore.Store
	secret  string
	events  *manager.MemoryPublisher
}

func startStack(t *testing.T, opts stackOpts) *stack {
	t.Helper()
	if opts.maxConcurrent == 0 {
		opts.maxConcurrent = 2
	}
	if opts.maxQueueDepth == 0 {
		opts.maxQueueDepth = 8
	}
	if opts.queueWait == 0 {
		opts.queueWait = 2 * time.Second
	}
	if opts.wakeTimeout == 0 {
		opts.wakeTimeout = 5 * time.Second
	}
	if opts.drainGrace == 0 {
		opts.drainGrace = 100 * time.Millisecond
	}

	backend := newFakeBackend(t)
	ctrl := &fakeController{backend: backend, broken: opts.brokenBackend}
	events := manager.NewMemoryPublisher()

	mgr := manager.NewWithConfig(manager.Config{
		MaxConcurrent:  opts.maxConcurrent,
		MaxQueueDepth:  opts.maxQueueDepth,
		QueueWait:      opts.queueWait,
		IdleDrain:      opts.idleDrain,
		DrainGrace:     opts.drainGrace,
		WakeTimeout:    opts.wakeTimeout,
		HealthURL:      backend.srv.URL + "/health",
		HealthTimeout:  500 * time.Millisecond,
		HealthInterval: 50 * time.Millisecond,
		Controller:     ctrl,
		Publisher:      events,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = mgr.Close(ctx)
	})

	keys, err := keystore.Open(filepath.Join(t.TempDir(), "api_keys.txt"))
	if err != nil {
		t.Fatalf("open keystore: %v", err)
	}
	secret, err := keys.Issue("e2e-client", 0, time.Time{})
	if err != nil {
		t.Fatalf("issue key: %v", err)
	}

	p, err := proxy.New(backend.srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("build proxy: %v", err)
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Admitter:     mgr,
		Keys:         keys,
		Proxy:        p,
		Models:       registry.Static(testModelID),
		ModelID:      testModelID,
		AuthEnabled:  !opts.authDisabled,
		MaxBodyBytes: opts.maxBody,
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &stack{
		srv:     srv,
		backend: backend,
		ctrl:    ctrl,
		mgr:     mgr,
		keys:    keys,
		secret:  secret,
		events:  events,
	}
}

// warmUp performs one authenticated completion so subsequent requests hit a
// warm backend.
func (s *stack) warmUp(t *testing.T) {
	t.Helper()
	resp, body := s.postCompletion(t, s.secret, `{"prompt":"warm"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("warmup status=%d body=%s", resp.StatusCode, body)
	}
}

func (s *stack) postCompletion(t *testing.T, secret, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		s.srv.URL+"/v1/chat/completions", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpGet(t *testing.T, url string, header http.Header) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func authHeader(secret string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + secret}}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
