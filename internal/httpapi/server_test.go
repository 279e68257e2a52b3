package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gatewayd/internal/keystore"
	"gatewayd/pkg/types"
)

type mockAdmitter struct {
	mu       sync.Mutex
	admitErr error
	admitted []string
	releases int
	status   types.StatusResponse
}

func (m *mockAdmitter) Admit(ctx context.Context, keyID string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.admitErr != nil {
		return nil, m.admitErr
	}
	m.admitted = append(m.admitted, keyID)
	return func() { m.mu.Lock(); m.releases++; m.mu.Unlock() }, nil
}

func (m *mockAdmitter) Status() types.StatusResponse { return m.status }

type mockKeys struct {
	mu   sync.Mutex
	info keystore.Info
	err  error
	used []string
}

func (m *mockKeys) Authenticate(token string) (keystore.Info, error) {
	if m.err != nil {
		return keystore.Info{}, m.err
	}
	return m.info, nil
}

func (m *mockKeys) RecordUse(id string) {
	m.mu.Lock()
	m.used = append(m.used, id)
	m.mu.Unlock()
}

func testDeps(adm *mockAdmitter, keys *mockKeys) Deps {
	return Deps{
		Admitter: adm,
		Keys:     keys,
		Proxy: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}),
		Models:  []types.Model{{ID: "default", Object: "model", OwnedBy: "gatewayd"}},
		ModelID: "default",
	}
}

func TestPing(t *testing.T) {
	r := NewMux(testDeps(&mockAdmitter{}, &mockKeys{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestHealthVerdicts(t *testing.T) {
	cases := map[string]string{
		"warm":     "healthy",
		"warming":  "starting",
		"cold":     "idle",
		"draining": "idle",
		"failed":   "degraded",
	}
	for state, want := range cases {
		adm := &mockAdmitter{status: types.StatusResponse{State: state}}
		r := NewMux(testDeps(adm, &mockKeys{}))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("state=%s status=%d", state, w.Code)
		}
		var body types.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if body.Status != want || body.Backend != state {
			t.Fatalf("state=%s got status=%q backend=%q", state, body.Status, body.Backend)
		}
		if body.Model != "default" {
			t.Fatalf("model=%q", body.Model)
		}
	}
}

func TestStatusHandler(t *testing.T) {
	adm := &mockAdmitter{status: types.StatusResponse{State: "warm", Inflight: 2, MaxConcurrent: 4}}
	r := NewMux(testDeps(adm, &mockKeys{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Inflight != 2 || body.MaxConcurrent != 4 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Model != "default" {
		t.Fatalf("model not injected: %+v", body)
	}
}

func TestModelsHandler(t *testing.T) {
	r := NewMux(testDeps(&mockAdmitter{}, &mockKeys{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Object != "list" || len(body.Data) != 1 || body.Data[0].ID != "default" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestProxyPassThrough(t *testing.T) {
	adm := &mockAdmitter{}
	keys := &mockKeys{}
	r := NewMux(testDeps(adm, keys))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"default"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("body=%q", w.Body.String())
	}
	adm.mu.Lock()
	defer adm.mu.Unlock()
	if len(adm.admitted) != 1 || adm.admitted[0] != anonymousKey {
		t.Fatalf("admitted=%v", adm.admitted)
	}
	if adm.releases != 1 {
		t.Fatalf("releases=%d", adm.releases)
	}
	keys.mu.Lock()
	defer keys.mu.Unlock()
	if len(keys.used) != 1 || keys.used[0] != anonymousKey {
		t.Fatalf("used=%v", keys.used)
	}
}

func TestProxyBodyTooLarge(t *testing.T) {
	adm := &mockAdmitter{}
	d := testDeps(adm, &mockKeys{})
	d.MaxBodyBytes = 32
	r := NewMux(d)
	w := httptest.NewRecorder()
	big := strings.Repeat("a", 100)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(big))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Error.Code != "request_too_large" {
		t.Fatalf("code=%q", body.Error.Code)
	}
	adm.mu.Lock()
	defer adm.mu.Unlock()
	if len(adm.admitted) != 0 {
		t.Fatalf("oversized request reached admission: %v", adm.admitted)
	}
}

func TestProxyUnknownPathForwarded(t *testing.T) {
	// Paths the gateway does not own still reach the backend untouched.
	adm := &mockAdmitter{}
	r := NewMux(testDeps(adm, &mockKeys{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/embeddings", strings.NewReader(`{}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	adm.mu.Lock()
	defer adm.mu.Unlock()
	if len(adm.admitted) != 1 {
		t.Fatalf("admitted=%v", adm.admitted)
	}
}

func TestCORSPreflightBypassesAuth(t *testing.T) {
	d := testDeps(&mockAdmitter{}, &mockKeys{err: keystore.ErrUnknownKey()})
	d.AuthEnabled = true
	r := NewMux(d)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/completions", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("preflight status=%d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := NewMux(testDeps(&mockAdmitter{}, &mockKeys{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("nosniff header=%q", got)
	}
}
