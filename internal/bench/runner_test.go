package bench

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeGateway serves the operational endpoints plus a canned SSE stream.
type fakeGateway struct {
	completions atomic.Int64
	pings       atomic.Int64
	lastAuth    atomic.Value // string
	failInfer   bool
}

func (f *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		f.pings.Add(1)
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"healthy"}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		f.completions.Add(1)
		f.lastAuth.Store(r.Header.Get("Authorization"))
		if f.failInfer {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"backend unavailable"}}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{"All", " the", " waves"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", tok)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	return mux
}

func TestRunGatewayOnly(t *testing.T) {
	fake := &fakeGateway{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	r := New(Config{
		URL:         srv.URL,
		Requests:    3,
		Warmup:      1,
		GatewayOnly: true,
	})
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Inference != nil {
		t.Fatal("gateway-only run produced an inference report")
	}
	if rep.Gateway == nil {
		t.Fatal("no gateway report")
	}
	if rep.Gateway.Ping.Count != 3 {
		t.Errorf("ping count = %d, want 3", rep.Gateway.Ping.Count)
	}
	if rep.Gateway.Health.Count != 3 {
		t.Errorf("health count = %d, want 3", rep.Gateway.Health.Count)
	}
	// Warmup hits the endpoint but stays out of the stats.
	if got := fake.pings.Load(); got != 4 {
		t.Errorf("ping requests served = %d, want 4", got)
	}
	if fake.completions.Load() != 0 {
		t.Errorf("completions served = %d, want 0", fake.completions.Load())
	}
}

func TestRunInference(t *testing.T) {
	fake := &fakeGateway{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	r := New(Config{
		URL:         srv.URL,
		APIKey:      "secret",
		Requests:    4,
		Warmup:      1,
		Concurrency: 2,
		Timeout:     5 * time.Second,
	})
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	inf := rep.Inference
	if inf == nil {
		t.Fatal("no inference report")
	}
	if inf.RequestsTotal != 4 || inf.Success != 4 || inf.Failed != 0 {
		t.Fatalf("counts = %d/%d/%d, want 4/4/0", inf.RequestsTotal, inf.Success, inf.Failed)
	}
	if inf.Concurrency != 2 {
		t.Errorf("concurrency = %d, want 2", inf.Concurrency)
	}
	if inf.TTFT.Count != 4 {
		t.Errorf("ttft samples = %d, want 4", inf.TTFT.Count)
	}
	if inf.TokensPerSec.Count != 4 {
		t.Errorf("tokens/sec samples = %d, want 4", inf.TokensPerSec.Count)
	}
	if inf.TotalLatency.Count != 4 {
		t.Errorf("latency samples = %d, want 4", inf.TotalLatency.Count)
	}
	if inf.WallTime <= 0 {
		t.Error("wall time not recorded")
	}
	if got := fake.completions.Load(); got != 5 {
		t.Errorf("completion requests served = %d, want 5 (1 warmup + 4 measured)", got)
	}
	if auth, _ := fake.lastAuth.Load().(string); auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", auth)
	}
}

func TestRunInferenceFailuresCounted(t *testing.T) {
	fake := &fakeGateway{failInfer: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	r := New(Config{URL: srv.URL, Requests: 2, Warmup: 0, Timeout: 5 * time.Second})
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	inf := rep.Inference
	if inf.Success != 0 || inf.Failed != 2 {
		t.Fatalf("success/failed = %d/%d, want 0/2", inf.Success, inf.Failed)
	}
	if inf.TTFT.Count != 0 || inf.TotalLatency.Count != 0 {
		t.Error("failed requests leaked into the stats")
	}
}

func TestGatewayBenchWarnsOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "pong")
	}))
	defer srv.Close()

	var warn bytes.Buffer
	r := New(Config{
		URL:         srv.URL,
		Requests:    2,
		Warmup:      0,
		GatewayOnly: true,
		Warn:        &warn,
	})
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Gateway.Ping.Count != 2 {
		t.Errorf("ping count = %d, want 2", rep.Gateway.Ping.Count)
	}
	if rep.Gateway.Health.Count != 0 {
		t.Errorf("health count = %d, want 0", rep.Gateway.Health.Count)
	}
	if !strings.Contains(warn.String(), "/health request failed") {
		t.Errorf("warn output missing failure note: %q", warn.String())
	}
}

func TestRunCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "pong")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(Config{URL: srv.URL, GatewayOnly: true})
	if _, err := r.Run(ctx); err == nil {
		t.Fatal("Run with canceled context did not error")
	}
}

func TestReportText(t *testing.T) {
	rep := &Report{
		Gateway: &GatewayReport{
			Ping:   Summarize([]float64{0.001, 0.002}),
			Health: Summarize([]float64{0.003}),
		},
		Inference: &InferenceReport{
			TTFT:          Summarize([]float64{0.120}),
			TokensPerSec:  Summarize([]float64{42.0}),
			TotalLatency:  Summarize([]float64{3.2}),
			RequestsTotal: 10,
			Success:       9,
			Failed:        1,
			WallTime:      18.5,
			Concurrency:   4,
		},
	}
	out := rep.Text()
	for _, want := range []string{
		"=== Gateway Overhead ===",
		"/ping:",
		"/health:",
		"=== Inference Performance (concurrency=4, requests=10) ===",
		"TTFT:",
		"Tokens/sec:",
		"Requests: 10 total, 9 success, 1 failed",
		"Total time: 18.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestReportJSON(t *testing.T) {
	rep := &Report{Gateway: &GatewayReport{Ping: Summarize([]float64{0.001})}}
	out, err := rep.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(out, `"gateway"`) || !strings.Contains(out, `"p50"`) {
		t.Errorf("unexpected JSON: %s", out)
	}
	if strings.Contains(out, `"inference"`) {
		t.Error("omitempty inference section serialized")
	}
}
