package bench

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config controls a benchmark run.
type Config struct {
	URL         string // base gateway URL, e.g. http://localhost:8000
	APIKey      string // sent as a bearer token when non-empty
	Prompt      string
	MaxTokens   int
	Concurrency int
	Requests    int // measured requests, warmup excluded
	Warmup      int // sequential warmup requests, discarded
	GatewayOnly bool
	Timeout     time.Duration // per-request cap; streams count full duration

	// Warn receives per-request failure notes during the gateway phase.
	// Defaults to io.Discard.
	Warn io.Writer
}

// Report is the aggregated outcome of a run.
type Report struct {
	Gateway   *GatewayReport   `json:"gateway,omitempty"`
	Inference *InferenceReport `json:"inference,omitempty"`
}

// GatewayReport isolates proxy overhead via the operational endpoints.
type GatewayReport struct {
	Ping   Stats `json:"ping"`
	Health Stats `json:"health"`
}

// InferenceReport summarizes the streaming completion phase.
type InferenceReport struct {
	TTFT          Stats   `json:"ttft"`
	TokensPerSec  Stats   `json:"tokens_per_sec"`
	TotalLatency  Stats   `json:"total_latency"`
	RequestsTotal int     `json:"requests_total"`
	Success       int     `json:"requests_success"`
	Failed        int     `json:"requests_failed"`
	WallTime      float64 `json:"wall_time"`
	Concurrency   int     `json:"concurrency"`
}

// Runner executes benchmarks against one gateway.
type Runner struct {
	cfg    Config
	client *http.Client
}

// New builds a Runner, filling config defaults.
func New(cfg Config) *Runner {
	if cfg.Prompt == "" {
		cfg.Prompt = "Write a short poem about the sea"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 128
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Requests <= 0 {
		cfg.Requests = 10
	}
	if cfg.Warmup < 0 {
		cfg.Warmup = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Warn == nil {
		cfg.Warn = io.Discard
	}
	return &Runner{
		cfg: cfg,
		// No client-level timeout: streamed responses may legitimately run
		// long. Per-request contexts carry the cap instead.
		client: &http.Client{},
	}
}

// Run executes the gateway phase and, unless configured gateway-only, the
// inference phase. A canceled context aborts between samples.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}
	gw, err := r.gatewayBench(ctx)
	if err != nil {
		return nil, err
	}
	rep.Gateway = gw
	if !r.cfg.GatewayOnly {
		inf, err := r.inferenceBench(ctx)
		if err != nil {
			return nil, err
		}
		rep.Inference = inf
	}
	return rep, nil
}

// gatewayBench times sequential GETs against /ping and /health. Failed
// requests are warned about and skipped, matching how operators read the
// numbers: the stats describe successful round trips only.
func (r *Runner) gatewayBench(ctx context.Context) (*GatewayReport, error) {
	ping, err := r.timeEndpoint(ctx, "/ping")
	if err != nil {
		return nil, err
	}
	health, err := r.timeEndpoint(ctx, "/health")
	if err != nil {
		return nil, err
	}
	return &GatewayReport{Ping: Summarize(ping), Health: Summarize(health)}, nil
}

func (r *Runner) timeEndpoint(ctx context.Context, path string) ([]float64, error) {
	var latencies []float64
	for i := 0; i < r.cfg.Warmup+r.cfg.Requests; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		elapsed, err := r.getOnce(ctx, path)
		if i < r.cfg.Warmup {
			continue
		}
		if err != nil {
			fmt.Fprintf(r.cfg.Warn, "  [warn] %s request failed: %v\n", path, err)
			continue
		}
		latencies = append(latencies, elapsed.Seconds())
	}
	return latencies, nil
}

func (r *Runner) getOnce(ctx context.Context, path string) (time.Duration, error) {
	rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(rctx, http.MethodGet, r.cfg.URL+path, nil)
	if err != nil {
		return 0, err
	}
	t0 := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	elapsed := time.Since(t0)
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return elapsed, nil
}

// inferenceBench runs sequential warmups, then the measured requests under
// an errgroup bounded at the configured concurrency.
func (r *Runner) inferenceBench(ctx context.Context) (*InferenceReport, error) {
	for i := 0; i < r.cfg.Warmup; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.inferOnce(ctx)
	}

	results := make([]sample, r.cfg.Requests)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	start := time.Now()
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.inferOnce(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	wall := time.Since(start)

	rep := &InferenceReport{
		RequestsTotal: r.cfg.Requests,
		WallTime:      wall.Seconds(),
		Concurrency:   r.cfg.Concurrency,
	}
	var ttfts, tps, latencies []float64
	for _, s := range results {
		if s.err != nil {
			rep.Failed++
			continue
		}
		rep.Success++
		latencies = append(latencies, s.latency.Seconds())
		if s.gotFirst {
			ttfts = append(ttfts, s.ttft.Seconds())
		}
		if s.tokens > 0 && s.latency > 0 {
			tps = append(tps, float64(s.tokens)/s.latency.Seconds())
		}
	}
	rep.TTFT = Summarize(ttfts)
	rep.TokensPerSec = Summarize(tps)
	rep.TotalLatency = Summarize(latencies)
	return rep, nil
}

type sample struct {
	ttft     time.Duration
	gotFirst bool
	latency  time.Duration
	tokens   int
	err      error
}

// chatRequest is the streaming completion payload sent to the gateway.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
	Stream    bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// inferOnce sends one streaming chat completion and measures it. The first
// delta with content marks TTFT; the stream is consumed to [DONE] or EOF
// for the total latency.
func (r *Runner) inferOnce(ctx context.Context) sample {
	body, err := json.Marshal(chatRequest{
		Model:     "default",
		Messages:  []chatMessage{{Role: "user", Content: r.cfg.Prompt}},
		MaxTokens: r.cfg.MaxTokens,
		Stream:    true,
	})
	if err != nil {
		return sample{err: err}
	}
	rctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(rctx, http.MethodPost, r.cfg.URL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return sample{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	t0 := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return sample{err: err, latency: time.Since(t0)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return sample{
			err:     fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
			latency: time.Since(t0),
		}
	}

	var (
		first time.Time
		text  strings.Builder
	)
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		content, done := parseSSELine(sc.Text())
		if done {
			break
		}
		if content == "" {
			continue
		}
		if first.IsZero() {
			first = time.Now()
		}
		text.WriteString(content)
	}
	s := sample{
		latency: time.Since(t0),
		tokens:  CountTokensApprox(text.String()),
		err:     sc.Err(),
	}
	if !first.IsZero() {
		s.gotFirst = true
		s.ttft = first.Sub(t0)
	}
	return s
}
