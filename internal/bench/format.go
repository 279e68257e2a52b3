package bench

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Text renders a report in the human-readable layout.
func (rep *Report) Text() string {
	var b strings.Builder
	if rep.Gateway != nil {
		b.WriteString("=== Gateway Overhead ===\n")
		writeLatencyLine(&b, "/ping", rep.Gateway.Ping)
		writeLatencyLine(&b, "/health", rep.Gateway.Health)
	}
	if rep.Inference != nil {
		inf := rep.Inference
		if rep.Gateway != nil {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== Inference Performance (concurrency=%d, requests=%d) ===\n",
			inf.Concurrency, inf.RequestsTotal)
		fmt.Fprintf(&b, "%-16s mean=%s  p50=%s  p95=%s  p99=%s\n",
			"TTFT:", fmtMs(inf.TTFT.Mean), fmtMs(inf.TTFT.P50), fmtMs(inf.TTFT.P95), fmtMs(inf.TTFT.P99))
		fmt.Fprintf(&b, "%-16s mean=%.1f  p50=%.1f  p95=%.1f  p99=%.1f\n",
			"Tokens/sec:", inf.TokensPerSec.Mean, inf.TokensPerSec.P50, inf.TokensPerSec.P95, inf.TokensPerSec.P99)
		fmt.Fprintf(&b, "%-16s mean=%s  p50=%s  p95=%s  p99=%s\n",
			"Total latency:", fmtS(inf.TotalLatency.Mean), fmtS(inf.TotalLatency.P50), fmtS(inf.TotalLatency.P95), fmtS(inf.TotalLatency.P99))
		fmt.Fprintf(&b, "Requests: %d total, %d success, %d failed\n",
			inf.RequestsTotal, inf.Success, inf.Failed)
		fmt.Fprintf(&b, "Total time: %s\n", fmtS(inf.WallTime))
	}
	return b.String()
}

// JSON renders a report as indented JSON.
func (rep *Report) JSON() (string, error) {
	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func writeLatencyLine(b *strings.Builder, name string, s Stats) {
	fmt.Fprintf(b, "%-8s mean=%s  p50=%s  p95=%s  p99=%s  (n=%d)\n",
		name+":", fmtMs(s.Mean), fmtMs(s.P50), fmtMs(s.P95), fmtMs(s.P99), s.Count)
}

// fmtMs formats seconds as milliseconds with one decimal.
func fmtMs(seconds float64) string {
	return fmt.Sprintf("%.1fms", seconds*1000)
}

// fmtS formats seconds with one decimal.
func fmtS(seconds float64) string {
	return fmt.Sprintf("%.1fs", seconds)
}
