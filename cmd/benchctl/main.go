// Command benchctl benchmarks a running gateway: proxy overhead via the
// operational endpoints, and end-to-end streaming inference performance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gatewayd/internal/bench"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "benchctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg     bench.Config
		timeout time.Duration
		output  string
	)
	root := &cobra.Command{
		Use:           "benchctl",
		Short:         "Benchmark a gatewayd instance",
		Example:       "  benchctl --url http://localhost:8000 --api-key sk-... --concurrency 4 --requests 50",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output format %q (want text or json)", output)
			}
			cfg.Timeout = timeout
			cfg.Warn = os.Stderr

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rep, err := bench.New(cfg).Run(ctx)
			if err != nil {
				return err
			}
			if output == "json" {
				out, err := rep.JSON()
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}
			fmt.Print(rep.Text())
			return nil
		},
	}
	root.Flags().StringVar(&cfg.URL, "url", "", "gateway base URL (required)")
	root.Flags().StringVar(&cfg.APIKey, "api-key", "", "API key for authenticated requests")
	root.Flags().StringVar(&cfg.Prompt, "prompt", "", "prompt sent to the model")
	root.Flags().IntVar(&cfg.MaxTokens, "max-tokens", 128, "max_tokens per request")
	root.Flags().IntVar(&cfg.Concurrency, "concurrency", 1, "concurrent inference requests")
	root.Flags().IntVar(&cfg.Requests, "requests", 10, "measured requests per phase")
	root.Flags().IntVar(&cfg.Warmup, "warmup", 1, "warmup requests, excluded from stats")
	root.Flags().DurationVar(&timeout, "timeout", 120*time.Second, "per-request timeout")
	root.Flags().StringVar(&output, "output", "text", "output format: text or json")
	root.Flags().BoolVar(&cfg.GatewayOnly, "gateway-only", false, "skip the inference phase")
	_ = root.MarkFlagRequired("url")
	return root
}
