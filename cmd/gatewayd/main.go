package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gatewayd/internal/config"
	"gatewayd/internal/httpapi"
	"gatewayd/internal/keystore"
	"gatewayd/internal/limits"
	"gatewayd/internal/manager"
	"gatewayd/internal/proxy"
	"gatewayd/internal/registry"
)

// shutdownGrace bounds how long in-flight streams may finish after SIGTERM.
const shutdownGrace = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gatewayd:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile     string
		corsOrigins string
		flagCfg     = config.Default()
	)
	cmd := &cobra.Command{
		Use:           "gatewayd",
		Short:         "HTTP gateway for a single GPU-bound inference backend",
		Long:          "gatewayd fronts one model inference backend with API-key auth,\nbounded admission, cold-start coordination and Prometheus metrics.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Flags(), cfgFile, flagCfg, splitCSV(corsOrigins))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "config file (.yaml/.json/.toml)")
	f.IntVar(&flagCfg.GatewayPort, "port", flagCfg.GatewayPort, "gateway listen port")
	f.StringVar(&flagCfg.BackendHost, "backend-host", flagCfg.BackendHost, "backend host")
	f.IntVar(&flagCfg.BackendPort, "backend-port", flagCfg.BackendPort, "backend inference port")
	f.IntVar(&flagCfg.HealthPort, "health-port", flagCfg.HealthPort, "backend health-check port")
	f.IntVar(&flagCfg.MaxConcurrent, "max-concurrent", flagCfg.MaxConcurrent, "in-flight backend requests")
	f.IntVar(&flagCfg.MaxQueueDepth, "max-queue-depth", flagCfg.MaxQueueDepth, "waiting requests bound")
	f.IntVar(&flagCfg.QueueWaitSec, "queue-wait", flagCfg.QueueWaitSec, "queue wait deadline, seconds")
	f.IntVar(&flagCfg.IdleDrainSec, "idle-drain", flagCfg.IdleDrainSec, "idle seconds before draining the backend (0 disables)")
	f.IntVar(&flagCfg.DrainGraceSec, "drain-grace", flagCfg.DrainGraceSec, "draining seconds before scale to zero")
	f.IntVar(&flagCfg.WakeTimeoutSec, "wake-timeout", flagCfg.WakeTimeoutSec, "warming budget, seconds")
	f.IntVar(&flagCfg.RequestTimeoutSec, "request-timeout", flagCfg.RequestTimeoutSec, "backend response-header timeout, seconds")
	f.BoolVar(&flagCfg.AuthEnabled, "auth", flagCfg.AuthEnabled, "require API keys")
	f.StringVar(&flagCfg.DataDir, "data-dir", flagCfg.DataDir, "data directory")
	f.StringVar(&flagCfg.KeysFile, "keys-file", flagCfg.KeysFile, "API key file (default <data-dir>/api_keys.txt)")
	f.StringVar(&flagCfg.ModelID, "model-id", flagCfg.ModelID, "model identity for listings and health")
	f.StringVar(&flagCfg.ModelDir, "model-dir", flagCfg.ModelDir, "directory of *.gguf files to advertise (optional)")
	f.StringVar(&flagCfg.BackendCommand, "backend-command", flagCfg.BackendCommand, "command that starts the backend (empty: externally supervised)")
	f.Int64Var(&flagCfg.MaxBodyBytes, "max-body-bytes", flagCfg.MaxBodyBytes, "request body cap in bytes (0 disables)")
	f.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "log level (trace/debug/info/warn/error)")
	f.StringVar(&corsOrigins, "cors-origins", "", "comma-separated allowed CORS origins (default *)")
	return cmd
}

func run(fs *pflag.FlagSet, cfgFile string, flagCfg config.Config, corsOrigins []string) error {
	cfg := config.Default()
	if cfgFile != "" {
		if err := config.Load(cfgFile, &cfg); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	warnings, err := config.ApplyEnv(&cfg)
	if err != nil {
		return err
	}
	applyFlagOverrides(fs, &cfg, flagCfg)
	if err := cfg.Resolve(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	httpapi.SetLogger(logger)
	for _, w := range warnings {
		logger.Warn().Msg(w)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.KeysFile), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	keys, err := keystore.Open(cfg.KeysFile)
	if err != nil {
		return fmt.Errorf("open key store: %w", err)
	}
	if cfg.AuthEnabled && keys.Len() == 0 {
		logger.Warn().Str("keys_file", cfg.KeysFile).Msg("auth enabled but no keys issued, all requests will be rejected")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := keys.Watch(rootCtx); err != nil {
			logger.Warn().Err(err).Msg("key file watch stopped")
		}
	}()

	ctrl := manager.NoopController()
	if cfg.BackendCommand != "" {
		ctrl, err = manager.NewExecController(cfg.BackendCommand)
		if err != nil {
			return fmt.Errorf("backend command: %w", err)
		}
	}
	if report := manager.SanityCheck(cfg.BackendCommand); report.Managed && !report.CommandFound {
		logger.Warn().Str("command", cfg.BackendCommand).Str("reason", report.Error).
			Msg("backend command not resolvable, wakes will fail")
	}

	mgr := manager.NewWithConfig(manager.Config{
		MaxConcurrent:  cfg.MaxConcurrent,
		MaxQueueDepth:  cfg.MaxQueueDepth,
		QueueWait:      cfg.QueueWait(),
		PerKeyLimit:    cfg.MaxConcurrentPerKey,
		IdleDrain:      cfg.IdleDrain(),
		DrainGrace:     cfg.DrainGrace(),
		WakeTimeout:    cfg.WakeTimeout(),
		HealthURL:      cfg.HealthURL(),
		HealthTimeout:  cfg.HealthTimeout(),
		HealthInterval: cfg.HealthInterval(),
		Controller:     ctrl,
		Publisher:      logPublisher{log: logger},
	})

	px, err := proxy.New(cfg.BackendURL(), cfg.RequestTimeout())
	if err != nil {
		return fmt.Errorf("proxy: %w", err)
	}

	models, err := registry.Discover(cfg.ModelDir, cfg.ModelID)
	if err != nil {
		logger.Warn().Err(err).Str("model_dir", cfg.ModelDir).Msg("model directory scan failed, serving configured id")
	}

	var window *limits.Window
	if cfg.MaxRequestsPerMin > 0 {
		window = limits.NewWindow(cfg.MaxRequestsPerMin)
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Admitter:     mgr,
		Keys:         keys,
		Proxy:        px,
		Models:       models,
		ModelID:      cfg.ModelID,
		AuthEnabled:  cfg.AuthEnabled,
		RateLimit:    window,
		MaxBodyBytes: cfg.MaxBodyBytes,
		CORSOrigins:  corsOrigins,
	})

	// Streams and queued waiters join this context; canceling it cuts them
	// loose when graceful shutdown runs out of patience.
	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.ListenAddr()).
			Str("backend", cfg.BackendURL()).
			Str("model", cfg.ModelID).
			Bool("auth", cfg.AuthEnabled).
			Int("max_concurrent", cfg.MaxConcurrent).
			Int("max_queue_depth", cfg.MaxQueueDepth).
			Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-rootCtx.Done():
	}

	logger.Info().Msg("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown incomplete, dropping remaining streams")
		baseCancel()
	}
	if err := mgr.Close(shCtx); err != nil {
		logger.Warn().Err(err).Msg("manager close")
	}
	return nil
}

// applyFlagOverrides copies explicitly set flag values over cfg, so flags
// outrank both the config file and the environment.
func applyFlagOverrides(fs *pflag.FlagSet, cfg *config.Config, flagCfg config.Config) {
	actions := map[string]func(){
		"port":            func() { cfg.GatewayPort = flagCfg.GatewayPort },
		"backend-host":    func() { cfg.BackendHost = flagCfg.BackendHost },
		"backend-port":    func() { cfg.BackendPort = flagCfg.BackendPort },
		"health-port":     func() { cfg.HealthPort = flagCfg.HealthPort },
		"max-concurrent":  func() { cfg.MaxConcurrent = flagCfg.MaxConcurrent },
		"max-queue-depth": func() { cfg.MaxQueueDepth = flagCfg.MaxQueueDepth },
		"queue-wait":      func() { cfg.QueueWaitSec = flagCfg.QueueWaitSec },
		"idle-drain":      func() { cfg.IdleDrainSec = flagCfg.IdleDrainSec },
		"drain-grace":     func() { cfg.DrainGraceSec = flagCfg.DrainGraceSec },
		"wake-timeout":    func() { cfg.WakeTimeoutSec = flagCfg.WakeTimeoutSec },
		"request-timeout": func() { cfg.RequestTimeoutSec = flagCfg.RequestTimeoutSec },
		"auth":            func() { cfg.AuthEnabled = flagCfg.AuthEnabled },
		"data-dir":        func() { cfg.DataDir = flagCfg.DataDir },
		"keys-file":       func() { cfg.KeysFile = flagCfg.KeysFile },
		"model-id":        func() { cfg.ModelID = flagCfg.ModelID },
		"model-dir":       func() { cfg.ModelDir = flagCfg.ModelDir },
		"backend-command": func() { cfg.BackendCommand = flagCfg.BackendCommand },
		"max-body-bytes":  func() { cfg.MaxBodyBytes = flagCfg.MaxBodyBytes },
		"log-level":       func() { cfg.LogLevel = flagCfg.LogLevel },
	}
	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := actions[f.Name]; ok {
			apply()
		}
	})
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("service", "gatewayd").Logger()
}

// logPublisher forwards lifecycle events to the structured log.
type logPublisher struct {
	log zerolog.Logger
}

func (p logPublisher) Publish(ev manager.Event) {
	e := p.log.Info().Str("event", ev.Name)
	for k, v := range ev.Fields {
		e = e.Interface(k, v)
	}
	e.Msg("lifecycle")
}
