package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	"gatewayd/internal/common/fsutil"
)

// Config holds every runtime tunable for the gateway. Timeout-style fields
// are plain seconds so environment values stay bare numbers
// (REQUEST_TIMEOUT=300), matching the deployment surface this replaces.
type Config struct {
	GatewayPort int    `json:"gateway_port" yaml:"gateway_port" toml:"gateway_port" env:"GATEWAY_PORT"`
	BackendHost string `json:"backend_host" yaml:"backend_host" toml:"backend_host" env:"BACKEND_HOST"`
	BackendPort int    `json:"backend_port" yaml:"backend_port" toml:"backend_port" env:"PORT_BACKEND"`
	HealthPort  int    `json:"health_port" yaml:"health_port" toml:"health_port" env:"PORT_HEALTH"`

	MaxConcurrent       int `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent" env:"MAX_CONCURRENT"`
	MaxQueueDepth       int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth" env:"MAX_QUEUE_DEPTH"`
	QueueWaitSec        int `json:"queue_wait_timeout" yaml:"queue_wait_timeout" toml:"queue_wait_timeout" env:"QUEUE_WAIT_TIMEOUT"`
	IdleDrainSec        int `json:"idle_drain_timeout" yaml:"idle_drain_timeout" toml:"idle_drain_timeout" env:"IDLE_DRAIN_TIMEOUT"`
	DrainGraceSec       int `json:"drain_grace" yaml:"drain_grace" toml:"drain_grace" env:"DRAIN_GRACE"`
	WakeTimeoutSec      int `json:"wake_timeout" yaml:"wake_timeout" toml:"wake_timeout" env:"WAKE_TIMEOUT"`
	RequestTimeoutSec   int `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout" env:"REQUEST_TIMEOUT"`
	HealthTimeoutSec    int `json:"health_timeout" yaml:"health_timeout" toml:"health_timeout" env:"HEALTH_TIMEOUT"`
	HealthIntervalSec   int `json:"health_interval" yaml:"health_interval" toml:"health_interval" env:"HEALTH_INTERVAL"`
	MaxConcurrentPerKey int `json:"max_concurrent_per_key" yaml:"max_concurrent_per_key" toml:"max_concurrent_per_key" env:"MAX_CONCURRENT_PER_KEY"`
	MaxRequestsPerMin   int `json:"max_requests_per_minute" yaml:"max_requests_per_minute" toml:"max_requests_per_minute" env:"MAX_REQUESTS_PER_MINUTE"`

	AuthEnabled    bool   `json:"auth_enabled" yaml:"auth_enabled" toml:"auth_enabled" env:"AUTH_ENABLED"`
	DataDir        string `json:"data_dir" yaml:"data_dir" toml:"data_dir" env:"DATA_DIR"`
	KeysFile       string `json:"keys_file" yaml:"keys_file" toml:"keys_file" env:"AUTH_KEYS_FILE"`
	ModelID        string `json:"model_id" yaml:"model_id" toml:"model_id" env:"MODEL_ID"`
	ModelDir       string `json:"model_dir" yaml:"model_dir" toml:"model_dir" env:"MODEL_DIR"`
	BackendCommand string `json:"backend_command" yaml:"backend_command" toml:"backend_command" env:"BACKEND_COMMAND"`
	MaxBodyBytes   int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	LogLevel       string `json:"log_level" yaml:"log_level" toml:"log_level" env:"GATEWAY_LOG_LEVEL"`
}

// Default returns the documented defaults for every option.
func Default() Config {
	return Config{
		GatewayPort:         8000,
		BackendHost:         "127.0.0.1",
		BackendPort:         8080,
		HealthPort:          8001,
		MaxConcurrent:       1,
		MaxQueueDepth:       32,
		QueueWaitSec:        30,
		IdleDrainSec:        600,
		DrainGraceSec:       15,
		WakeTimeoutSec:      120,
		RequestTimeoutSec:   300,
		HealthTimeoutSec:    2,
		HealthIntervalSec:   5,
		MaxConcurrentPerKey: 0,
		MaxRequestsPerMin:   100,
		AuthEnabled:         true,
		DataDir:             "/data",
		KeysFile:            "",
		ModelID:             "default",
		ModelDir:            "",
		BackendCommand:      "",
		MaxBodyBytes:        10 << 20,
		LogLevel:            "info",
	}
}

// ApplyEnv overlays environment variables onto cfg. Unset variables leave
// the existing values untouched. It also honors two legacy variables:
// PORT as a fallback for GATEWAY_PORT, and the deprecated BACKEND_PORT as a
// fallback for PORT_BACKEND. Returned warnings should be logged by the
// caller.
func ApplyEnv(cfg *Config) ([]string, error) {
	var warnings []string
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if os.Getenv("GATEWAY_PORT") == "" {
		if v := os.Getenv("PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("parse PORT: %w", err)
			}
			cfg.GatewayPort = p
		}
	}
	if os.Getenv("PORT_BACKEND") == "" {
		if v := os.Getenv("BACKEND_PORT"); v != "" {
			warnings = append(warnings, "BACKEND_PORT is deprecated, use PORT_BACKEND instead")
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("parse BACKEND_PORT: %w", err)
			}
			cfg.BackendPort = p
		}
	}
	return warnings, nil
}

// Resolve expands '~' in path options and derives KeysFile from DataDir
// when unset. Call after all overlay layers are applied.
func (c *Config) Resolve() error {
	dir, err := fsutil.ExpandHome(c.DataDir)
	if err != nil {
		return err
	}
	c.DataDir = dir
	if c.KeysFile == "" {
		c.KeysFile = filepath.Join(c.DataDir, "api_keys.txt")
	}
	kf, err := fsutil.ExpandHome(c.KeysFile)
	if err != nil {
		return err
	}
	c.KeysFile = kf
	if c.ModelDir != "" {
		md, err := fsutil.ExpandHome(c.ModelDir)
		if err != nil {
			return err
		}
		c.ModelDir = md
	}
	return nil
}

// Validate rejects configurations the gateway cannot run with.
func (c Config) Validate() error {
	checkPort := func(name string, p int) error {
		if p < 1 || p > 65535 {
			return fmt.Errorf("%s must be in 1..65535, got %d", name, p)
		}
		return nil
	}
	if err := checkPort("gateway_port", c.GatewayPort); err != nil {
		return err
	}
	if err := checkPort("backend_port", c.BackendPort); err != nil {
		return err
	}
	if err := checkPort("health_port", c.HealthPort); err != nil {
		return err
	}
	if c.BackendHost == "" {
		return fmt.Errorf("backend_host must not be empty")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be >= 1, got %d", c.MaxConcurrent)
	}
	if c.MaxQueueDepth < 0 {
		return fmt.Errorf("max_queue_depth must be >= 0, got %d", c.MaxQueueDepth)
	}
	if c.QueueWaitSec < 1 {
		return fmt.Errorf("queue_wait_timeout must be >= 1, got %d", c.QueueWaitSec)
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"idle_drain_timeout", c.IdleDrainSec},
		{"drain_grace", c.DrainGraceSec},
		{"wake_timeout", c.WakeTimeoutSec},
		{"request_timeout", c.RequestTimeoutSec},
		{"health_timeout", c.HealthTimeoutSec},
		{"health_interval", c.HealthIntervalSec},
		{"max_concurrent_per_key", c.MaxConcurrentPerKey},
		{"max_requests_per_minute", c.MaxRequestsPerMin},
	} {
		if f.v < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", f.name, f.v)
		}
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be >= 0, got %d", c.MaxBodyBytes)
	}
	return nil
}

// ListenAddr is the gateway bind address.
func (c Config) ListenAddr() string { return fmt.Sprintf(":%d", c.GatewayPort) }

// BackendURL is the base URL requests are proxied to.
func (c Config) BackendURL() string {
	return fmt.Sprintf("http://%s:%d", c.BackendHost, c.BackendPort)
}

// HealthURL is the backend health endpoint consulted by the lifecycle probe.
func (c Config) HealthURL() string {
	return fmt.Sprintf("http://%s:%d/health", c.BackendHost, c.HealthPort)
}

func (c Config) QueueWait() time.Duration      { return time.Duration(c.QueueWaitSec) * time.Second }
func (c Config) IdleDrain() time.Duration      { return time.Duration(c.IdleDrainSec) * time.Second }
func (c Config) DrainGrace() time.Duration     { return time.Duration(c.DrainGraceSec) * time.Second }
func (c Config) WakeTimeout() time.Duration    { return time.Duration(c.WakeTimeoutSec) * time.Second }
func (c Config) RequestTimeout() time.Duration { return time.Duration(c.RequestTimeoutSec) * time.Second }
func (c Config) HealthTimeout() time.Duration  { return time.Duration(c.HealthTimeoutSec) * time.Second }
func (c Config) HealthInterval() time.Duration { return time.Duration(c.HealthIntervalSec) * time.Second }
