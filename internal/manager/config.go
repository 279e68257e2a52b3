package manager

import (
	"net/http"
	"time"

	"gatewayd/internal/limits"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxConcurrent  = 1
	defaultMaxQueueDepth  = 32
	defaultQueueWait      = 30 * time.Second
	defaultDrainGrace     = 15 * time.Second
	defaultWakeTimeout    = 120 * time.Second
	defaultHealthTimeout  = 2 * time.Second
	defaultHealthInterval = 5 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Admission.
	MaxConcurrent int
	MaxQueueDepth int           // 0 is valid: no waiting, reject when busy
	QueueWait     time.Duration // how long a request may wait for a slot
	PerKeyLimit   int           // concurrent requests per key id; 0 disables

	// Lifecycle.
	IdleDrain   time.Duration // warm-and-idle period before draining; 0 disables
	DrainGrace  time.Duration // draining period before scale to zero
	WakeTimeout time.Duration // warming budget before the wake is declared failed

	// Probing.
	HealthURL      string
	HealthTimeout  time.Duration
	HealthInterval time.Duration

	// Collaborators; nil selects the no-op implementations.
	Controller Controller
	Publisher  EventPublisher
}

// NewWithConfig constructs a Manager from Config and starts its loops.
func NewWithConfig(cfg Config) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.MaxQueueDepth < 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.QueueWait <= 0 {
		cfg.QueueWait = defaultQueueWait
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = defaultDrainGrace
	}
	if cfg.WakeTimeout <= 0 {
		cfg.WakeTimeout = defaultWakeTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = defaultHealthTimeout
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthInterval
	}
	if cfg.Controller == nil {
		cfg.Controller = NoopController()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}

	m := &Manager{
		cfg:     cfg,
		queueCh: make(chan struct{}, cfg.MaxConcurrent+cfg.MaxQueueDepth),
		slotCh:  make(chan struct{}, cfg.MaxConcurrent),
		perKey:  limits.NewPerKey(cfg.PerKeyLimit),

		state:      StateCold,
		stateSince: time.Now(),
		gateCh:     make(chan struct{}),
		gateOpen:   true,

		kickCh: make(chan struct{}, 1),
		closed: make(chan struct{}),

		startTime:   time.Now(),
		probeClient: &http.Client{Timeout: 0}, // per-probe contexts carry the deadline
	}
	metricBackendState.WithLabelValues(string(StateCold)).Set(1)

	m.loopsWG.Add(1)
	go m.probeLoop()
	if cfg.IdleDrain > 0 {
		m.loopsWG.Add(1)
		go m.idleLoop()
	}
	return m
}
