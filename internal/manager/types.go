package manager

import "time"

// BackendState is the lifecycle state of the inference backend as the
// gateway sees it.
type BackendState string

const (
	// StateCold: backend not running (or presumed stopped); no probing.
	StateCold BackendState = "cold"
	// StateWarming: start signal issued, waiting for the first healthy probe.
	StateWarming BackendState = "warming"
	// StateWarm: backend healthy and serving.
	StateWarm BackendState = "warm"
	// StateDraining: idle too long; new admissions cancel the drain.
	StateDraining BackendState = "draining"
	// StateFailed: health checks gave up; admissions are rejected until a
	// probe succeeds again.
	StateFailed BackendState = "failed"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State         BackendState
	StateSince    time.Time
	LastHealthy   time.Time
	ProbeFailures int
	Wakes         uint64
	Inflight      int
	Queued        int
	MaxConcurrent int
	MaxQueueDepth int
}
