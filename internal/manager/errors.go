package manager

import "fmt"

// Rejection reasons, also used as metric labels.
const (
	reasonQueueFull          = "queue_full"
	reasonPerKey             = "per_key"
	reasonQueueTimeout       = "queue_timeout"
	reasonBackendUnavailable = "backend_unavailable"
)

// queueFullError signals that the waiting list (or a per-key cap) has no
// room, for 429 mapping with a retry hint.
type queueFullError struct{ reason string }

func (e queueFullError) Error() string {
	if e.reason == reasonPerKey {
		return "per-key concurrency limit reached"
	}
	return "request queue is full"
}

// ErrQueueFull constructs a shared-queue overflow rejection.
func ErrQueueFull() error { return queueFullError{reason: reasonQueueFull} }

// ErrPerKeyLimit constructs a per-key concurrency rejection. It maps to the
// same status as a full queue; only the metric label differs.
func ErrPerKeyLimit() error { return queueFullError{reason: reasonPerKey} }

// IsQueueFull reports whether err indicates overflow backpressure (return 429).
func IsQueueFull(err error) bool {
	_, ok := err.(queueFullError)
	return ok
}

// queueTimeoutError signals that a queued request waited out its budget
// without reaching a slot, for 504 mapping.
type queueTimeoutError struct{ waited string }

func (e queueTimeoutError) Error() string { return "queue wait timed out after " + e.waited }

func ErrQueueTimeout(waited string) error { return queueTimeoutError{waited: waited} }

// IsQueueTimeout reports whether err indicates a queue-wait deadline (return 504).
func IsQueueTimeout(err error) bool {
	_, ok := err.(queueTimeoutError)
	return ok
}

// backendUnavailableError signals that the backend is in the failed state or
// a wake attempt did not produce a healthy backend, for 503 mapping.
type backendUnavailableError struct{ msg string }

func (e backendUnavailableError) Error() string { return e.msg }

// ErrBackendUnavailable constructs a backendUnavailableError.
func ErrBackendUnavailable(format string, args ...any) error {
	return backendUnavailableError{msg: fmt.Sprintf(format, args...)}
}

// IsBackendUnavailable reports whether err indicates a down backend (return 503).
func IsBackendUnavailable(err error) bool {
	_, ok := err.(backendUnavailableError)
	return ok
}
