// Package manager coordinates admission and backend lifecycle for the
// gateway's single inference backend. It is structured into small files by
// concern:
//
//   - manager.go: core Manager type, constructor, occupancy getters, Close.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - types.go: BackendState and the Snapshot projection.
//   - errors.go: error types and helpers (IsQueueFull, IsQueueTimeout, ...).
//   - admission.go: bounded FIFO queueing and slot acquisition.
//   - lifecycle.go: state machine, wake signaling, idle drain, scale to zero.
//   - probe.go: health probing loop and failure-streak handling.
//   - controller.go: Controller interface, noop and exec implementations.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: Prometheus admission/lifecycle families.
//   - status_report.go: Snapshot/Status reporting helpers.
//   - sanity.go: startup checks for the configured backend command.
//
// External packages should treat this package as the coordination layer and
// use public methods only (New/NewWithConfig, Admit, State, Status, Close).
// Internal types are subject to change.
package manager
