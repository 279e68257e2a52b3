package types

// APIError is the error object nested in every gateway-origin error response.
// The shape is OpenAI-compatible so SDK clients surface it cleanly.
type APIError struct {
	// Human-readable description of the failure.
	// example: Invalid API key
	Message string `json:"message" example:"Invalid API key"`
	// Error class, e.g. invalid_request_error, rate_limit_error.
	// example: invalid_request_error
	Type string `json:"type" example:"invalid_request_error"`
	// Request element the error relates to, when applicable.
	// example: authorization
	Param string `json:"param,omitempty" example:"authorization"`
	// Stable machine-readable code.
	// example: invalid_api_key
	Code string `json:"code" example:"invalid_api_key"`
}

// ErrorResponse is the envelope for all gateway-origin errors.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ModelsResponse wraps the model listing returned by GET /v1/models.
type ModelsResponse struct {
	// Constant "list" for OpenAI client compatibility.
	// example: list
	Object string `json:"object" example:"list"`
	// Models served behind this gateway.
	Data []Model `json:"data"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Overall gateway verdict: healthy, starting, idle or degraded.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Current backend lifecycle state (cold, warming, warm, draining, failed).
	// example: warm
	Backend string `json:"backend" example:"warm"`
	// Model identity configured for the backend.
	// example: llama-3.1-8b-instruct
	Model string `json:"model,omitempty" example:"llama-3.1-8b-instruct"`
	// Unix seconds of the last successful backend health probe (0 = never).
	// example: 1700000000
	LastHealthyUnix int64 `json:"last_healthy_unix" example:"1700000000"`
	// Gateway uptime in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// StatusResponse is the detailed snapshot returned by GET /status.
type StatusResponse struct {
	// Backend lifecycle state (cold, warming, warm, draining, failed).
	// example: warm
	State string `json:"state" example:"warm"`
	// Model identity configured for the backend.
	// example: llama-3.1-8b-instruct
	Model string `json:"model,omitempty" example:"llama-3.1-8b-instruct"`
	// Requests currently executing against the backend.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Requests waiting in the admission queue.
	// example: 3
	Queued int `json:"queued" example:"3"`
	// Concurrency bound on in-flight backend calls.
	// example: 2
	MaxConcurrent int `json:"max_concurrent" example:"2"`
	// Waiting-list bound before 429 rejections start.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Total backend wake signals issued since start.
	// example: 5
	WakesTotal uint64 `json:"wakes_total" example:"5"`
	// Consecutive failed health probes in the current streak.
	// example: 0
	ProbeFailStreak int `json:"probe_fail_streak" example:"0"`
	// Unix seconds of the last successful backend health probe (0 = never).
	// example: 1700000000
	LastHealthyUnix int64 `json:"last_healthy_unix" example:"1700000000"`
	// Unix seconds of the last lifecycle state transition.
	// example: 1700000000
	StateSinceUnix int64 `json:"state_since_unix" example:"1700000000"`
	// Gateway uptime in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
