package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gatewayd/internal/keystore"
	"gatewayd/internal/manager"
	"gatewayd/pkg/types"
)

// statusClientClosed is recorded when the caller disconnected before a
// response could be produced. Nothing reaches the wire; metrics and the
// access log use it to keep those requests distinguishable. Nginx
// convention.
const statusClientClosed = 499

// HTTPError allows collaborators to carry an HTTP status code on an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAPIError writes the gateway's error envelope.
func writeAPIError(w http.ResponseWriter, status int, apiErr types.APIError) {
	writeJSON(w, status, types.ErrorResponse{Error: apiErr})
}

// errInvalidKey is the 401/400 body for every credential problem. Revoked,
// expired and unknown keys all collapse into the same message so the
// response does not reveal which keys exist.
func errInvalidKey(msg string) types.APIError {
	return types.APIError{
		Message: msg,
		Type:    "invalid_request_error",
		Param:   "authorization",
		Code:    "invalid_api_key",
	}
}

// writeAuthError maps a keystore rejection onto the wire: malformed tokens
// are a 400 before any lookup, everything else is a uniform 401.
func writeAuthError(w http.ResponseWriter, err error) {
	if keystore.IsMalformedKey(err) {
		writeAPIError(w, http.StatusBadRequest, errInvalidKey("Malformed API key"))
		return
	}
	writeAPIError(w, http.StatusUnauthorized, errInvalidKey("Invalid API key"))
}

// authFailureReason is the metric label for a keystore rejection.
func authFailureReason(err error) string {
	switch {
	case keystore.IsMalformedKey(err):
		return "malformed"
	case keystore.IsKeyRevoked(err):
		return "revoked"
	case keystore.IsKeyExpired(err):
		return "expired"
	default:
		// Unknown secrets and the fail-closed empty store look the same to
		// the caller.
		return "unknown"
	}
}

// writeAdmissionError maps an Admit failure onto the wire. Capacity
// rejections carry retry hints; a caller that already hung up gets nothing.
func writeAdmissionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case r.Context().Err() != nil || errors.Is(err, context.Canceled):
		w.WriteHeader(statusClientClosed)

	case manager.IsQueueFull(err):
		w.Header().Set("Retry-After", "5")
		writeAPIError(w, http.StatusTooManyRequests, types.APIError{
			Message: "Server is busy and the request queue is full, retry shortly",
			Type:    "rate_limit_error",
			Code:    "queue_full",
		})

	case manager.IsQueueTimeout(err):
		writeAPIError(w, http.StatusGatewayTimeout, types.APIError{
			Message: "Timed out waiting for backend capacity: " + err.Error(),
			Type:    "timeout_error",
			Code:    "queue_timeout",
		})

	case manager.IsBackendUnavailable(err):
		w.Header().Set("Retry-After", "10")
		writeAPIError(w, http.StatusServiceUnavailable, types.APIError{
			Message: "Backend is unavailable: " + err.Error(),
			Type:    "service_unavailable",
			Code:    "backend_unavailable",
		})

	default:
		var he HTTPError
		if errors.As(err, &he) {
			writeAPIError(w, he.StatusCode(), types.APIError{
				Message: he.Error(),
				Type:    "api_error",
				Code:    "gateway_error",
			})
			return
		}
		writeAPIError(w, http.StatusInternalServerError, types.APIError{
			Message: "Internal gateway error",
			Type:    "api_error",
			Code:    "internal_error",
		})
	}
}
