// Package httpapi is the gateway's HTTP surface: routing, authentication,
// CORS, metrics instrumentation and the glue between admission and the
// forwarding proxy. It is structured into small files by concern:
//
//   - server.go: Deps, NewMux, route table, operational and proxy handlers.
//   - auth.go: bearer extraction, key validation, per-key minute rate limit.
//   - context.go: base context, joined cancellation, request identity.
//   - errors.go: error body shape and the admission/auth status mapping.
//   - logging.go: structured logger hook and the per-request access log.
//   - metrics.go: Prometheus HTTP families and the instrument middleware.
//   - swagger_stub.go / swagger.go: optional API docs mount (swagger tag).
//
// The package never talks to the backend itself; admitted requests are
// handed to the proxy handler passed in via Deps.
package httpapi
