package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatewayd/internal/keystore"
	"gatewayd/internal/limits"
	"gatewayd/pkg/types"
)

// Admitter grants bounded access to the single backend. Admit blocks until
// the request may run (waking a cold backend if needed) and returns a
// release func the caller must invoke when the request finishes.
type Admitter interface {
	Admit(ctx context.Context, keyID string) (release func(), err error)
	Status() types.StatusResponse
}

// Authenticator resolves presented API keys and accounts their use.
type Authenticator interface {
	Authenticate(token string) (keystore.Info, error)
	RecordUse(id string)
}

// Deps carries the collaborators NewMux wires into the route table.
type Deps struct {
	Admitter Admitter
	Keys     Authenticator
	Proxy    http.Handler // forwards one admitted request to the backend

	Models  []types.Model // listing served by GET /v1/models
	ModelID string        // model identity echoed in health/status

	AuthEnabled  bool
	RateLimit    *limits.Window // per-key minute cap; nil disables
	MaxBodyBytes int64          // request body cap; 0 disables
	CORSOrigins  []string       // empty means "*"
}

type gateway struct {
	admitter    Admitter
	keys        Authenticator
	proxy       http.Handler
	models      []types.Model
	modelID     string
	authEnabled bool
	rate        *limits.Window
	maxBody     int64
}

// NewMux builds the gateway's HTTP handler. The operational surface (ping,
// health, status, metrics) is open; everything else passes auth, admission
// and the forwarding proxy, in that order.
func NewMux(d Deps) http.Handler {
	g := &gateway{
		admitter:    d.Admitter,
		keys:        d.Keys,
		proxy:       d.Proxy,
		models:      d.Models,
		modelID:     d.ModelID,
		authEnabled: d.AuthEnabled,
		rate:        d.RateLimit,
		maxBody:     d.MaxBodyBytes,
	}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	// Preflight OPTIONS is answered here, before auth or admission run.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:         300,
	}))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// Open operational surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Get("/ping", g.handlePing)
		r.Get("/health", g.handleHealth)
		r.Get("/status", g.handleStatus)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	// Everything else is authenticated; unknown paths go to the backend.
	r.Group(func(r chi.Router) {
		r.Use(g.accessLog)
		r.Use(g.authenticate)
		r.Get("/v1/models", g.handleModels)
		r.Handle("/*", http.HandlerFunc(g.handleProxy))
	})

	return r
}

// handlePing godoc
// @Summary     Liveness probe
// @Description Answers 200 immediately without auth or backend checks, so platform health probes never wake a cold backend.
// @Tags        ops
// @Success     200
// @Router      /ping [get]
func (g *gateway) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleHealth godoc
// @Summary     Gateway and backend health
// @Tags        ops
// @Produce     json
// @Success     200 {object} types.HealthResponse
// @Router      /health [get]
func (g *gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	s := g.admitter.Status()
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:          healthVerdict(s.State),
		Backend:         s.State,
		Model:           g.modelID,
		LastHealthyUnix: s.LastHealthyUnix,
		UptimeSeconds:   s.UptimeSeconds,
	})
}

// handleStatus godoc
// @Summary     Detailed admission and lifecycle snapshot
// @Tags        ops
// @Produce     json
// @Success     200 {object} types.StatusResponse
// @Router      /status [get]
func (g *gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	s := g.admitter.Status()
	s.Model = g.modelID
	writeJSON(w, http.StatusOK, s)
}

// handleModels godoc
// @Summary     List models served behind the gateway
// @Description Served from gateway configuration; never wakes the backend.
// @Tags        inference
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} types.ModelsResponse
// @Failure     401 {object} types.ErrorResponse
// @Router      /v1/models [get]
func (g *gateway) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{
		Object: "list",
		Data:   g.models,
	})
}

// handleProxy funnels an authenticated request through admission and hands
// it to the forwarding proxy. The inflight slot is held for the full
// duration of the response stream and released exactly once.
func (g *gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	ctx, ident := ensureIdentity(r.Context())
	r = r.WithContext(ctx)

	if g.maxBody > 0 {
		if r.ContentLength > g.maxBody {
			writeAPIError(w, http.StatusBadRequest, types.APIError{
				Message: "Request body too large",
				Type:    "invalid_request_error",
				Code:    "request_too_large",
			})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, g.maxBody)
	}

	// Join with the server's base context so shutdown cancels queued waits
	// and in-flight streams alongside client disconnects.
	jctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	release, err := g.admitter.Admit(jctx, ident.KeyID)
	if err != nil {
		writeAdmissionError(w, r, err)
		return
	}
	defer release()
	// Usage accounting reflects admitted backend work, not mere
	// authentication.
	g.keys.RecordUse(ident.KeyID)

	start := time.Now()
	g.proxy.ServeHTTP(w, r.WithContext(jctx))
	backendLatency.Observe(time.Since(start).Seconds())
}

// healthVerdict folds the lifecycle state into the coarse health string
// monitoring dashboards key on.
func healthVerdict(state string) string {
	switch state {
	case "warm":
		return "healthy"
	case "warming":
		return "starting"
	case "failed":
		return "degraded"
	default: // cold, draining
		return "idle"
	}
}
