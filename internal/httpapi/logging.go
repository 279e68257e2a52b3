package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// accessLog emits one line per request on the authenticated surface and
// settles the per-key request counter with the terminal status. It installs
// the identity holder that auth fills in further down the chain.
func (g *gateway) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, ident := ensureIdentity(r.Context())
		r = r.WithContext(ctx)

		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		dur := time.Since(start)

		keyID := ident.KeyID
		if keyID == "" {
			keyID = "-"
		}
		keyRequestsTotal.WithLabelValues(keyID, itoa(sr.status)).Inc()

		rid := middleware.GetReqID(r.Context())
		if zlog != nil {
			zlog.Info().
				Str("key_id", keyID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sr.status).
				Dur("dur", dur).
				Str("request_id", rid).
				Msg("request")
			return
		}
		log.Printf("access key_id=%s method=%s path=%s status=%d dur=%s request_id=%s",
			keyID, r.Method, r.URL.Path, sr.status, dur, rid)
	})
}
