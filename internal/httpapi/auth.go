package httpapi

import (
	"net/http"
	"strings"

	"gatewayd/pkg/types"
)

// anonymousKey is the identity attached when authentication is disabled.
const anonymousKey = "anonymous"

// authenticate resolves the caller's API key before anything touches the
// admission queue. The per-key minute rate limit is applied here too, after
// the key validates: a rejected request never consumes queue capacity.
func (g *gateway) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, ident := ensureIdentity(r.Context())
		r = r.WithContext(ctx)

		if !g.authEnabled {
			ident.KeyID = anonymousKey
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			authFailuresTotal.WithLabelValues("missing").Inc()
			writeAPIError(w, http.StatusUnauthorized, errInvalidKey("Missing API key"))
			return
		}

		info, err := g.keys.Authenticate(token)
		if err != nil {
			authFailuresTotal.WithLabelValues(authFailureReason(err)).Inc()
			writeAuthError(w, err)
			return
		}

		if g.rate != nil && !g.rate.Allow(info.ID, info.RateLimit) {
			authFailuresTotal.WithLabelValues("rate_limited").Inc()
			w.Header().Set("Retry-After", "60")
			writeAPIError(w, http.StatusTooManyRequests, types.APIError{
				Message: "Rate limit exceeded for this API key",
				Type:    "rate_limit_error",
				Code:    "rate_limit_exceeded",
			})
			return
		}

		ident.KeyID = info.ID
		ident.RateLimit = info.RateLimit
		next.ServeHTTP(w, r)
	})
}

// bearerToken pulls the credential out of the Authorization header. The
// "Bearer " prefix is optional and case-insensitive; a bare key is accepted
// the way curl users tend to send it.
func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.EqualFold(h, "bearer") {
		return "", false
	}
	if len(h) >= 7 && strings.EqualFold(h[:7], "bearer ") {
		h = strings.TrimSpace(h[7:])
	}
	if h == "" {
		return "", false
	}
	return h, true
}
