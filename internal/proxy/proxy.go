// Package proxy forwards admitted requests to the single inference backend.
// It is a thin wrapper over httputil.ReverseProxy tuned for streaming:
// FlushInterval -1 so SSE and chunked token output reach the client as the
// backend produces it, with no response buffering.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"gatewayd/pkg/types"
)

// Proxy forwards requests to the backend and maps transport failures to the
// gateway's error shape.
type Proxy struct {
	target *url.URL
	rp     *httputil.ReverseProxy
}

// New builds a Proxy for the given backend URL. responseTimeout bounds how
// long the backend may take to produce response headers; the body stream
// itself is not capped, inference responses can run for minutes.
func New(backendURL string, responseTimeout time.Duration) (*Proxy, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, errors.New("invalid backend URL: " + backendURL)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: responseTimeout,
	}

	p := &Proxy{target: target}
	p.rp = &httputil.ReverseProxy{
		Director:      p.direct,
		Transport:     transport,
		FlushInterval: -1, // stream tokens as they arrive
		ErrorHandler:  p.handleError,
	}
	return p, nil
}

// direct rewrites an admitted request for the backend. Path and query are
// preserved as-is; the backend sees its own host, never the client's
// credentials.
func (p *Proxy) direct(req *http.Request) {
	clientHost := req.Host
	req.URL.Scheme = p.target.Scheme
	req.URL.Host = p.target.Host
	req.Host = p.target.Host

	req.Header.Del("Authorization")
	if req.Header.Get("X-Forwarded-Host") == "" {
		req.Header.Set("X-Forwarded-Host", clientHost)
	}
	if req.Header.Get("X-Forwarded-Proto") == "" {
		proto := "http"
		if req.TLS != nil {
			proto = "https"
		}
		req.Header.Set("X-Forwarded-Proto", proto)
	}
	if rid := middleware.GetReqID(req.Context()); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if isClientGone(r, err) {
		// The client left; there is no one to answer.
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		log.Printf("proxy event=body_too_large path=%s", r.URL.Path)
		writeError(w, http.StatusBadRequest, types.APIError{
			Message: "Request body too large",
			Type:    "invalid_request_error",
			Code:    "request_too_large",
		})
		return
	}

	log.Printf("proxy event=backend_error path=%s err=%v", r.URL.Path, err)
	writeError(w, http.StatusBadGateway, types.APIError{
		Message: "Error communicating with backend",
		Type:    "api_error",
		Code:    "backend_error",
	})
}

// ServeHTTP forwards one admitted request.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.rp.ServeHTTP(w, r)
}

// Target returns the backend base URL this proxy forwards to.
func (p *Proxy) Target() string { return p.target.String() }

func isClientGone(r *http.Request, err error) bool {
	if r.Context().Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "client disconnected") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "broken pipe")
}

func writeError(w http.ResponseWriter, status int, apiErr types.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: apiErr})
}
