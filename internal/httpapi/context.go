package httpapi

import (
	"context"
)

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}

// Identity is the resolved caller of a request. It travels the request
// context as a mutable holder: the access-log middleware installs it before
// auth runs, auth fills it in, and everything downstream reads it.
type Identity struct {
	KeyID     string
	RateLimit int // requests per minute from the key record; 0 means default
}

type identityCtxKey struct{}

// ensureIdentity returns the request's identity holder, installing an empty
// one into a derived context when absent.
func ensureIdentity(ctx context.Context) (context.Context, *Identity) {
	if ident, ok := ctx.Value(identityCtxKey{}).(*Identity); ok {
		return ctx, ident
	}
	ident := &Identity{}
	return context.WithValue(ctx, identityCtxKey{}, ident), ident
}

// KeyID returns the authenticated key id carried by ctx, or "" when the
// request never passed auth.
func KeyID(ctx context.Context) string {
	if ident, ok := ctx.Value(identityCtxKey{}).(*Identity); ok {
		return ident.KeyID
	}
	return ""
}
