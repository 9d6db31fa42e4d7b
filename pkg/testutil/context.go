package testutil

import (
	"context"
	"net/http"
	"time"

	id "alapay/pkg/domain"
	"alapay/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithPrincipal(req *http.Request, principal id.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), principal))
}

// ContextWithPrincipal returns a context carrying the given principal.
func ContextWithPrincipal(ctx context.Context, principal id.Principal) context.Context {
	return requestcontext.WithPrincipal(ctx, principal)
}

// ContextWithTime pins the request-scoped clock so tests get deterministic
// timestamps.
func ContextWithTime(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}
