package httpx

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/guardian/panda-go/internal/panda"
)

// RequestIDHeader carries the request id in and out of the sidecar.
const RequestIDHeader = "X-Request-Id"

type contextKeyRequestID struct{}
type contextKeyResult struct{}

// RequestID reuses an incoming X-Request-Id or assigns a new uuid, stores it
// in the request context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), contextKeyRequestID{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, ok := ctx.Value(contextKeyRequestID{}).(string)
	if !ok {
		return ""
	}
	return id
}

// WithResult stores a successful verification result in ctx.
func WithResult(ctx context.Context, r panda.Result) context.Context {
	return context.WithValue(ctx, contextKeyResult{}, r)
}

// GetResult returns the result stored by RequireAuth.
func GetResult(ctx context.Context) (panda.Result, bool) {
	r, ok := ctx.Value(contextKeyResult{}).(panda.Result)
	return r, ok
}

// GetUser returns the authenticated user stored by RequireAuth.
func GetUser(ctx context.Context) (panda.User, bool) {
	r, ok := GetResult(ctx)
	if !ok {
		return panda.User{}, false
	}
	return panda.UserOf(r)
}
