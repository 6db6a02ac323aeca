package httpx

import (
	"context"
	"net/http"

	"github.com/guardian/panda-go/internal/logging"
	"github.com/guardian/panda-go/internal/panda"
)

// Verifier checks the pan-domain cookie in a raw Cookie header.
type Verifier interface {
	Verify(ctx context.Context, cookieHeader string) (panda.Result, error)
}

// RequireAuth rejects requests without a valid pan-domain cookie.
//
// Successful results are stored in the request context (see GetUser). A
// cookie inside the grace period is let through with RefreshHeader set.
// When the public key cannot be obtained the request is refused with 503.
func RequireAuth(v Verifier, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			result, err := v.Verify(ctx, r.Header.Get("Cookie"))
			if err != nil {
				logger.Error(ctx, "access denied - public key unavailable",
					"error", err,
					"request_id", requestID,
				)
				writeKeyUnavailable(w)
				return
			}

			if !result.Success() {
				logger.Warn(ctx, "access denied",
					"outcome", panda.Outcome(result),
					"request_id", requestID,
					"path", r.URL.Path,
				)
				writeResultError(w, result)
				return
			}

			setRefreshHeader(w, result)
			next.ServeHTTP(w, r.WithContext(WithResult(ctx, result)))
		})
	}
}
