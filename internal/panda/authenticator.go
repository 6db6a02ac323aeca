package panda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/guardian/panda-go/internal/keycache"
	"github.com/guardian/panda-go/internal/logging"
	"github.com/guardian/panda-go/internal/metrics"
)

const tracerName = "github.com/guardian/panda-go/internal/panda"

var (
	// ErrKeyUnavailable wraps failures to obtain the public key. Callers must
	// deny access when they see it.
	ErrKeyUnavailable = errors.New("panda: public key unavailable")

	// ErrNoCookieName is returned by NewAuthenticator without a cookie name.
	ErrNoCookieName = errors.New("panda: cookie name is required")

	// ErrNoKeySource is returned by NewAuthenticator without a key source.
	ErrNoKeySource = errors.New("panda: key source is required")
)

// KeySource fetches the current PEM-encoded public key.
type KeySource interface {
	Fetch(ctx context.Context) (string, error)
}

// Options configures an Authenticator.
type Options struct {
	CookieName string
	Source     KeySource
	// Validate defaults to AllowAll.
	Validate ValidateUserFunc
	// CacheTTL defaults to keycache.DefaultTTL.
	CacheTTL time.Duration
	Logger   logging.Logger
	Metrics  *metrics.Metrics
	// Now supplies the wall-clock time used for cookie expiry. It does not
	// affect key cache staleness.
	Now func() time.Time
}

// Authenticator verifies request cookies against a cached public key.
type Authenticator struct {
	cookieName string
	validate   ValidateUserFunc
	keys       *keycache.Cache
	logger     logging.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	tracer     trace.Tracer
}

// NewAuthenticator builds an Authenticator and starts its background key
// refresh. Call Stop when done.
func NewAuthenticator(ctx context.Context, opts Options) (*Authenticator, error) {
	if opts.CookieName == "" {
		return nil, ErrNoCookieName
	}
	if opts.Source == nil {
		return nil, ErrNoKeySource
	}

	a := &Authenticator{
		cookieName: opts.CookieName,
		validate:   opts.Validate,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Now,
		tracer:     otel.Tracer(tracerName),
	}
	if a.validate == nil {
		a.validate = AllowAll
	}
	if a.logger == nil {
		a.logger = logging.Nop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.logger = a.logger.With("module", "panda", "cookie", a.cookieName)

	a.keys = keycache.New(opts.Source.Fetch,
		keycache.WithTTL(opts.CacheTTL),
		keycache.WithLogger(opts.Logger),
		keycache.WithMetrics(opts.Metrics),
	)
	a.keys.Start(context.WithoutCancel(ctx))
	a.logger.Info(ctx, "authenticator started", "key_ttl", a.keys.TTL())

	return a, nil
}

// CookieName returns the name of the cookie this Authenticator reads.
func (a *Authenticator) CookieName() string { return a.cookieName }

// PublicKey returns the current public key, refreshing it if stale.
func (a *Authenticator) PublicKey(ctx context.Context) (string, error) {
	key, err := a.keys.PublicKey(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}
	return key, nil
}

// Verify checks the named cookie in a raw Cookie header.
//
// A missing header, a header with no parsable cookies, or a header without
// the named cookie all yield no-cookie. The only error is ErrKeyUnavailable.
func (a *Authenticator) Verify(ctx context.Context, cookieHeader string) (Result, error) {
	ctx, span := a.tracer.Start(ctx, "panda.Verify")
	defer span.End()

	key, err := a.PublicKey(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "public key unavailable")
		a.logger.Error(ctx, "cannot verify cookie without public key", "error", err)
		return nil, err
	}

	result := VerifyUser(CookieValue(cookieHeader, a.cookieName), key, a.now(), a.validate)

	outcome := Outcome(result)
	span.SetAttributes(
		attribute.String("panda.outcome", outcome),
		attribute.Bool("panda.success", result.Success()),
	)
	a.metrics.ObserveVerification(outcome)
	a.logResult(ctx, result)

	return result, nil
}

// VerifyRequest verifies the cookies sent with r.
func (a *Authenticator) VerifyRequest(r *http.Request) (Result, error) {
	return a.Verify(r.Context(), r.Header.Get("Cookie"))
}

// Stop cancels the background key refresh. It is idempotent.
func (a *Authenticator) Stop() {
	a.keys.Stop()
}

func (a *Authenticator) logResult(ctx context.Context, r Result) {
	switch v := r.(type) {
	case Authenticated:
		a.logger.Debug(ctx, "cookie verified", "email", v.User.Email)
	case Stale:
		a.logger.Debug(ctx, "cookie in grace period", "email", v.User.Email,
			"expired_at", v.User.ExpiresAt().UTC(),
			"must_refresh_by", time.UnixMilli(v.MustRefreshByEpochTimeMillis).UTC())
	case Unauthorised:
		a.logger.Warn(ctx, "user failed validation", "email", v.User.Email,
			"system", v.User.AuthenticatingSystem)
	case Unauthenticated:
		if v.Reason == ReasonNoCookie {
			a.logger.Debug(ctx, "no cookie")
			return
		}
		a.logger.Warn(ctx, "cookie rejected", "reason", v.Reason)
	}
}

// CookieValue returns the value of the named cookie in a Cookie header, or
// the empty string when it is absent. Malformed pairs are skipped and the
// first occurrence of a repeated name wins. Percent-encoded values are
// decoded; a value that does not unescape cleanly is returned as sent.
func CookieValue(header, name string) string {
	if header == "" {
		return ""
	}

	r := http.Request{Header: http.Header{"Cookie": []string{header}}}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	if !strings.Contains(c.Value, "%") {
		return c.Value
	}
	if v, err := url.PathUnescape(c.Value); err == nil {
		return v
	}
	return c.Value
}
