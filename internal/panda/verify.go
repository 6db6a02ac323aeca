package panda

import (
	"time"

	"github.com/guardian/panda-go/internal/codec"
	"github.com/guardian/panda-go/internal/cryptox"
)

// GracePeriod is how long after expiry a cookie is still accepted, flagged
// for refresh.
const GracePeriod = 24 * time.Hour

// ValidateUserFunc is the per-service policy applied to an unexpired user.
type ValidateUserFunc func(User) bool

// AllowAll accepts every user.
func AllowAll(User) bool { return true }

// VerifyUser checks cookie against publicKeyPEM at now.
//
// The signature is checked before any decoded field is trusted, and expiry is
// checked before validate runs, so an expired user is reported as expired even
// when it would also fail validation. An empty cookie is treated as absent.
func VerifyUser(cookie string, publicKeyPEM string, now time.Time, validate ValidateUserFunc) Result {
	if cookie == "" {
		return Unauthenticated{Reason: ReasonNoCookie}
	}

	parsed, ok := codec.ParseCookie(cookie)
	if !ok {
		return Unauthenticated{Reason: ReasonInvalidCookie}
	}

	valid, err := cryptox.VerifySignature(parsed.Data, parsed.Signature, publicKeyPEM)
	if err != nil {
		return Unauthenticated{Reason: ReasonUnknown}
	}
	if !valid {
		return Unauthenticated{Reason: ReasonInvalidCookie}
	}

	user, err := ParseUser(parsed.Data)
	if err != nil {
		return Unauthenticated{Reason: ReasonUnknown}
	}

	nowMillis := now.UnixMilli()
	if user.Expires < nowMillis {
		deadline := user.Expires + GracePeriod.Milliseconds()
		if nowMillis > deadline {
			return Unauthenticated{Reason: ReasonExpiredCookie}
		}
		return Stale{User: user, MustRefreshByEpochTimeMillis: deadline}
	}

	if validate == nil {
		validate = AllowAll
	}
	if !validate(user) {
		return Unauthorised{User: user}
	}

	return Authenticated{User: user}
}

// CreateCookie signs user with privateKeyPEM and returns the cookie value.
func CreateCookie(user User, privateKeyPEM string) (string, error) {
	fields := user.Fields()

	signature, err := cryptox.Sign(fields, privateKeyPEM)
	if err != nil {
		return "", err
	}

	return codec.EncodeCookie(fields, signature), nil
}
