package panda

// Reason explains why a cookie was not accepted.
type Reason string

const (
	ReasonNoCookie      Reason = "no-cookie"
	ReasonInvalidCookie Reason = "invalid-cookie"
	ReasonExpiredCookie Reason = "expired-cookie"
	ReasonInvalidUser   Reason = "invalid-user"
	ReasonUnknown       Reason = "unknown"
)

// Result is the outcome of verifying a cookie. It is one of Authenticated,
// Stale, Unauthenticated or Unauthorised.
type Result interface {
	// Success reports whether the request may proceed.
	Success() bool
	isResult()
}

// Authenticated is a valid, unexpired cookie whose user passed validation.
type Authenticated struct {
	User User
}

// Stale is a valid cookie past its expiry but inside the grace period. The
// caller should refresh credentials before MustRefreshByEpochTimeMillis.
type Stale struct {
	User                         User
	MustRefreshByEpochTimeMillis int64
}

// Unauthenticated is a missing, malformed, expired or undecodable cookie.
type Unauthenticated struct {
	Reason Reason
}

// Unauthorised is a valid, unexpired cookie whose user failed validation.
// The user is kept for audit logging.
type Unauthorised struct {
	User User
}

func (Authenticated) Success() bool   { return true }
func (Stale) Success() bool           { return true }
func (Unauthenticated) Success() bool { return false }
func (Unauthorised) Success() bool    { return false }

func (Authenticated) isResult()   {}
func (Stale) isResult()           {}
func (Unauthenticated) isResult() {}
func (Unauthorised) isResult()    {}

// ShouldRefreshCredentials is always false for a fresh cookie.
func (Authenticated) ShouldRefreshCredentials() bool { return false }

// ShouldRefreshCredentials is always true inside the grace period.
func (Stale) ShouldRefreshCredentials() bool { return true }

// Reason is always ReasonInvalidUser.
func (Unauthorised) Reason() Reason { return ReasonInvalidUser }

// Outcome returns a stable label for r, used in logs and metrics.
func Outcome(r Result) string {
	switch v := r.(type) {
	case Authenticated:
		return "authenticated"
	case Stale:
		return "stale"
	case Unauthenticated:
		return string(v.Reason)
	case Unauthorised:
		return string(ReasonInvalidUser)
	default:
		return string(ReasonUnknown)
	}
}

// UserOf returns the user carried by r, if any.
func UserOf(r Result) (User, bool) {
	switch v := r.(type) {
	case Authenticated:
		return v.User, true
	case Stale:
		return v.User, true
	case Unauthorised:
		return v.User, true
	default:
		return User{}, false
	}
}
