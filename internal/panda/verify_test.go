package panda

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardian/panda-go/internal/codec"
	"github.com/guardian/panda-go/internal/cryptox"
)

var graceMillis = GracePeriod.Milliseconds()

func alwaysFalse(User) bool { return false }

func TestVerifyUser_Scenarios(t *testing.T) {
	keys := testKeys(t)
	cookie := mintCookie(t, fixtureUser())
	data, _, _ := strings.Cut(cookie, ".")

	tests := []struct {
		name     string
		cookie   string
		now      int64
		validate ValidateUserFunc
		want     Result
	}{
		{
			name:     "missing cookie",
			cookie:   "",
			validate: GuardianValidation,
			want:     Unauthenticated{Reason: ReasonNoCookie},
		},
		{
			name:     "tampered signature",
			cookie:   data + ".1234",
			validate: GuardianValidation,
			want:     Unauthenticated{Reason: ReasonInvalidCookie},
		},
		{
			name:     "garbage",
			cookie:   "complete garbage",
			validate: GuardianValidation,
			want:     Unauthenticated{Reason: ReasonInvalidCookie},
		},
		{
			name:     "truncated signature",
			cookie:   cookie[:len(cookie)-2],
			validate: GuardianValidation,
			want:     Unauthenticated{Reason: ReasonInvalidCookie},
		},
		{
			name:     "after grace period",
			cookie:   cookie,
			now:      1234 + graceMillis + 1,
			validate: GuardianValidation,
			want:     Unauthenticated{Reason: ReasonExpiredCookie},
		},
		{
			name:     "inside grace period",
			cookie:   cookie,
			now:      1234 + graceMillis - 1,
			validate: GuardianValidation,
			want:     Stale{User: fixtureUser(), MustRefreshByEpochTimeMillis: 1234 + graceMillis},
		},
		{
			name:     "exactly at end of grace period",
			cookie:   cookie,
			now:      1234 + graceMillis,
			validate: GuardianValidation,
			want:     Stale{User: fixtureUser(), MustRefreshByEpochTimeMillis: 1234 + graceMillis},
		},
		{
			name:     "exactly at expiry is not expired",
			cookie:   cookie,
			now:      1234,
			validate: AllowAll,
			want:     Authenticated{User: fixtureUser()},
		},
		{
			name:     "valid",
			cookie:   cookie,
			now:      0,
			validate: AllowAll,
			want:     Authenticated{User: fixtureUser()},
		},
		{
			name:     "nil validator allows",
			cookie:   cookie,
			now:      0,
			validate: nil,
			want:     Authenticated{User: fixtureUser()},
		},
		{
			name:     "fails validation",
			cookie:   cookie,
			now:      0,
			validate: alwaysFalse,
			want:     Unauthorised{User: fixtureUser()},
		},
		{
			name:     "expiry checked before validation",
			cookie:   cookie,
			now:      1234 + 1,
			validate: alwaysFalse,
			want:     Stale{User: fixtureUser(), MustRefreshByEpochTimeMillis: 1234 + graceMillis},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyUser(tt.cookie, keys.public, time.UnixMilli(tt.now), tt.validate)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("VerifyUser mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVerifyUser_GuardianValidation(t *testing.T) {
	keys := testKeys(t)

	noMFA := fixtureUser()
	noMFA.Multifactor = false

	nonGuardian := fixtureUser()
	nonGuardian.Email = "test.user@example.com"

	for _, u := range []User{noMFA, nonGuardian} {
		got := VerifyUser(mintCookie(t, u), keys.public, time.UnixMilli(0), GuardianValidation)
		assert.Equal(t, Unauthorised{User: u}, got)
	}
}

func TestVerifyUser_SignatureMutation(t *testing.T) {
	keys := testKeys(t)
	cookie := mintCookie(t, fixtureUser())
	sep := strings.Index(cookie, ".")

	for i := sep + 1; i < len(cookie); i++ {
		replacement := byte('A')
		if cookie[i] == 'A' {
			replacement = 'B'
		}
		mutated := cookie[:i] + string(replacement) + cookie[i+1:]

		got := VerifyUser(mutated, keys.public, time.UnixMilli(0), AllowAll)
		require.Equal(t, Unauthenticated{Reason: ReasonInvalidCookie}, got, "mutation at %d accepted", i)
	}
}

func TestVerifyUser_DataMutation(t *testing.T) {
	keys := testKeys(t)
	cookie := mintCookie(t, fixtureUser())
	_, sig, _ := strings.Cut(cookie, ".")

	forged := fixtureUser()
	forged.Email = "attacker@guardian.co.uk"
	tampered := codec.EncodeBase64(forged.Fields()) + "." + sig

	got := VerifyUser(tampered, keys.public, time.UnixMilli(0), AllowAll)
	assert.Equal(t, Unauthenticated{Reason: ReasonInvalidCookie}, got)
}

func TestVerifyUser_OtherKey(t *testing.T) {
	other, err := generateKeyPair()
	require.NoError(t, err)

	got := VerifyUser(mintCookie(t, fixtureUser()), other.public, time.UnixMilli(0), AllowAll)
	assert.Equal(t, Unauthenticated{Reason: ReasonInvalidCookie}, got)
}

func TestVerifyUser_MalformedKeyIsUnknown(t *testing.T) {
	got := VerifyUser(mintCookie(t, fixtureUser()), "not a key", time.UnixMilli(0), AllowAll)
	assert.Equal(t, Unauthenticated{Reason: ReasonUnknown}, got)
}

func TestVerifyUser_UndecodablePayloadIsUnknown(t *testing.T) {
	keys := testKeys(t)
	payload := "firstName=Test&lastName=User&email=e&system=s&authedIn=a&expires=tomorrow"

	sig, err := cryptox.Sign(payload, keys.private)
	require.NoError(t, err)

	got := VerifyUser(codec.EncodeCookie(payload, sig), keys.public, time.UnixMilli(0), AllowAll)
	assert.Equal(t, Unauthenticated{Reason: ReasonUnknown}, got)
}

func TestVerifyUser_RoundTrip(t *testing.T) {
	keys := testKeys(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		u := User{
			FirstName:            fmt.Sprintf("First%d", i),
			LastName:             fmt.Sprintf("Last%d", i),
			Email:                fmt.Sprintf("user%d@guardian.co.uk", i),
			AuthenticatingSystem: "login",
			AuthenticatedIn:      []string{"login", fmt.Sprintf("tool%d", i)},
			Expires:              now.Add(time.Duration(i+1) * time.Hour).UnixMilli(),
			Multifactor:          i%2 == 0,
		}
		if i%2 == 1 {
			u.AvatarURL = fmt.Sprintf("https://avatars.example.com/%d.png", i)
		}

		got := VerifyUser(mintCookie(t, u), keys.public, now, AllowAll)
		assert.Equal(t, Authenticated{User: u}, got)
	}
}

func TestCreateCookie_Deterministic(t *testing.T) {
	a := mintCookie(t, fixtureUser())
	b := mintCookie(t, fixtureUser())
	assert.Equal(t, a, b)

	parsed, ok := codec.ParseCookie(a)
	require.True(t, ok)
	assert.Equal(t, fixtureUser().Fields(), parsed.Data)
}

func TestCreateCookie_InvalidKey(t *testing.T) {
	_, err := CreateCookie(fixtureUser(), "nope")
	assert.ErrorIs(t, err, cryptox.ErrInvalidPEM)
}

func TestOutcomeAndUserOf(t *testing.T) {
	u := fixtureUser()

	tests := []struct {
		result  Result
		outcome string
		success bool
		hasUser bool
	}{
		{Authenticated{User: u}, "authenticated", true, true},
		{Stale{User: u, MustRefreshByEpochTimeMillis: 1}, "stale", true, true},
		{Unauthorised{User: u}, "invalid-user", false, true},
		{Unauthenticated{Reason: ReasonExpiredCookie}, "expired-cookie", false, false},
		{Unauthenticated{Reason: ReasonNoCookie}, "no-cookie", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			assert.Equal(t, tt.outcome, Outcome(tt.result))
			assert.Equal(t, tt.success, tt.result.Success())
			got, ok := UserOf(tt.result)
			assert.Equal(t, tt.hasUser, ok)
			if ok {
				assert.Equal(t, u, got)
			}
		})
	}

	assert.False(t, Authenticated{}.ShouldRefreshCredentials())
	assert.True(t, Stale{}.ShouldRefreshCredentials())
	assert.Equal(t, ReasonInvalidUser, Unauthorised{}.Reason())
}
