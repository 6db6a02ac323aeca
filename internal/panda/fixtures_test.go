package panda

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guardian/panda-go/internal/codec"
	"github.com/guardian/panda-go/internal/cryptox"
)

type keyPair struct {
	private string
	public  string
	// raw is the single-line base64 public key, as stored in the settings file.
	raw string
}

var (
	fixtureOnce sync.Once
	fixtureKeys keyPair
	fixtureErr  error
)

func testKeys(t *testing.T) keyPair {
	t.Helper()
	fixtureOnce.Do(func() {
		fixtureKeys, fixtureErr = generateKeyPair()
	})
	require.NoError(t, fixtureErr)
	return fixtureKeys
}

func generateKeyPair() (keyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return keyPair{}, err
	}
	rawPriv, err := cryptox.EncodePrivateKey(priv)
	if err != nil {
		return keyPair{}, err
	}
	rawPub, err := cryptox.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return keyPair{}, err
	}
	return keyPair{
		private: codec.FormatPEM(rawPriv, codec.LabelPrivate),
		public:  codec.FormatPEM(rawPub, codec.LabelPublic),
		raw:     rawPub,
	}, nil
}

// fixtureUser expires at epoch millisecond 1234.
func fixtureUser() User {
	return User{
		FirstName:            "Test",
		LastName:             "User",
		Email:                "test.user@guardian.co.uk",
		AuthenticatingSystem: "test",
		AuthenticatedIn:      []string{"test"},
		Expires:              1234,
		Multifactor:          true,
	}
}

func mintCookie(t *testing.T, u User) string {
	t.Helper()
	cookie, err := CreateCookie(u, testKeys(t).private)
	require.NoError(t, err)
	return cookie
}
