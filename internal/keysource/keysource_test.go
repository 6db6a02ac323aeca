package keysource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRawKey = "MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEAxyz+/=="

func TestPublicKeyFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr error
	}{
		{
			name: "public and private key",
			data: "privateKey=PRIVATE\npublicKey=" + sampleRawKey + "\n",
			want: sampleRawKey,
		},
		{
			name: "surrounding whitespace",
			data: "\n  publicKey = " + sampleRawKey + "  \n",
			want: sampleRawKey,
		},
		{
			name:    "missing public key",
			data:    "privateKey=PRIVATE\n",
			wantErr: ErrMissingPublicKey,
		},
		{
			name:    "empty public key",
			data:    "publicKey=\n",
			wantErr: ErrMissingPublicKey,
		},
		{
			name:    "empty blob",
			data:    "  \n",
			wantErr: ErrEmptyConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PublicKeyFromConfig([]byte(tt.data))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPEMFromConfig(t *testing.T) {
	got, err := PEMFromConfig([]byte("publicKey=" + sampleRawKey))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "-----BEGIN PUBLIC KEY-----\n"))
	assert.True(t, strings.HasSuffix(got, "\n-----END PUBLIC KEY-----"))
	assert.Contains(t, got, sampleRawKey)
}

func TestLocation_String(t *testing.T) {
	l := Location{Bucket: "pan-domain-auth-settings", Region: "eu-west-1", Key: "local.dev-gutools.co.uk.settings"}
	assert.Equal(t, "s3://pan-domain-auth-settings/local.dev-gutools.co.uk.settings (eu-west-1)", l.String())
}

func TestPrivateKeyFromConfig(t *testing.T) {
	got, err := PrivateKeyFromConfig([]byte("privateKey=PRIVATE\npublicKey=" + sampleRawKey + "\n"))
	require.NoError(t, err)
	assert.Equal(t, "PRIVATE", got)

	_, err = PrivateKeyFromConfig([]byte("publicKey=" + sampleRawKey + "\n"))
	assert.ErrorIs(t, err, ErrMissingPrivateKey)
}

func TestRenderConfig_RoundTrip(t *testing.T) {
	data, err := RenderConfig(sampleRawKey, "PRIVATE+/==")
	require.NoError(t, err)

	pub, err := PublicKeyFromConfig(data)
	require.NoError(t, err)
	assert.Equal(t, sampleRawKey, pub)

	priv, err := PrivateKeyFromConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "PRIVATE+/==", priv)
}

func TestRenderConfig_PublicOnly(t *testing.T) {
	data, err := RenderConfig(sampleRawKey, "")
	require.NoError(t, err)

	assert.NotContains(t, string(data), PrivateKeySetting)
	_, err = PrivateKeyFromConfig(data)
	assert.ErrorIs(t, err, ErrMissingPrivateKey)
}
