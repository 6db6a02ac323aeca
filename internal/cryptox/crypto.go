// Package cryptox signs and verifies pan-domain payloads with RSA over SHA-256
// (sha256WithRSAEncryption, PKCS#1 v1.5).
package cryptox

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidPEM is returned when the input holds no PEM block.
	ErrInvalidPEM = errors.New("invalid PEM")

	// ErrNotRSAKey is returned when the PEM block holds a non-RSA key.
	ErrNotRSAKey = errors.New("not an RSA key")
)

// signingMethod is RS256: PKCS#1 v1.5 over SHA-256 of the raw message.
var signingMethod = jwt.SigningMethodRS256

// VerifySignature checks a base64 signature over the UTF-8 bytes of message.
//
// A well-formed but wrong signature yields false with a nil error. An error
// is returned only when the public key cannot be parsed.
func VerifySignature(message, signature, publicKeyPEM string) (bool, error) {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return false, err
	}

	sig, err := base64.StdEncoding.Strict().DecodeString(signature)
	if err != nil {
		return false, nil
	}

	// The key is known to be *rsa.PublicKey, so any error is a bad signature.
	if err := signingMethod.Verify(message, sig, pub); err != nil {
		return false, nil
	}

	return true, nil
}

// Sign returns the base64 RSA-SHA256 signature of message.
func Sign(message, privateKeyPEM string) (string, error) {
	priv, err := ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", err
	}

	sig, err := signingMethod.Sign(message, priv)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// ParsePublicKey decodes a PKIX ("PUBLIC KEY") or PKCS#1 ("RSA PUBLIC KEY")
// PEM block.
func ParsePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, keyError("parse public key", err)
	}
	return pub, nil
}

// ParsePrivateKey decodes a PKCS#1 ("RSA PRIVATE KEY") or PKCS#8
// ("PRIVATE KEY") PEM block.
func ParsePrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, keyError("parse private key", err)
	}
	return priv, nil
}

// keyError maps jwt key errors onto this package's sentinels.
func keyError(op string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrKeyMustBePEMEncoded):
		return fmt.Errorf("%s: %w", op, ErrInvalidPEM)
	case errors.Is(err, jwt.ErrNotRSAPublicKey), errors.Is(err, jwt.ErrNotRSAPrivateKey):
		return fmt.Errorf("%s: %w", op, ErrNotRSAKey)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// EncodePublicKey returns the single-line base64 PKIX encoding of pub, the
// form stored in the publicKey setting of the key source.
func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// EncodePrivateKey returns the single-line base64 PKCS#8 encoding of priv.
func EncodePrivateKey(priv *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}
