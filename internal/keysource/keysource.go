// Package keysource fetches the pan-domain settings blob and extracts the
// PEM-formatted public key from it.
//
// The blob is ini-style text holding at least a publicKey=<base64> line. The
// private settings file also carries privateKey=<base64>; only the minting
// tool reads it.
package keysource

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/guardian/panda-go/internal/codec"
)

const (
	// PublicKeySetting is the ini key holding the base64 public key.
	PublicKeySetting = "publicKey"

	// PrivateKeySetting is the ini key holding the base64 private key.
	PrivateKeySetting = "privateKey"
)

var (
	// ErrEmptyConfig is returned when the settings blob has no content.
	ErrEmptyConfig = errors.New("keysource: empty settings")

	// ErrMissingPublicKey is returned when the settings blob has no publicKey.
	ErrMissingPublicKey = errors.New("keysource: missing publicKey setting")

	// ErrMissingPrivateKey is returned when the settings blob has no privateKey.
	ErrMissingPrivateKey = errors.New("keysource: missing privateKey setting")
)

// Location identifies the settings object in S3.
type Location struct {
	Bucket string
	Region string
	Key    string
}

func (l Location) String() string {
	return fmt.Sprintf("s3://%s/%s (%s)", l.Bucket, l.Key, l.Region)
}

// PublicKeyFromConfig returns the raw base64 publicKey from an ini blob.
func PublicKeyFromConfig(data []byte) (string, error) {
	return settingFromConfig(data, PublicKeySetting, ErrMissingPublicKey)
}

// PrivateKeyFromConfig returns the raw base64 privateKey from an ini blob.
func PrivateKeyFromConfig(data []byte) (string, error) {
	return settingFromConfig(data, PrivateKeySetting, ErrMissingPrivateKey)
}

func settingFromConfig(data []byte, name string, errMissing error) (string, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", ErrEmptyConfig
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return "", fmt.Errorf("keysource: parse settings: %w", err)
	}

	section := cfg.Section(ini.DefaultSection)
	if !section.HasKey(name) {
		return "", errMissing
	}

	value := strings.TrimSpace(section.Key(name).String())
	if value == "" {
		return "", errMissing
	}
	return value, nil
}

// RenderConfig writes settings in the same ini format. Empty values are
// left out, so passing only a public key yields a public settings file.
func RenderConfig(publicKey, privateKey string) ([]byte, error) {
	cfg := ini.Empty()
	section := cfg.Section(ini.DefaultSection)

	for _, kv := range [][2]string{{PrivateKeySetting, privateKey}, {PublicKeySetting, publicKey}} {
		if kv[1] == "" {
			continue
		}
		if _, err := section.NewKey(kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("keysource: render settings: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("keysource: render settings: %w", err)
	}
	return buf.Bytes(), nil
}

// PEMFromConfig returns the publicKey from an ini blob formatted as PEM.
func PEMFromConfig(data []byte) (string, error) {
	raw, err := PublicKeyFromConfig(data)
	if err != nil {
		return "", err
	}
	return codec.FormatPEM(raw, codec.LabelPublic), nil
}
