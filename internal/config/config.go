// Package config handles configuration for the verification sidecar,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"os"
	"time"

	"github.com/guardian/panda-go/internal/keysource"
)

// Config holds runtime settings for the sidecar.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses; an empty GRPCAddr disables gRPC.
//   - CookieName: name of the pan-domain cookie to verify.
//   - S3Bucket / S3Region / S3KeyFile: location of the settings file holding publicKey.
//   - S3BaseEndpoint: S3-compatible endpoint (MinIO, localstack); empty for AWS.
//   - S3AccessKeyID / S3SecretAccessKey: static credentials; empty uses the default AWS chain.
//   - PublicKeyFile: local settings file; when set it replaces S3.
//   - KeyCacheTTL: how long a fetched public key is served.
//   - RequireGuardianUser: apply the guardian.co.uk + multifactor policy.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	HTTPAddr            string
	GRPCAddr            string
	CookieName          string
	S3Bucket            string
	S3Region            string
	S3KeyFile           string
	S3BaseEndpoint      string
	S3AccessKeyID       string
	S3SecretAccessKey   string
	PublicKeyFile       string
	KeyCacheTTL         time.Duration
	RequireGuardianUser bool
	LogLevel            string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.CookieName = "gutoolsAuth-assym"
	c.S3Bucket = "pan-domain-auth-settings"
	c.S3Region = "eu-west-1"
	c.S3KeyFile = "local.dev-gutools.co.uk.settings.public"
	c.S3BaseEndpoint = ""
	c.S3AccessKeyID = ""
	c.S3SecretAccessKey = ""
	c.PublicKeyFile = ""
	c.KeyCacheTTL = time.Minute
	c.RequireGuardianUser = false
	c.LogLevel = "info"
}

// Location returns the S3 location of the settings file.
func (c *Config) Location() keysource.Location {
	return keysource.Location{Bucket: c.S3Bucket, Region: c.S3Region, Key: c.S3KeyFile}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
