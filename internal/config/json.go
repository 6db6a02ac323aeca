package config

import (
	"encoding/json"
	"os"

	"github.com/guardian/panda-go/internal/flagx"
	"github.com/guardian/panda-go/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "1m" style
// strings or integer nanoseconds. Pointer fields distinguish an explicit
// false from an absent setting.
type JsonConfig struct {
	HTTPAddr            string         `json:"http_addr"`
	GRPCAddr            *string        `json:"grpc_addr"`
	CookieName          string         `json:"cookie_name"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3KeyFile           string         `json:"s3_key_file"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3AccessKeyID       string         `json:"s3_access_key_id"`
	S3SecretAccessKey   string         `json:"s3_secret_access_key"`
	PublicKeyFile       string         `json:"public_key_file"`
	KeyCacheTTL         timex.Duration `json:"key_cache_ttl"`
	RequireGuardianUser *bool          `json:"require_guardian_user"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. Only settings
// present in the file are applied. It panics when the file cannot be read or
// is not valid JSON.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	if c.GRPCAddr != nil {
		config.GRPCAddr = *c.GRPCAddr
	}
	setString(&config.CookieName, c.CookieName)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3KeyFile, c.S3KeyFile)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3AccessKeyID, c.S3AccessKeyID)
	setString(&config.S3SecretAccessKey, c.S3SecretAccessKey)
	setString(&config.PublicKeyFile, c.PublicKeyFile)
	if c.KeyCacheTTL.Duration > 0 {
		config.KeyCacheTTL = c.KeyCacheTTL.Duration
	}
	if c.RequireGuardianUser != nil {
		config.RequireGuardianUser = *c.RequireGuardianUser
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
