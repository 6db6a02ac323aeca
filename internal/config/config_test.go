package config

import (
	"testing"
	"time"

	"github.com/guardian/panda-go/internal/keysource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, ":50051", c.GRPCAddr)
	assert.Equal(t, "gutoolsAuth-assym", c.CookieName)
	assert.Equal(t, "pan-domain-auth-settings", c.S3Bucket)
	assert.Equal(t, "eu-west-1", c.S3Region)
	assert.Equal(t, "local.dev-gutools.co.uk.settings.public", c.S3KeyFile)
	assert.Empty(t, c.S3BaseEndpoint)
	assert.Empty(t, c.PublicKeyFile)
	assert.Equal(t, time.Minute, c.KeyCacheTTL)
	assert.False(t, c.RequireGuardianUser)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_NoArgsGivesDefaults(t *testing.T) {
	c := loadConfig(nil)
	require.NotNil(t, c)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"cookie_name":   "fromJson",
		"s3_bucket":     "json-bucket",
		"key_cache_ttl": "5m",
	})

	c := loadConfig([]string{"-c", path, "-n", "fromFlag"})

	assert.Equal(t, "fromFlag", c.CookieName)
	assert.Equal(t, "json-bucket", c.S3Bucket)
	assert.Equal(t, 5*time.Minute, c.KeyCacheTTL)
}

func TestConfig_Location(t *testing.T) {
	c := &Config{S3Bucket: "b", S3Region: "r", S3KeyFile: "k"}
	assert.Equal(t, keysource.Location{Bucket: "b", Region: "r", Key: "k"}, c.Location())
}
