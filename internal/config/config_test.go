package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsInsecureDefaultSecret(t *testing.T) {
	c := &Config{InternalJWTSecret: "change-me-in-production"}
	assert.Error(t, c.Validate())
}

func TestValidateRejectsShortSecret(t *testing.T) {
	c := &Config{InternalJWTSecret: "too-short"}
	assert.Error(t, c.Validate())
}

func TestValidateAllowsInsecureDefaultsOverride(t *testing.T) {
	c := &Config{InternalJWTSecret: "change-me-in-production", AllowInsecureDefaults: true}
	assert.NoError(t, c.Validate())
}

func TestValidateAcceptsStrongSecret(t *testing.T) {
	c := &Config{InternalJWTSecret: "a-sufficiently-long-random-secret-value"}
	assert.NoError(t, c.Validate())
}

func TestDSNPrefersDatabaseURL(t *testing.T) {
	c := &Config{DatabaseURL: "postgres://explicit"}
	assert.Equal(t, "postgres://explicit", c.DSN())
}

func TestDSNBuildsFromParts(t *testing.T) {
	c := &Config{PGUser: "u", PGPassword: "p", PGHost: "h", PGPort: 5432, PGDatabase: "d"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())
}

func TestRequestTimeoutDurationParsesValidValue(t *testing.T) {
	c := &Config{RequestTimeout: "5s"}
	assert.Equal(t, 5*time.Second, c.RequestTimeoutDuration())
}

func TestRequestTimeoutDurationDefaultsOnInvalidValue(t *testing.T) {
	c := &Config{RequestTimeout: "not-a-duration"}
	assert.Equal(t, 30*time.Second, c.RequestTimeoutDuration())
}

func TestLoadFileConfigMissingFileReturnsEmpty(t *testing.T) {
	fc, err := loadFileConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Empty(t, fc.RateLimitRules)
}

func TestLoadFileConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
rate_limit_rules:
  - pattern: "/api/wallet/*"
    limit: 100
    window_s: 60
    block_s: 300
aml_thresholds:
  - currency: USD
    threshold: 10000
sensitive_field_names:
  - password
exempt_paths:
  - /health
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	fc, err := loadFileConfig(path)
	require.NoError(t, err)
	require.Len(t, fc.RateLimitRules, 1)
	assert.Equal(t, "/api/wallet/*", fc.RateLimitRules[0].Pattern)
	require.Len(t, fc.AMLThresholds, 1)
	assert.Equal(t, "USD", fc.AMLThresholds[0].Currency)
	assert.Equal(t, []string{"password"}, fc.SensitiveFieldNames)
	assert.Equal(t, []string{"/health"}, fc.ExemptPaths)
}
