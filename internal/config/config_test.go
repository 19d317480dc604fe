package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-engine/internal/artifact"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "DB_MAX_CONNS", "TX_MAX_ATTEMPTS",
		"ARTIFACT_BACKEND", "ARTIFACT_ROOT", "GCS_BUCKET", "GCS_PREFIX", "GCS_CREDENTIALS_FILE",
		"STORAGE_TIMEOUT_SECONDS", "MAX_RESUME_BYTES", "MAX_IMAGE_BYTES",
		"LOG_LEVEL", "LOG_JSON", "PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
	assert.Equal(t, int64(10<<20), cfg.MaxResumeBytes)
	assert.Equal(t, int64(5<<20), cfg.MaxImageBytes)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/profiles")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("TX_MAX_ATTEMPTS", "5")
	t.Setenv("ARTIFACT_BACKEND", "gcs")
	t.Setenv("GCS_BUCKET", "profile-artifacts")
	t.Setenv("GCS_PREFIX", "prod")
	t.Setenv("STORAGE_TIMEOUT_SECONDS", "12")
	t.Setenv("MAX_RESUME_BYTES", "1024")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_JSON", "1")
	t.Setenv("PORT", "9090")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "postgres://localhost/profiles", cfg.DB().DatabaseURL)
	assert.Equal(t, int32(4), cfg.DB().MaxConns)
	assert.Equal(t, 5, cfg.DB().TxMaxAttempts)

	ac := cfg.Artifact()
	assert.Equal(t, artifact.BackendGCS, ac.Backend)
	assert.Equal(t, "profile-artifacts", ac.GCS.Bucket)
	assert.Equal(t, "prod", ac.GCS.Prefix)
	assert.Equal(t, 12*time.Second, ac.GCS.Timeout)

	assert.Equal(t, int64(1024), cfg.Profile().Limits.MaxResumeBytes)
	assert.Equal(t, int64(5<<20), cfg.Profile().Limits.MaxImageBytes)

	assert.Equal(t, "debug", cfg.Logging().Level)
	assert.True(t, cfg.Logging().JSON)
	assert.Equal(t, 9090, cfg.Port)
}

func TestFromEnv_InvalidNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_IMAGE_BYTES", "lots")

	cfg, err := FromEnv()
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "invalid MAX_IMAGE_BYTES")
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"database_url": "postgres://db/profiles",
		"artifact_backend": "local",
		"artifact_root": "/var/lib/profiles",
		"max_image_bytes": 2048,
		"log_json": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://db/profiles", cfg.DatabaseURL)
	assert.Equal(t, "/var/lib/profiles", cfg.ArtifactRoot)
	assert.Equal(t, int64(2048), cfg.MaxImageBytes)
	assert.True(t, cfg.LogJSON)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestMergeWithDefaults(t *testing.T) {
	file := Config{ArtifactRoot: "/srv/artifacts", MaxImageBytes: 100}
	defaults := Defaults()
	defaults.DatabaseURL = "postgres://env/db"

	merged := file.MergeWithDefaults(defaults)
	assert.Equal(t, "/srv/artifacts", merged.ArtifactRoot, "file value wins")
	assert.Equal(t, int64(100), merged.MaxImageBytes, "file value wins")
	assert.Equal(t, "postgres://env/db", merged.DatabaseURL, "empty field filled from defaults")
	assert.Equal(t, defaults.MaxResumeBytes, merged.MaxResumeBytes)
	assert.Equal(t, defaults.Port, merged.Port)
	assert.Equal(t, defaults.TxMaxAttempts, merged.TxMaxAttempts)
	assert.Equal(t, "", file.DatabaseURL, "receiver is not modified")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"memory backend", func(c *Config) { c.ArtifactBackend = "memory" }, ""},
		{"unknown backend", func(c *Config) { c.ArtifactBackend = "s3" }, "unknown artifact backend"},
		{"local without root", func(c *Config) { c.ArtifactRoot = "" }, "'artifact_root' is required"},
		{"gcs without bucket", func(c *Config) { c.ArtifactBackend = "gcs" }, "'gcs_bucket' is required"},
		{"zero attempts", func(c *Config) { c.TxMaxAttempts = 0 }, "'tx_max_attempts'"},
		{"zero conns", func(c *Config) { c.DBMaxConns = 0 }, "'db_max_conns'"},
		{"negative limit", func(c *Config) { c.MaxImageBytes = -1 }, "upload limits"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "'port'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
