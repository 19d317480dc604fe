// Package config provides configuration loading and validation for the service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/profile-engine/internal/artifact"
	"github.com/jonathan/profile-engine/internal/db"
	"github.com/jonathan/profile-engine/internal/logging"
	"github.com/jonathan/profile-engine/internal/profile"
)

// Config is the service configuration. Values come from environment
// variables, optionally overlaid by a JSON file and then by CLI flags.
type Config struct {
	// Database
	DatabaseURL   string `json:"database_url,omitempty"`    // PostgreSQL connection URL
	DBMaxConns    int32  `json:"db_max_conns,omitempty"`    // Pool size
	TxMaxAttempts int    `json:"tx_max_attempts,omitempty"` // Attempts per transaction on conflict

	// Artifact storage
	ArtifactBackend    string `json:"artifact_backend,omitempty"`     // local, gcs or memory
	ArtifactRoot       string `json:"artifact_root,omitempty"`        // Directory for the local backend
	GCSBucket          string `json:"gcs_bucket,omitempty"`           // Bucket for the gcs backend
	GCSPrefix          string `json:"gcs_prefix,omitempty"`           // Optional object key prefix
	GCSCredentialsFile string `json:"gcs_credentials_file,omitempty"` // Service account JSON; ADC when empty
	StorageTimeoutSecs int    `json:"storage_timeout_seconds,omitempty"`

	// Upload limits
	MaxResumeBytes int64 `json:"max_resume_bytes,omitempty"`
	MaxImageBytes  int64 `json:"max_image_bytes,omitempty"`

	// Logging
	LogLevel string `json:"log_level,omitempty"`
	LogJSON  bool   `json:"log_json,omitempty"`

	// HTTP
	Port int `json:"port,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	limits := profile.DefaultLimits()
	return Config{
		DBMaxConns:         10,
		TxMaxAttempts:      3,
		ArtifactBackend:    artifact.BackendLocal,
		ArtifactRoot:       "./data/artifacts",
		StorageTimeoutSecs: 30,
		MaxResumeBytes:     limits.MaxResumeBytes,
		MaxImageBytes:      limits.MaxImageBytes,
		LogLevel:           "info",
		Port:               8080,
	}
}

// FromEnv returns Defaults overlaid with any environment variables that are set.
func FromEnv() (*Config, error) {
	cfg := Defaults()

	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.ArtifactBackend = envString("ARTIFACT_BACKEND", cfg.ArtifactBackend)
	cfg.ArtifactRoot = envString("ARTIFACT_ROOT", cfg.ArtifactRoot)
	cfg.GCSBucket = envString("GCS_BUCKET", cfg.GCSBucket)
	cfg.GCSPrefix = envString("GCS_PREFIX", cfg.GCSPrefix)
	cfg.GCSCredentialsFile = envString("GCS_CREDENTIALS_FILE", cfg.GCSCredentialsFile)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogJSON = envString("LOG_JSON", "") == "1" || cfg.LogJSON

	var err error
	var maxConns int
	if maxConns, err = envInt("DB_MAX_CONNS", int(cfg.DBMaxConns)); err != nil {
		return nil, err
	}
	cfg.DBMaxConns = int32(maxConns)
	if cfg.TxMaxAttempts, err = envInt("TX_MAX_ATTEMPTS", cfg.TxMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.StorageTimeoutSecs, err = envInt("STORAGE_TIMEOUT_SECONDS", cfg.StorageTimeoutSecs); err != nil {
		return nil, err
	}
	if cfg.MaxResumeBytes, err = envInt64("MAX_RESUME_BYTES", cfg.MaxResumeBytes); err != nil {
		return nil, err
	}
	if cfg.MaxImageBytes, err = envInt64("MAX_IMAGE_BYTES", cfg.MaxImageBytes); err != nil {
		return nil, err
	}
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	for _, f := range []struct{ dst *string; src string }{
		{&result.DatabaseURL, defaults.DatabaseURL},
		{&result.ArtifactBackend, defaults.ArtifactBackend},
		{&result.ArtifactRoot, defaults.ArtifactRoot},
		{&result.GCSBucket, defaults.GCSBucket},
		{&result.GCSPrefix, defaults.GCSPrefix},
		{&result.GCSCredentialsFile, defaults.GCSCredentialsFile},
		{&result.LogLevel, defaults.LogLevel},
	} {
		if *f.dst == "" {
			*f.dst = f.src
		}
	}

	// Numeric fields: use default if zero
	if result.DBMaxConns == 0 {
		result.DBMaxConns = defaults.DBMaxConns
	}
	if result.TxMaxAttempts == 0 {
		result.TxMaxAttempts = defaults.TxMaxAttempts
	}
	if result.StorageTimeoutSecs == 0 {
		result.StorageTimeoutSecs = defaults.StorageTimeoutSecs
	}
	if result.MaxResumeBytes == 0 {
		result.MaxResumeBytes = defaults.MaxResumeBytes
	}
	if result.MaxImageBytes == 0 {
		result.MaxImageBytes = defaults.MaxImageBytes
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: either source can turn JSON logging on
	result.LogJSON = result.LogJSON || defaults.LogJSON

	return result
}

// Validate checks that the configuration has valid values.
// DATABASE_URL is checked by the commands that need it.
func (c *Config) Validate() error {
	switch strings.ToLower(c.ArtifactBackend) {
	case artifact.BackendLocal:
		if c.ArtifactRoot == "" {
			return fmt.Errorf("config error: 'artifact_root' is required for the local backend")
		}
	case artifact.BackendGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("config error: 'gcs_bucket' is required for the gcs backend")
		}
	case artifact.BackendMemory:
	default:
		return fmt.Errorf("config error: unknown artifact backend %q", c.ArtifactBackend)
	}

	if c.DBMaxConns < 1 {
		return fmt.Errorf("config error: 'db_max_conns' must be at least 1")
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("config error: 'tx_max_attempts' must be at least 1")
	}
	if c.StorageTimeoutSecs < 1 {
		return fmt.Errorf("config error: 'storage_timeout_seconds' must be at least 1")
	}
	if c.MaxResumeBytes < 1 || c.MaxImageBytes < 1 {
		return fmt.Errorf("config error: upload limits must be positive")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535")
	}
	return nil
}

// DB returns the database settings.
func (c *Config) DB() db.Config {
	return db.Config{DatabaseURL: c.DatabaseURL, MaxConns: c.DBMaxConns, TxMaxAttempts: c.TxMaxAttempts}
}

// Artifact returns the artifact store settings.
func (c *Config) Artifact() artifact.Config {
	return artifact.Config{
		Backend: c.ArtifactBackend,
		Root:    c.ArtifactRoot,
		GCS: artifact.GCSConfig{
			Bucket:          c.GCSBucket,
			Prefix:          c.GCSPrefix,
			CredentialsFile: c.GCSCredentialsFile,
			Timeout:         time.Duration(c.StorageTimeoutSecs) * time.Second,
		},
	}
}

// Profile returns the profile service settings.
func (c *Config) Profile() profile.Config {
	cfg := profile.DefaultConfig()
	cfg.Limits = profile.Limits{MaxResumeBytes: c.MaxResumeBytes, MaxImageBytes: c.MaxImageBytes}
	return cfg
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, JSON: c.LogJSON}
}

func envString(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func envInt64(key string, defaultValue int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}
