package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MinJWTSecretLength is the shortest accepted HMAC signing secret.
const MinJWTSecretLength = 32

// JWTConfig holds the settings used to verify bearer tokens issued by the
// identity service, and to mint development tokens from the CLI.
type JWTConfig struct {
	Secret          string
	Issuer          string // when set, tokens must carry this iss claim
	ExpirationHours int    // lifetime of tokens minted by the CLI
}

// NewJWTConfig creates a JWT configuration from environment variables.
// It reads JWT_SECRET (required), JWT_ISSUER (optional) and
// JWT_EXPIRATION_HOURS (default: 24).
func NewJWTConfig() (*JWTConfig, error) {
	expirationHours, err := envInt("JWT_EXPIRATION_HOURS", 24)
	if err != nil {
		return nil, err
	}

	cfg := &JWTConfig{
		Secret:          os.Getenv("JWT_SECRET"),
		Issuer:          strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		ExpirationHours: expirationHours,
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	if len(c.Secret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes, got: %d", MinJWTSecretLength, len(c.Secret))
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %s", strconv.Itoa(c.ExpirationHours))
	}
	return nil
}
