package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the rate limit for one endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends in "/"
	Method string        // HTTP method
	Limit  int           // requests per window
	Window time.Duration // refill window
	Burst  int           // bucket capacity, defaults to Limit
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         getEnvDuration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Whitelist:       parseList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the built-in per-endpoint limits.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: uploads write to the artifact store
		{Path: "/me/documents/resume", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/me/documents", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},
		{Path: "/me/profile", Method: "PUT", Limit: 120, Window: time.Hour, Burst: 10},

		// Tier 2: other writes
		{Path: "/me/documents/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/me/documents/", Method: "PUT", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/me/experiences", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/me/experiences/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/me/education", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/me/education/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/me/skills", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/me/skills/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/users/", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},

		// Reads use the default limit; /health and /ready are unlimited.
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseList parses a comma-separated list of client IDs (IPs or user IDs).
func parseList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result[item] = true
		}
	}
	return result
}
