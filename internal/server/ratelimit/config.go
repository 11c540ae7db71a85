package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one route.
type EndpointConfig struct {
	// Path is a route pattern. A "*" segment matches any single segment and a
	// trailing "/" matches any suffix.
	Path   string
	Method string
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig loads rate limiting configuration from environment variables.
//
//	RATE_LIMIT_ENABLED   (default true)
//	RATE_LIMIT_DEFAULT   requests per window for ordinary routes (default 600)
//	RATE_LIMIT_WINDOW    window for the default limit (default 1m)
//	RATE_LIMIT_ORACLE    oracle-backed requests per hour (default 60)
//	RATE_LIMIT_WHITELIST, RATE_LIMIT_BLACKLIST comma-separated client IPs
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT", 600),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(getEnvInt("RATE_LIMIT_ORACLE", 60)),
	}
}

// DefaultEndpointConfigs returns the route limits. oraclePerHour caps the
// routes that call the content oracle.
func DefaultEndpointConfigs(oraclePerHour int) []EndpointConfig {
	oracleBurst := max(1, oraclePerHour/10)
	return []EndpointConfig{
		// Oracle calls: question generation and AI evaluation
		{Path: "/interviews", Method: "POST", Limit: oraclePerHour, Window: time.Hour, Burst: oracleBurst},
		{Path: "/interviews/*/ai-evaluation", Method: "POST", Limit: oraclePerHour, Window: time.Hour, Burst: oracleBurst},

		// Credential endpoints
		{Path: "/auth/login", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Path: "/auth/register", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},

		// Uploads run text extraction
		{Path: "/resume", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
	}
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
