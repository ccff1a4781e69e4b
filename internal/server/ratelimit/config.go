package ratelimit

import (
	"strings"
	"time"

	"github.com/jonathan/recruit-reach/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Path pattern; a "{name}" segment matches any single segment
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// NewConfig builds limiter settings from the [rate_limit] section.
func NewConfig(rc config.RateLimitConfig) *Config {
	if !rc.Enabled {
		return &Config{Enabled: false}
	}

	defaultWindow := rc.DefaultWindow
	if defaultWindow <= 0 {
		defaultWindow = time.Minute
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    rc.DefaultLimit,
		DefaultWindow:   defaultWindow,
		CleanupInterval: rc.CleanupInterval,
		Whitelist:       toSet(rc.Whitelist),
		Blacklist:       toSet(rc.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Model-backed operations
		{Path: "/sessions/{id}/generate", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/sessions/{id}/generate/stream", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/sessions/{id}/extract", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},
		{Path: "/sessions/{id}/research", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},

		// Outbound mail
		{Path: "/sessions/{id}/send", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},

		// Session churn
		{Path: "/sessions", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/sessions/{id}/resume", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

func toSet(list []string) map[string]bool {
	result := make(map[string]bool)
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item != "" {
			result[item] = true
		}
	}
	return result
}
