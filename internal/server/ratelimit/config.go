package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the bucket shape for one route. Paths ending in "/"
// match by prefix.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	// Burst defaults to Limit when zero.
	Burst int
}

// Generation endpoints spend model budget, so they get their own knobs.
const (
	defaultGenerateLimit  = 30
	defaultGenerateWindow = time.Hour
	defaultGenerateBurst  = 5
)

// LoadConfig reads RATE_LIMIT_* variables. Malformed values fall back to
// their defaults.
func LoadConfig() *Config {
	if !envOr("RATE_LIMIT_ENABLED", true, strconv.ParseBool) {
		return &Config{Enabled: false}
	}

	generate := EndpointConfig{
		Limit:  envOr("RATE_LIMIT_GENERATE_LIMIT", defaultGenerateLimit, strconv.Atoi),
		Window: envOr("RATE_LIMIT_GENERATE_WINDOW", defaultGenerateWindow, time.ParseDuration),
		Burst:  envOr("RATE_LIMIT_GENERATE_BURST", defaultGenerateBurst, strconv.Atoi),
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envOr("RATE_LIMIT_DEFAULT_LIMIT", 1000, strconv.Atoi),
		DefaultWindow:   envOr("RATE_LIMIT_DEFAULT_WINDOW", time.Minute, time.ParseDuration),
		CleanupInterval: envOr("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute, time.ParseDuration),
		IdleTimeout:     envOr("RATE_LIMIT_IDLE_TIMEOUT", time.Hour, time.ParseDuration),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: endpointConfigs(generate),
	}
}

// DefaultEndpointConfigs returns the built-in per-route limits.
func DefaultEndpointConfigs() []EndpointConfig {
	return endpointConfigs(EndpointConfig{
		Limit:  defaultGenerateLimit,
		Window: defaultGenerateWindow,
		Burst:  defaultGenerateBurst,
	})
}

func endpointConfigs(generate EndpointConfig) []EndpointConfig {
	submit, stream := generate, generate
	submit.Path, submit.Method = "/jobs", "POST"
	stream.Path, stream.Method = "/jobs/stream", "POST"
	return []EndpointConfig{
		submit,
		stream,
		{Path: "/jobs/", Method: "GET", Limit: 600, Window: time.Minute, Burst: 60},
	}
}

func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

// parseIPList turns "a, b,c" into a set.
func parseIPList(list string) map[string]bool {
	set := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}
