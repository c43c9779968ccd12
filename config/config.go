// Package config loads the daemon's environment-variable configuration:
// listen address, poll tuning, filter cache size, and trusted-header mode.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the daemon's runtime configuration.
type Config struct {
	Host            string
	Port            int
	PollInterval    time.Duration
	PollBatch       int
	FilterCacheSize int
	TrustedHeaders  bool
	StoreURL        string
}

// Load reads configuration from the environment, applying documented
// defaults for anything unset.
func Load() Config {
	return Config{
		Host:            getString("CORE_HOST", "0.0.0.0"),
		Port:            getInt("CORE_PORT", 8080),
		PollInterval:    time.Duration(getInt("POLL_MS", 500)) * time.Millisecond,
		PollBatch:       getInt("POLL_BATCH", 500),
		FilterCacheSize: getInt("FILTER_CACHE_SIZE", 256),
		TrustedHeaders:  getBool("TRUSTED_HEADERS", false),
		StoreURL:        getString("STORE_URL", ""),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
