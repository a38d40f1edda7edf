package wickdeep

import (
	"fmt"
	"os"
	"time"
)

// AppConfig holds server-level runtime configuration loaded from env.
type AppConfig struct {
	Host           string
	Port           int
	ConfigFile     string
	TavilyAPIKey   string
	ThreadTTL      time.Duration
	TraceStoreSize int
}

// LoadAppConfig reads configuration from environment variables. The CLI
// applies its flags on top.
func LoadAppConfig() *AppConfig {
	return &AppConfig{
		Host:           envOr("HOST", "0.0.0.0"),
		Port:           envIntOr("PORT", 8000),
		ConfigFile:     envOr("WICK_CONFIG", "agents.yaml"),
		TavilyAPIKey:   os.Getenv("TAVILY_API_KEY"),
		ThreadTTL:      envDurationOr("THREAD_TTL", time.Hour),
		TraceStoreSize: envIntOr("TRACE_STORE_SIZE", 100),
	}
}

// Options converts the config into server options.
func (c *AppConfig) Options() []Option {
	return []Option{
		WithHost(c.Host),
		WithPort(c.Port),
		WithConfigFile(c.ConfigFile),
		WithTavilyKey(c.TavilyAPIKey),
		WithThreadTTL(c.ThreadTTL),
		WithTraceStoreSize(c.TraceStoreSize),
	}
}

// envOr returns the environment variable or a default value.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envIntOr returns the environment variable as int or a default value.
func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
