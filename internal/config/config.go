// Package config provides centralized configuration loading for nekostream.
//
// All values come from environment variables. Values are sanitised on read:
// hosting dashboards frequently keep the quotes that were pasted around a
// secret, so wrapping quotes are stripped before whitespace is trimmed.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all nekostream service configuration.
type Config struct {
	// Core
	Port   string
	AppEnv string

	// Hosted Postgres (the backend's relational store)
	DatabaseURL string

	// Hosted auth API
	BackendURL       string
	BackendAnonKey   string
	BackendJWTSecret string

	// Redis (optional). Rate limits and the shared cache degrade to
	// no-op / in-memory without it.
	RedisURL string

	// Episode source resolver
	SugoiAPIURL string
	CacheTTL    time.Duration

	// Error tracking
	SentryDSN string

	// Logging
	LogLevel  string
	LogFormat string
}

// DebugInfo is a redacted view of the backend settings, safe to return from
// /health so operators can see why the backend is considered unconfigured.
type DebugInfo struct {
	URLLength int    `json:"url_length"`
	KeyLength int    `json:"key_length"`
	URLStart  string `json:"url_start"`
	HasHTTPS  bool   `json:"has_https"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	c := &Config{
		Port:   getenv("PORT", "8080"),
		AppEnv: getenv("APP_ENV", "development"),

		DatabaseURL: getenv("DATABASE_URL", ""),

		BackendURL:       getenv("BACKEND_URL", ""),
		BackendAnonKey:   getenv("BACKEND_ANON_KEY", ""),
		BackendJWTSecret: getenv("BACKEND_JWT_SECRET", ""),

		RedisURL: getenv("REDIS_URL", ""),

		SugoiAPIURL: strings.TrimRight(getenv("SUGOI_API_URL", "http://localhost:3000"), "/"),
		CacheTTL:    60 * time.Second,

		SentryDSN: getenv("SENTRY_DSN", ""),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", ""),
	}

	if v := getenv("CACHE_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("CACHE_TTL must be a positive duration, got %q", v)
		}
		c.CacheTTL = d
	}

	if c.LogFormat == "" {
		c.LogFormat = "text"
		if c.IsProduction() {
			c.LogFormat = "json"
		}
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if c.BackendJWTSecret != "" && len(c.BackendJWTSecret) < 32 {
		return nil, fmt.Errorf("BACKEND_JWT_SECRET must be at least 32 characters")
	}

	return c, nil
}

// BackendConfigured reports whether the hosted auth API can be used.
// The URL must look real (start with http), not just be present.
func (c *Config) BackendConfigured() bool {
	return c.BackendURL != "" && c.BackendAnonKey != "" && strings.HasPrefix(c.BackendURL, "http")
}

// DebugInfo returns the redacted backend settings.
func (c *Config) DebugInfo() DebugInfo {
	d := DebugInfo{
		URLLength: len(c.BackendURL),
		KeyLength: len(c.BackendAnonKey),
		URLStart:  "N/A",
		HasHTTPS:  strings.HasPrefix(c.BackendURL, "https://"),
	}
	if c.BackendURL != "" {
		start := c.BackendURL
		if len(start) > 8 {
			start = start[:8]
		}
		d.URLStart = start + "..."
	}
	return d
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Sanitize strips one pair of wrapping double or single quotes, then
// surrounding whitespace.
func Sanitize(v string) string {
	v = strings.TrimPrefix(v, `"`)
	v = strings.TrimSuffix(v, `"`)
	v = strings.TrimPrefix(v, `'`)
	v = strings.TrimSuffix(v, `'`)
	return strings.TrimSpace(v)
}

func getenv(key, fallback string) string {
	if v := Sanitize(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
