// Package config loads server configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	Environment string // "development", "production", "testing"

	// DBPath is the primary (sqlite) store location. FallbackPath is
	// the JSON file the degraded store uses when the primary cannot
	// be opened at startup.
	DBPath       string
	FallbackPath string

	// AllowedDomains are the serving domains spaces may bind to. The
	// first entry is the default domain, used for the implicit
	// "Default" space and for requests from unrecognized hosts.
	AllowedDomains []string

	// APIPathPrefixes lists owner-scoped paths whose responses are
	// consumed programmatically; the identity resolver never answers
	// them with a redirect.
	APIPathPrefixes []string

	// CookieMaxAge applies to the owner and activeSpace cookies.
	CookieMaxAge time.Duration

	RateLimitRate  int // requests refilled per interval
	RateLimitBurst int

	LogLevel  string // "debug", "info", "warn", "error"
	LogFormat string // "json", "text"
}

// Load reads configuration from environment variables. A .env file is
// honored when present and silently ignored otherwise.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		DBPath:          getEnv("DB_PATH", "linkspace.db"),
		FallbackPath:    getEnv("FALLBACK_PATH", "data/urls.json"),
		AllowedDomains:  splitList(getEnv("ALLOWED_DOMAINS", "localhost")),
		APIPathPrefixes: splitList(getEnv("API_PATH_PREFIXES", "/export")),
		CookieMaxAge:    getDurationEnv("COOKIE_MAX_AGE", 365*24*time.Hour),
		RateLimitRate:   getIntEnv("RATE_LIMIT_RATE", 10),
		RateLimitBurst:  getIntEnv("RATE_LIMIT_BURST", 20),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that would misbehave at
// runtime rather than fail fast.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s (must be 1-65535)", c.Port)
	}
	switch c.Environment {
	case "development", "production", "testing":
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}
	if len(c.AllowedDomains) == 0 {
		return fmt.Errorf("at least one allowed domain is required")
	}
	for _, d := range c.AllowedDomains {
		if d == "" {
			return fmt.Errorf("allowed domain must not be empty")
		}
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	return nil
}

// DefaultDomain is the domain used for implicit spaces and
// unrecognized request hosts.
func (c *Config) DefaultDomain() string {
	return c.AllowedDomains[0]
}

// DomainAllowed reports whether domain is in the allowed list.
func (c *Config) DomainAllowed(domain string) bool {
	for _, d := range c.AllowedDomains {
		if d == domain {
			return true
		}
	}
	return false
}

// IsProduction reports whether the server runs in production mode.
// Cookies are marked Secure and internal error detail is withheld from
// responses in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
