// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/assistctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Game constants — single source of truth, matches the mobile app rules
// --------------------------------------------------------------------------

const (
	// MaxTeamSize is the roster limit for a fantasy team.
	MaxTeamSize = 15

	// TransferPenaltyPoints is the cost of each transfer beyond the free
	// allowance.
	TransferPenaltyPoints = 4
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	TeamsTable      = "fantasy_teams"
	RidersTable     = "riders"
	RacesTable      = "races"
	DismissalsTable = "trigger_dismissals"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Gemini text generation
	GeminiAPIKey     string
	GeminiModel      string
	GeminiDailyLimit int

	// Trigger engine windows
	TriggerCooldown time.Duration
	DismissWindow   time.Duration

	// Coordinator timers
	IdleCheckInterval time.Duration
	IdleThreshold     time.Duration
	SessionTTL        time.Duration

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("ASSIST_DATABASE_URL", envOr("DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("ASSIST_DATABASE_URL or DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		GeminiAPIKey:     envOr("GEMINI_API_KEY", ""),
		GeminiModel:      envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiDailyLimit: envInt("GEMINI_DAILY_LIMIT", 100),

		TriggerCooldown: envDur("TRIGGER_COOLDOWN", 5*time.Minute),
		DismissWindow:   envDur("TRIGGER_DISMISS_WINDOW", 24*time.Hour),

		IdleCheckInterval: envDur("IDLE_CHECK_INTERVAL", 10*time.Second),
		IdleThreshold:     envDur("IDLE_THRESHOLD", 30*time.Second),
		SessionTTL:        envDur("SESSION_TTL", 2*time.Hour),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
