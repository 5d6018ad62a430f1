package app

import (
	"os"
	"strconv"
	"time"

	"github.com/driftwoodlabs/didauth/pkg/dpopx"
	"github.com/driftwoodlabs/didauth/pkg/jwtx"
)

type Config struct {
	Issuer string // Required: issuer claim for tokens and discovery documents

	DatabaseFile string // Optional: path to SQLite database file (default: ./authd.db)
	SigningKey   string // Optional: path to ES256 private key PEM (default: ./signing_key.pem, generated if absent)

	RequestTTL    time.Duration // Pushed request lifetime (default: 90s)
	AccessTTL     time.Duration // Access token lifetime (default: 15m)
	RefreshTTL    time.Duration // Refresh token lifetime (default: 14 days)
	NonceTTL      time.Duration // DPoP nonce rotation interval (default: 5m)
	ProofMaxDrift time.Duration // Allowed DPoP proof iat skew (default: 5m)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 5m)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:       os.Getenv("AUTH_ISSUER"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "authd.db"),
		SigningKey:   getEnvOrDefault("AUTH_SIGNING_KEY_FILE", "signing_key.pem"),

		RequestTTL:    getEnvDurationOrDefault("AUTH_REQUEST_TTL", 90*time.Second),
		AccessTTL:     getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:    getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		NonceTTL:      getEnvDurationOrDefault("AUTH_NONCE_TTL", dpopx.DefaultNonceTTL),
		ProofMaxDrift: getEnvDurationOrDefault("AUTH_PROOF_MAX_DRIFT", dpopx.DefaultMaxDrift),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "http://localhost:8080"
	}

	// The services take TTLs at face value, so a non-positive value from
	// the environment is corrected here rather than downstream.
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = 90 * time.Second
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
