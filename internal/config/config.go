// Package config loads settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Token store backends
const (
	TokenStoreSQLite = "sqlite"
	TokenStoreRedis  = "redis"
)

// Config holds the client settings
type Config struct {
	APIURL      string
	DataDir     string
	TokenStore  string
	RedisAddr   string
	RedisPrefix string
	HTTPTimeout time.Duration
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	LogLevel    slog.Level
	LogFile     string
}

// Load reads the client configuration from the environment
func Load() (Config, error) {
	dataDir, err := dataDir()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:      getEnv("TASKSYNC_API_URL", "http://localhost:3000/api"),
		DataDir:     dataDir,
		TokenStore:  strings.ToLower(getEnv("TASKSYNC_TOKEN_STORE", TokenStoreSQLite)),
		RedisAddr:   getEnv("TASKSYNC_REDIS_ADDR", "localhost:6379"),
		RedisPrefix: getEnv("TASKSYNC_REDIS_PREFIX", "tasksync:"),
		HTTPTimeout: getEnvDuration("TASKSYNC_HTTP_TIMEOUT", 0),
		AccessTTL:   getEnvDuration("TASKSYNC_ACCESS_TTL", time.Hour),
		RefreshTTL:  getEnvDuration("TASKSYNC_REFRESH_TTL", 7*24*time.Hour),
		LogFile:     getEnv("TASKSYNC_LOG_FILE", filepath.Join(dataDir, "tasksync.log")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("TASKSYNC_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("TASKSYNC_LOG_LEVEL: %w", err)
	}

	switch cfg.TokenStore {
	case TokenStoreSQLite, TokenStoreRedis:
	default:
		return Config{}, fmt.Errorf("TASKSYNC_TOKEN_STORE: unknown backend %q", cfg.TokenStore)
	}

	return cfg, nil
}

// DevAPI holds the development server settings
type DevAPI struct {
	Addr       string
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	LogLevel   slog.Level
}

// LoadDevAPI reads the development server configuration from the environment
func LoadDevAPI() (DevAPI, error) {
	cfg := DevAPI{
		Addr:       getEnv("TASKSYNC_DEVAPI_ADDR", ":3000"),
		Secret:     getEnv("TASKSYNC_DEVAPI_SECRET", "tasksync-dev-secret"),
		AccessTTL:  getEnvDuration("TASKSYNC_DEVAPI_ACCESS_TTL", time.Hour),
		RefreshTTL: getEnvDuration("TASKSYNC_DEVAPI_REFRESH_TTL", 7*24*time.Hour),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("TASKSYNC_LOG_LEVEL", "info"))); err != nil {
		return DevAPI{}, fmt.Errorf("TASKSYNC_LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// dataDir resolves TASKSYNC_DATA_DIR, then the XDG data directory, then
// ~/.local/share
func dataDir() (string, error) {
	if dir := os.Getenv("TASKSYNC_DATA_DIR"); dir != "" {
		return dir, nil
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "tasksync"), nil
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		slog.Warn("invalid duration, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}
