// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process settings read from the environment.
type Config struct {
	Port         string
	AllowOrigins []string
	LogLevel     string
	LogFormat    string // "text" or "json"

	// JWTSecret enables token checks on the websocket upgrade when set.
	JWTSecret string

	RedisAddr     string // Empty disables the action historian.
	RedisPassword string
	RedisDB       int

	DatabaseURL string // Empty disables game result storage.

	TurnTimeout time.Duration // Zero disables the turn timer.
}

// Load reads .env files (if present) into the process environment and then
// parses the configuration. Variables already set win over .env entries.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv parses the configuration using getenv for lookups.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(k, d string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return d
	}

	cfg := &Config{
		Port:          get("PORT", "8080"),
		LogLevel:      get("LOG_LEVEL", "info"),
		LogFormat:     strings.ToLower(get("LOG_FORMAT", "text")),
		JWTSecret:     getenv("JWT_SECRET"),
		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD"),
		DatabaseURL:   get("DATABASE_URL", ""),
	}

	allow := get("ORIGIN_ALLOWLIST", "http://localhost:"+cfg.Port+",http://127.0.0.1:"+cfg.Port)
	for _, o := range strings.Split(allow, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	db, err := strconv.Atoi(get("REDIS_DB", "0"))
	if err != nil || db < 0 {
		return nil, fmt.Errorf("invalid REDIS_DB %q", getenv("REDIS_DB"))
	}
	cfg.RedisDB = db

	secs, err := strconv.Atoi(get("TURN_TIMEOUT_SEC", "0"))
	if err != nil || secs < 0 {
		return nil, fmt.Errorf("invalid TURN_TIMEOUT_SEC %q", getenv("TURN_TIMEOUT_SEC"))
	}
	cfg.TurnTimeout = time.Duration(secs) * time.Second

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }
