package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Session storage backends
const (
	SessionStoreMemory = "memory"
	SessionStoreSQLite = "sqlite"
)

type Config struct {
	ServerPort  string
	Environment string
	DBPath      string
	// Sessions
	SessionStore      string
	SessionCookieName string
	SessionTTL        time.Duration
	SecureCookies     bool
	// Forms
	CSRFTokenTTL   time.Duration
	FormRateLimit  int
	AllowedOrigins []string
	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using system environment variables")
	}

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		DBPath:            getEnv("DB_PATH", "db/site.db"),
		SessionStore:      strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "agency_session"),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		CSRFTokenTTL:      time.Duration(getEnvInt("CSRF_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		FormRateLimit:     getEnvInt("FORM_RATE_LIMIT", 10),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	// Production defaults to secure cookies and JSON logs
	cfg.SecureCookies = getEnvBool("SECURE_COOKIES", cfg.IsProduction())
	defaultFormat := "console"
	if cfg.IsProduction() {
		defaultFormat = "json"
	}
	cfg.LogFormat = getEnv("LOG_FORMAT", defaultFormat)

	return cfg
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreSQLite:
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q (want %s or %s)", c.SessionStore, SessionStoreMemory, SessionStoreSQLite)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if c.CSRFTokenTTL <= 0 {
		return fmt.Errorf("CSRF_TOKEN_TTL_MINUTES must be positive")
	}
	if c.FormRateLimit <= 0 {
		return fmt.Errorf("FORM_RATE_LIMIT must be positive")
	}
	if c.SessionStore == SessionStoreSQLite && c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required when SESSION_STORE=%s", SessionStoreSQLite)
	}
	return nil
}

// IsProduction reports whether the site runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Debug().Str("key", key).Str("default", defaultValue).Msg("Using default value")
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric value")
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}
