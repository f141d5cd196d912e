package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LogConfig controls the global slog handler.
type LogConfig struct {
	Level     string
	Format    string
	Component string
	Source    bool
}

type DBConfig struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EngineConfig tunes the matching and messaging core.
type EngineConfig struct {
	// FeedLimit caps the number of candidates returned per Feed call.
	FeedLimit int
	// AdmirerPageSize is the page size for "liked you" listings.
	AdmirerPageSize int
	// RetryBudget bounds optimistic retries on decision/match writes.
	RetryBudget int
	// RetryBackoff is the pause between retry attempts.
	RetryBackoff time.Duration
	// Languages is the injected catalog of supported exchange languages.
	Languages []string
}

type Config struct {
	Log    LogConfig
	DB     DBConfig
	Redis  RedisConfig
	Engine EngineConfig
}

// defaultLanguages seeds the catalog when LANGUAGES is unset.
// The catalog is configuration, not a baked-in table: deployments
// override it with a comma-separated LANGUAGES value.
var defaultLanguages = []string{
	"English", "Spanish", "French", "German", "Italian",
	"Portuguese", "Mandarin", "Japanese", "Korean", "Arabic",
}

func New() *Config {
	cfg := &Config{}

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "match_engine")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "readmylips")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// Engine
	cfg.Engine.FeedLimit = getEnvInt("FEED_LIMIT", 50)
	cfg.Engine.AdmirerPageSize = getEnvInt("ADMIRER_PAGE_SIZE", 5)
	cfg.Engine.RetryBudget = getEnvInt("RETRY_BUDGET", 3)
	cfg.Engine.RetryBackoff = getEnvDuration("RETRY_BACKOFF", 25*time.Millisecond)
	cfg.Engine.Languages = splitList(os.Getenv("LANGUAGES"))
	if len(cfg.Engine.Languages) == 0 {
		cfg.Engine.Languages = defaultLanguages
	}

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
