// Package config loads runtime configuration from the environment.
//
// An optional .env file is loaded first; variables already set in the
// process win. Keys are grouped by prefix:
//
//	DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD, DB_SSL_MODE, DB_MAX_CONNS
//	REE_ENDPOINT, REE_TIMEOUT, REE_MAX_CONCURRENCY, REE_MAX_RETRIES,
//	REE_RATE_LIMIT, REE_RATE_BURST, REE_USER_AGENT
//	REDIS_URL, REDIS_CACHE_TTL
//	LOG_LEVEL, LOG_PRETTY
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Sternrassler/ree-datos/pkg/storage"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// DefaultEndpoint is the REE generation structure widget.
const DefaultEndpoint = "https://apidatos.ree.es/es/datos/generacion/estructura-generacion"

// Config is the root configuration object.
//
// Database is validated separately (ValidateDatabase) so commands that never
// connect do not need credentials.
type Config struct {
	Database storage.DatabaseConfig `koanf:"db" validate:"-"`
	REE      REEConfig              `koanf:"ree"`
	Redis    RedisConfig            `koanf:"redis"`
	Log      LogConfig              `koanf:"log"`
}

// REEConfig tunes the API client and batch fetcher.
type REEConfig struct {
	Endpoint       string        `koanf:"endpoint" validate:"required,url"`
	Timeout        time.Duration `koanf:"timeout" validate:"gte=0"`
	MaxConcurrency int           `koanf:"max_concurrency" validate:"gte=0"`
	MaxRetries     int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	RateLimit      float64       `koanf:"rate_limit" validate:"gte=0"`
	RateBurst      int           `koanf:"rate_burst" validate:"gte=0"`
	UserAgent      string        `koanf:"user_agent"`
}

// RedisConfig enables the response cache when URL is set.
type RedisConfig struct {
	URL      string        `koanf:"url" validate:"omitempty,url"`
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

// LogConfig selects log level and console output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Pretty bool   `koanf:"pretty"`
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Database: storage.DatabaseConfig{
			Host:        "localhost",
			Port:        5432,
			SSLMode:     "disable",
			PingTimeout: storage.DefaultPingTimeout,
		},
		REE: REEConfig{
			Endpoint:  DefaultEndpoint,
			UserAgent: "ree-datos/1.0",
		},
		Redis: RedisConfig{
			CacheTTL: 6 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

var prefixes = []string{"DB_", "REE_", "REDIS_", "LOG_"}

var validate = validator.New()

// Load reads envFiles (".env" when none are given; missing files are
// ignored), maps the environment onto Default() and validates the result.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	for _, prefix := range prefixes {
		section := strings.ToLower(strings.TrimSuffix(prefix, "_"))
		err := k.Load(env.Provider(prefix, ".", func(s string) string {
			return section + "." + strings.ToLower(strings.TrimPrefix(s, prefix))
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("load %s environment: %w", prefix, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ValidateDatabase checks the DB_* settings.
func (c *Config) ValidateDatabase() error {
	if err := validate.Struct(c.Database); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	return nil
}
