// Package config loads the proxy configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all proxy configuration.
type Config struct {
	// BackendURL is the upstream base URL, e.g. https://api.easi.utoronto.ca
	BackendURL string `env:"BACKEND_URL,required"`

	Port int `env:"PORT" envDefault:"3000"`

	// CacheTTLSeconds is the lifetime of every cache entry
	CacheTTLSeconds int `env:"CACHE_TTL" envDefault:"28800"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:4200,http://angular-frontend:4200" envSeparator:","`

	Redis RedisConfig

	CacheTimeout    time.Duration `env:"CACHE_TIMEOUT" envDefault:"2s"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"8s"`
	UserAgent       string        `env:"USER_AGENT" envDefault:"course-checker-cache-proxy"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	// LogBodies logs forwarded request headers and bodies
	LogBodies bool `env:"PROXY_LOG_BODIES" envDefault:"false"`
}

// RedisConfig holds the cache store connection settings.
type RedisConfig struct {
	Host            string `env:"REDIS_HOST" envDefault:"redis"`
	Port            int    `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	DB              int    `env:"REDIS_DB" envDefault:"0"`
	ConnectAttempts int    `env:"REDIS_CONNECT_ATTEMPTS" envDefault:"5"`
}

// Load reads configuration from the process environment and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return finish(&cfg)
}

// LoadFrom reads configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	cfg.AllowedOrigins = cleanList(cfg.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges the environment parser cannot express.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BackendURL)
	switch {
	case c.BackendURL == "":
		errs = append(errs, errors.New("BACKEND_URL must not be empty"))
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid BACKEND_URL: %w", err))
	case (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
		errs = append(errs, fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL))
	}

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1-65535, got %d", c.Port))
	}
	if c.CacheTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %d", c.CacheTTLSeconds))
	}
	if c.CacheTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TIMEOUT must be positive, got %s", c.CacheTimeout))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be between 1-65535, got %d", c.Redis.Port))
	}
	if c.Redis.ConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("REDIS_CONNECT_ATTEMPTS must be at least 1, got %d", c.Redis.ConnectAttempts))
	}

	return errors.Join(errs...)
}

// CacheTTL returns the entry lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// RedisAddr returns host:port of the cache store.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
