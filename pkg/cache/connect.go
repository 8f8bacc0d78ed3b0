package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrConnectExhausted is returned when the cache store never answered PING.
var ErrConnectExhausted = errors.New("cache store connect attempts exhausted")

// StoreOptions describes how to reach the cache store.
type StoreOptions struct {
	Host     string
	Port     int
	Password string
	DB       int

	// OpTimeout bounds dial, read and write on every command
	OpTimeout time.Duration
}

// NewRedisClient builds the single shared redis client.
// go-redis keeps a connection pool and redials on transient failures, so
// callers never see a reconnect; they only see a failed command.
func NewRedisClient(opts StoreOptions) *redis.Client {
	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   2,
	})
}

// RetryConfig holds the configuration for the startup connect loop.
type RetryConfig struct {
	// MaxAttempts is the maximum number of PING attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default connect retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Connect pings the cache store until it answers, with exponential backoff
// and jitter. It must succeed before the proxy accepts traffic.
func Connect(ctx context.Context, client *redis.Client, cfg RetryConfig, logger zerolog.Logger) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := client.Ping(ctx).Err()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Connected to cache store after retry")
			}
			return nil
		}

		lastErr = err
		if attempt >= cfg.MaxAttempts {
			break
		}

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Cache store not reachable, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("connect cache store: %w", ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrConnectExhausted, cfg.MaxAttempts, lastErr)
}
