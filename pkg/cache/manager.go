package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// DefaultTTL is the lifetime of a stored timetable response (8 hours).
const DefaultTTL = 28800 * time.Second

// Manager handles caching operations with Redis backend.
// Entries are raw response bodies stored with a fixed TTL and are never
// invalidated explicitly.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewManager creates a new cache manager with Redis backend.
// A non-positive ttl falls back to DefaultTTL.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		redis: redisClient,
		ttl:   ttl,
	}
}

// TTL returns the lifetime applied to every stored entry.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get retrieves a cached body by key.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (string, error) {
	value, err := m.redis.Get(ctx, key.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(key.Namespace).Inc()
			return "", ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return "", fmt.Errorf("redis get: %w", err)
	}

	CacheHits.WithLabelValues(key.Namespace).Inc()
	return value, nil
}

// Set stores a body under key with the manager's TTL.
func (m *Manager) Set(ctx context.Context, key CacheKey, value string) error {
	if err := m.redis.Set(ctx, key.String(), value, m.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheStores.WithLabelValues(key.Namespace).Inc()
	CacheStoredBytes.Add(float64(len(value)))
	return nil
}

// Stats returns the raw "INFO stats" section of the cache store.
func (m *Manager) Stats(ctx context.Context) (string, error) {
	info, err := m.redis.Info(ctx, "stats").Result()
	if err != nil {
		CacheErrors.WithLabelValues("stats").Inc()
		return "", fmt.Errorf("redis info: %w", err)
	}
	return info, nil
}

// Ping checks that the cache store is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
