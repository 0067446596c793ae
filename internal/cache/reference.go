package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/config"
)

const referenceKeyPrefix = "pitwall:ref:"

// ReferenceCache stores JSON-encodable reference data (schedule, standings, resolved sessions)
type ReferenceCache interface {
	// Get decodes the entry for key into dest; found is false on a miss
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryReferenceCache keeps encoded entries in process memory
type MemoryReferenceCache struct {
	store *gocache.Cache
}

// NewMemoryReferenceCache creates an in-process reference cache
func NewMemoryReferenceCache(cleanupInterval time.Duration) *MemoryReferenceCache {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	return &MemoryReferenceCache{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get implements ReferenceCache
func (m *MemoryReferenceCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	v, found := m.store.Get(key)
	if !found {
		return false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set implements ReferenceCache
func (m *MemoryReferenceCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	m.store.Set(key, data, ttl)
	return nil
}

// Delete implements ReferenceCache
func (m *MemoryReferenceCache) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Close implements ReferenceCache
func (m *MemoryReferenceCache) Close() error {
	m.store.Flush()
	return nil
}

// RedisReferenceCache shares reference entries between replicas through Redis
type RedisReferenceCache struct {
	client *redis.Client
}

// NewRedisReferenceCache connects to Redis and verifies the connection
func NewRedisReferenceCache(ctx context.Context, addr, password string, db int) (*RedisReferenceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisReferenceCache{client: client}, nil
}

// Get implements ReferenceCache
func (r *RedisReferenceCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := r.client.Get(ctx, referenceKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set implements ReferenceCache
func (r *RedisReferenceCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return r.client.Set(ctx, referenceKeyPrefix+key, data, ttl).Err()
}

// Delete implements ReferenceCache
func (r *RedisReferenceCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, referenceKeyPrefix+key).Err()
}

// Close implements ReferenceCache
func (r *RedisReferenceCache) Close() error {
	return r.client.Close()
}

// NewReferenceCache builds the configured backend. When Redis is unreachable it
// falls back to memory so the dashboard keeps working.
func NewReferenceCache(ctx context.Context, cfg *config.Config, logger *logrus.Logger) ReferenceCache {
	if cfg.ReferenceCache.Backend == config.CacheBackendRedis {
		rc, err := NewRedisReferenceCache(ctx, cfg.RedisAddress(), cfg.ReferenceCache.Redis.Password, cfg.ReferenceCache.Redis.DB)
		if err == nil {
			return rc
		}
		logger.WithError(err).Warn("Redis reference cache unavailable, using in-memory cache")
	}
	return NewMemoryReferenceCache(defaultCleanupInterval)
}

// Fetch returns the cached value for key, or loads, stores and returns it. Cache
// failures are logged and never fail the call.
func Fetch[T any](ctx context.Context, rc ReferenceCache, logger logrus.FieldLogger, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	found, err := rc.Get(ctx, key, &cached)
	if err != nil {
		logger.WithError(err).WithField("key", key).Warn("Reference cache read failed")
	} else if found {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := rc.Set(ctx, key, value, ttl); err != nil {
		logger.WithError(err).WithField("key", key).Warn("Reference cache write failed")
	}
	return value, nil
}
