package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix is prepended to every key stored in Redis.
const DefaultRedisKeyPrefix = "oembedfixes:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379" or "redis://:password@host:6379/0")
	URL string

	// KeyPrefix namespaces keys (defaults to "oembedfixes:")
	KeyPrefix string
}

// RedisStore implements Store using Redis for distributed storage.
// This is suitable for multi-instance deployments behind a load balancer.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-based cache.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}

	slog.Info("redis cache connected", "prefix", prefix)

	return &RedisStore{
		client: client,
		prefix: prefix,
	}, nil
}

// Get retrieves tables from Redis.
func (s *RedisStore) Get(ctx context.Context, key string) (Tables, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // No cache yet, not an error
		}
		return nil, false, fmt.Errorf("failed to get cache from redis: %w", err)
	}

	var tables Tables
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, false, fmt.Errorf("failed to parse cache from redis: %w", err)
	}

	return tables, true, nil
}

// Set stores tables in Redis with a native expiry.
func (s *RedisStore) Set(ctx context.Context, key string, tables Tables, ttl time.Duration) error {
	data, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+key, data, effectiveTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("failed to set cache in redis: %w", err)
	}

	return nil
}

// Delete removes key from Redis.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache in redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
