package db

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps tokens in Redis, relying on key TTLs for expiry.
// Useful when several terminals share one session.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore creates a token store that namespaces keys with prefix
func NewRedisTokenStore(client *redis.Client, prefix string) *RedisTokenStore {
	return &RedisTokenStore{client: client, prefix: prefix}
}

func (s *RedisTokenStore) key(name string) string {
	return s.prefix + name
}

// GetToken returns "" for a missing or expired key
func (s *RedisTokenStore) GetToken(ctx context.Context, name string) (string, error) {
	value, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

// SetToken stores value until expiresAt. An expiry in the past deletes the key.
func (s *RedisTokenStore) SetToken(ctx context.Context, name, value string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return s.RemoveToken(ctx, name)
	}
	return s.client.Set(ctx, s.key(name), value, ttl).Err()
}

func (s *RedisTokenStore) RemoveToken(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.key(name)).Err()
}

// Close closes the underlying client
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
