package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is prepended to the key of every Redis-backed store.
const DefaultRedisPrefix = "propdesk"

// Redis keeps the token under a single key.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis returns a store writing to prefix:key. A zero ttl keeps the token
// until it is cleared.
func NewRedis(client *redis.Client, prefix, key string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if key == "" {
		key = DefaultKey
	}
	return &Redis{
		client: client,
		key:    prefix + ":" + key,
		ttl:    ttl,
	}
}

// Key returns the Redis key in use.
func (r *Redis) Key() string { return r.key }

// Load reads the token. A missing key is not an error.
func (r *Redis) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("tokenstore: redis get: %w", err)
	}
	return token, nil
}

// Save writes the token with the configured TTL.
func (r *Redis) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("tokenstore: redis set: %w", err)
	}
	return nil
}

// Clear deletes the key.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("tokenstore: redis del: %w", err)
	}
	return nil
}
