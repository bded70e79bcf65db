package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const summaryKeyPrefix = "pdfi:summary:"

// CacheKey identifies an upload by its type and content.
func CacheKey(mimeType string, data []byte) string {
	hash := sha256.New()
	hash.Write([]byte(mimeType))
	hash.Write([]byte{0})
	hash.Write(data)
	return summaryKeyPrefix + hex.EncodeToString(hash.Sum(nil))
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("redis addr is empty")
	}
	if ttl < 0 {
		return nil, errors.New("cache ttl is negative")
	}

	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, errors.New("redis cache is nil")
	}

	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}

	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, summary string) error {
	if c == nil || c.client == nil {
		return errors.New("redis cache is nil")
	}

	if err := c.client.Set(ctx, key, summary, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

func (c *RedisCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

type nopCache struct{}

func (nopCache) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (nopCache) Set(ctx context.Context, key string, summary string) error {
	return nil
}
