package llm

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores completions in Redis keyed by a digest of the full request,
// so identical prompts against the same model hit the cache instead of the
// inference backend.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(req Request) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%.2f|%d", req.Model, req.Prompt, req.Temperature, req.MaxTokens)))
	return fmt.Sprintf("llm:cache:%x", sum)
}

// Get returns the cached completion for req, or ok=false on miss.
func (c *Cache) Get(ctx context.Context, req Request) (string, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(req)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, req Request, completion string) error {
	if err := c.client.Set(ctx, cacheKey(req), completion, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
