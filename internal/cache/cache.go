// Package cache provides a Redis-backed cache-aside layer for per-owner lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values in Redis under a common prefix.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a new cache instance.
func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Connect dials Redis at addr and verifies the connection.
func Connect(ctx context.Context, addr, prefix string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(client, prefix, ttl), nil
}

// Get decodes the value stored at key into dest and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return true, nil
}

// Set stores value at key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Delete removes key from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is healthy.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

func categoriesKey(ownerID uint64) string {
	return "categories:" + strconv.FormatUint(ownerID, 10)
}

// GetCategories returns the cached category list of an owner.
func (c *Cache) GetCategories(ctx context.Context, ownerID uint64) ([]string, bool, error) {
	var categories []string
	found, err := c.Get(ctx, categoriesKey(ownerID), &categories)
	if err != nil || !found {
		return nil, false, err
	}
	return categories, true, nil
}

// SetCategories caches the category list of an owner.
func (c *Cache) SetCategories(ctx context.Context, ownerID uint64, categories []string) error {
	return c.Set(ctx, categoriesKey(ownerID), categories)
}

// InvalidateCategories drops the cached category list of an owner.
func (c *Cache) InvalidateCategories(ctx context.Context, ownerID uint64) error {
	return c.Delete(ctx, categoriesKey(ownerID))
}
