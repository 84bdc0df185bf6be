// Package cache manipulates the serving gateway's derivative cache,
// which lives in Redis keyed by relative asset path. The core only
// ever removes keys; the gateway repopulates them on miss.
package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	Redis     redis.UniversalClient
	Namespace string
}

// Create cache handle bound to the gateway's key namespace
func NewCache(namespace string, redisCl redis.UniversalClient) *Cache {
	return &Cache{
		Namespace: namespace,
		Redis:     redisCl,
	}
}

// Remove drops the cache entry for one relative asset path.
func (c *Cache) Remove(ctx context.Context, key string) error {
	cmd := c.Redis.Del(ctx, c.Namespace+":"+key)
	return cmd.Err()
}

// RemovePrefix drops every cache entry under a folder namespace, e.g.
// "articles/000123". Used when a whole entity folder is mutated.
func (c *Cache) RemovePrefix(ctx context.Context, prefix string) error {
	keys := c.Redis.Keys(ctx, c.Namespace+":"+prefix+"*")
	//using pipeline to delete keys efficiently
	pl := c.Redis.Pipeline()

	for _, key := range keys.Val() {
		pl.Del(ctx, key)
	}

	_, err := pl.Exec(ctx)
	return err
}
