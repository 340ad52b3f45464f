// Package cache holds the short-TTL, read-mostly product memoization
// mentioned in spec.md §6: name and price are cacheable, available
// stock never is. Grounded on the cache-aside pattern in
// sandy2008-workshop/software/go_cache_patterns/pattern4_redis_cache.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProductView is the cacheable slice of a Product: identity-ish
// fields that don't change once a product is created. AvailableStock
// is deliberately excluded so a stale cache entry can never cause an
// oversell.
type ProductView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalStock int    `json:"total_stock"`
	PriceCents int64  `json:"price_cents"`
}

type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &ProductCache{client: client, ttl: ttl}
}

func productKey(id string) string {
	return "product:" + id
}

func (c *ProductCache) Get(ctx context.Context, productID string) (ProductView, bool, error) {
	raw, err := c.client.Get(ctx, productKey(productID)).Result()
	if err == redis.Nil {
		return ProductView{}, false, nil
	}
	if err != nil {
		return ProductView{}, false, err
	}

	var v ProductView
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return ProductView{}, false, err
	}
	return v, true, nil
}

func (c *ProductCache) Set(ctx context.Context, v ProductView) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(v.ID), payload, c.ttl).Err()
}
