package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const cacheKeyPrefix = "price:"

// Cache keeps the last successful price per ticker in Redis for a short TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns nil when caching is disabled, which Lookup treats as "no cache".
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil || ttl <= 0 {
		return nil
	}

	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached price and whether it was present.
func (c *Cache) Get(ctx context.Context, ticker string) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(ticker)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("get cached price: %w", err)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("decode cached price: %w", err)
	}

	return price, true, nil
}

func (c *Cache) Set(ctx context.Context, ticker string, price decimal.Decimal) error {
	if err := c.client.Set(ctx, cacheKey(ticker), price.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached price: %w", err)
	}
	return nil
}

func cacheKey(ticker string) string {
	return cacheKeyPrefix + strings.ToUpper(ticker)
}
