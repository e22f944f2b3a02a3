package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"crypto_backend/internal/feature/symbols/usecase"
)

// DefaultMarketTTL is how long an exchange's market set stays cached.
const DefaultMarketTTL = 6 * time.Hour

// CachingMarketLoader decorates a MarketSetLoader with Redis caching.
// Load failures are never cached.
type CachingMarketLoader struct {
	inner usecase.MarketSetLoader
	rdb   *redis.Client
	ttl   time.Duration
}

var _ usecase.MarketSetLoader = (*CachingMarketLoader)(nil)

// NewCachingMarketLoader wraps inner. A nil client disables caching.
func NewCachingMarketLoader(rdb *redis.Client, ttl time.Duration, inner usecase.MarketSetLoader) *CachingMarketLoader {
	if ttl <= 0 {
		ttl = DefaultMarketTTL
	}
	return &CachingMarketLoader{inner: inner, rdb: rdb, ttl: ttl}
}

// Name returns the decorated exchange's name.
func (c *CachingMarketLoader) Name() string {
	return c.inner.Name()
}

// LoadQuoteMarkets returns the cached market set or loads and caches it.
func (c *CachingMarketLoader) LoadQuoteMarkets(ctx context.Context) (map[string]string, error) {
	if c.rdb == nil {
		return c.inner.LoadQuoteMarkets(ctx)
	}

	key := c.cacheKey()
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out map[string]string
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.LoadQuoteMarkets(ctx)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			slog.Warn("failed to cache market set", "exchange", c.inner.Name(), "error", err)
		}
	}
	return out, nil
}

func (c *CachingMarketLoader) cacheKey() string {
	return fmt.Sprintf("markets:%s", safe(c.inner.Name()))
}
