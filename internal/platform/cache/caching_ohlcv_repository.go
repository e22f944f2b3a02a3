// Package cache provides Redis-backed decorators and coordination primitives.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"crypto_backend/internal/feature/candles/domain/entity"
	"crypto_backend/internal/feature/candles/usecase"
)

// OHLCVStore is the repository decorated by CachingOHLCVRepository.
type OHLCVStore interface {
	usecase.CandleRepository
	usecase.OHLCVRepository
}

// CachingOHLCVRepository decorates an OHLCVStore with Redis caching of reads.
// Writes go straight through and invalidate the symbol's cached views.
type CachingOHLCVRepository struct {
	inner     OHLCVStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	now       func() time.Time
}

var _ OHLCVStore = (*CachingOHLCVRepository)(nil)

// NewCachingOHLCVRepository decorates an OHLCVStore with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "ohlcv".
// Entries never outlive the current UTC day.
func NewCachingOHLCVRepository(rdb *redis.Client, ttl time.Duration, inner OHLCVStore, namespace string) *CachingOHLCVRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "ohlcv"
	}
	return &CachingOHLCVRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
	}
}

// UpsertOHLCV writes records and invalidates cache entries of the affected symbols.
func (c *CachingOHLCVRepository) UpsertOHLCV(ctx context.Context, records []entity.OHLCVRecord) error {
	if err := c.inner.UpsertOHLCV(ctx, records); err != nil {
		return err
	}
	if c.rdb == nil || len(records) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	for _, r := range records {
		prefix := c.cacheKeyPrefix(r.Symbol)
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		_ = c.deleteByPattern(ctx, prefix+"*") // best effort
	}
	return nil
}

// CountBySymbol is not cached; the persister needs the exact count.
func (c *CachingOHLCVRepository) CountBySymbol(ctx context.Context, symbol string) (int64, error) {
	return c.inner.CountBySymbol(ctx, symbol)
}

// Find returns cached bars when present, otherwise reads through and caches.
func (c *CachingOHLCVRepository) Find(ctx context.Context, symbol, exchange string, limit int) ([]entity.OHLCVRecord, error) {
	if c.rdb == nil {
		return c.inner.Find(ctx, symbol, exchange, limit)
	}

	key := c.cacheKey(symbol, exchange, limit)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.OHLCVRecord
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.Find(ctx, symbol, exchange, limit)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, ttlUntilClose(c.ttl, c.now())).Err()
	}
	return out, nil
}

func (c *CachingOHLCVRepository) cacheKey(symbol, exchange string, limit int) string {
	if exchange == "" {
		exchange = "all"
	}
	return fmt.Sprintf("%s:%s:%s:%d", c.namespace, safe(symbol), safe(exchange), limit)
}

func (c *CachingOHLCVRepository) cacheKeyPrefix(symbol string) string {
	return fmt.Sprintf("%s:%s:", c.namespace, safe(symbol))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingOHLCVRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
