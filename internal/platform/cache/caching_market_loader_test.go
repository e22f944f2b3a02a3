package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMarketLoader struct {
	name  string
	calls int
	fn    func(ctx context.Context) (map[string]string, error)
}

func (m *mockMarketLoader) Name() string { return m.name }

func (m *mockMarketLoader) LoadQuoteMarkets(ctx context.Context) (map[string]string, error) {
	m.calls++
	return m.fn(ctx)
}

func krakenMarkets() map[string]string {
	return map[string]string{"BTC": "XBTUSD", "ETH": "ETHUSD"}
}

func TestCachingMarketLoader_CacheMiss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	inner := &mockMarketLoader{name: "kraken", fn: func(ctx context.Context) (map[string]string, error) {
		return krakenMarkets(), nil
	}}
	expectedJSON, _ := json.Marshal(krakenMarkets())
	mock.ExpectGet("markets:kraken").RedisNil()
	mock.ExpectSet("markets:kraken", expectedJSON, time.Hour).SetVal("OK")

	loader := NewCachingMarketLoader(rdb, time.Hour, inner)
	got, err := loader.LoadQuoteMarkets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, krakenMarkets(), got)
	assert.Equal(t, "kraken", loader.Name())
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingMarketLoader_CacheHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, _ := json.Marshal(krakenMarkets())
	mock.ExpectGet("markets:kraken").SetVal(string(cached))

	inner := &mockMarketLoader{name: "kraken", fn: func(ctx context.Context) (map[string]string, error) {
		return nil, errors.New("must not be called")
	}}
	got, err := NewCachingMarketLoader(rdb, 0, inner).LoadQuoteMarkets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, krakenMarkets(), got)
	assert.Zero(t, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingMarketLoader_InnerErrorNotCached(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("markets:binance").RedisNil()

	inner := &mockMarketLoader{name: "binance", fn: func(ctx context.Context) (map[string]string, error) {
		return nil, errors.New("http 503")
	}}
	_, err := NewCachingMarketLoader(rdb, time.Hour, inner).LoadQuoteMarkets(context.Background())
	assert.ErrorContains(t, err, "http 503")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingMarketLoader_NilRedis(t *testing.T) {
	t.Parallel()

	inner := &mockMarketLoader{name: "coinbase", fn: func(ctx context.Context) (map[string]string, error) {
		return map[string]string{"BTC": "BTC-USD"}, nil
	}}
	loader := NewCachingMarketLoader(nil, time.Hour, inner)

	for range 2 {
		_, err := loader.LoadQuoteMarkets(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, DefaultMarketTTL, NewCachingMarketLoader(nil, 0, inner).ttl)
}
