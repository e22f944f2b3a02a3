// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"crypto_backend/internal/config"
	candlesusecase "crypto_backend/internal/feature/candles/usecase"
	symbolsusecase "crypto_backend/internal/feature/symbols/usecase"
	"crypto_backend/internal/platform/cache"
	"crypto_backend/internal/platform/externalapi/binance"
	"crypto_backend/internal/platform/externalapi/coinbase"
	"crypto_backend/internal/platform/externalapi/coingecko"
	"crypto_backend/internal/platform/externalapi/kraken"
	infrahttp "crypto_backend/internal/platform/http"
)

// exchangeClient is what every exchange client provides: candles and its market set.
type exchangeClient interface {
	candlesusecase.Source
	symbolsusecase.MarketSetLoader
}

// Markets groups the external market-data clients.
type Markets struct {
	// Listing is the ranked market listing used to build the directory.
	Listing symbolsusecase.MarketListing
	// Sources are the OHLCV sources in priority order.
	Sources []candlesusecase.Source
	// Loaders resolve each exchange's trading pairs, cached in Redis when available.
	Loaders []symbolsusecase.MarketSetLoader
}

// NewMarkets creates the CoinGecko client and the configured exchange clients.
// rdb may be nil, in which case market sets are not cached.
func NewMarkets(s *config.Settings, rdb *redis.Client) (*Markets, error) {
	gecko := coingecko.NewClient(coingecko.Config{
		BaseURL:        s.CoinGecko.BaseURL,
		APIKey:         s.CoinGecko.APIKey,
		CallsPerMinute: s.CoinGecko.CallsPerMinute,
		Timeout:        s.CoinGecko.Timeout,
	}, infrahttp.NewHTTPClient(s.CoinGecko.Timeout))

	m := &Markets{Listing: gecko}
	for _, e := range s.EnabledExchanges() {
		client, err := newExchangeClient(e)
		if err != nil {
			return nil, err
		}
		m.Sources = append(m.Sources, client)
		m.Loaders = append(m.Loaders, cache.NewCachingMarketLoader(rdb, s.Redis.MarketTTL, client))
	}
	if s.CoinGecko.UseCoinGeckoOHLCV() {
		m.Sources = append(m.Sources, gecko)
	}
	return m, nil
}

func newExchangeClient(e config.ExchangeConfig) (exchangeClient, error) {
	httpClient := infrahttp.NewHTTPClient(e.Timeout)

	switch e.Name {
	case binance.Name:
		return binance.NewClient(binance.Config{BaseURL: e.BaseURL, RequestDelay: e.RequestDelay, Timeout: e.Timeout}, httpClient), nil
	case coinbase.Name:
		return coinbase.NewClient(coinbase.Config{BaseURL: e.BaseURL, RequestDelay: e.RequestDelay, Timeout: e.Timeout}, httpClient), nil
	case kraken.Name:
		return kraken.NewClient(kraken.Config{BaseURL: e.BaseURL, RequestDelay: e.RequestDelay, Timeout: e.Timeout}, httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported exchange %q", e.Name)
	}
}
