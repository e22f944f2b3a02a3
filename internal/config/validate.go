package config

import (
	"errors"
	"fmt"
)

// knownExchanges are the OHLCV sources the service has clients for.
var knownExchanges = map[string]bool{"binance": true, "coinbase": true, "kraken": true}

// Validate checks that all values are usable.
func (s *Settings) Validate() error {
	if s.CoinGecko.TargetCount < 1 {
		return errors.New("coingecko.target_count must be >= 1")
	}
	if s.CoinGecko.PageSize < 1 || s.CoinGecko.PageSize > 250 {
		return errors.New("coingecko.page_size must be between 1 and 250")
	}
	if s.CoinGecko.CallsPerMinute < 1 {
		return errors.New("coingecko.calls_per_minute must be >= 1")
	}

	if s.Directory.MinVolume24h < 0 {
		return errors.New("directory.min_volume_24h must be >= 0")
	}
	if s.Directory.MinMarketCap < 0 {
		return errors.New("directory.min_market_cap must be >= 0")
	}

	seen := make(map[string]bool, len(s.Exchanges))
	for i, e := range s.Exchanges {
		if !knownExchanges[e.Name] {
			return fmt.Errorf("exchanges[%d].name %q is not a supported exchange", i, e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("exchanges[%d].name %q is listed twice", i, e.Name)
		}
		seen[e.Name] = true
		if e.RequestDelay < 0 {
			return fmt.Errorf("exchanges[%d].request_delay must be >= 0", i)
		}
	}
	if len(s.EnabledExchanges()) == 0 && !s.CoinGecko.UseCoinGeckoOHLCV() {
		return errors.New("at least one OHLCV source must be enabled")
	}

	if s.Sync.LookbackYears < 1 {
		return errors.New("sync.lookback_years must be >= 1")
	}
	if s.Sync.MaxConcurrency < 1 {
		return errors.New("sync.max_concurrency must be >= 1")
	}
	if s.Sync.BatchSize < 1 {
		return errors.New("sync.batch_size must be >= 1")
	}
	if s.Sync.PageLimit < 1 {
		return errors.New("sync.page_limit must be >= 1")
	}
	if s.Sync.MaxRetries < 0 {
		return errors.New("sync.max_retries must be >= 0")
	}
	if s.Sync.MaxMagnitude <= 0 {
		return errors.New("sync.max_magnitude must be > 0")
	}

	return nil
}
