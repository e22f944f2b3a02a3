// Package config はパイプラインの設定（YAML）を読み込みます。
// DB・Redis・JWT の接続情報は環境変数から読み込み、ここでは扱いません。
package config

import "time"

// Settings is the root pipeline configuration.
type Settings struct {
	CoinGecko CoinGeckoConfig  `yaml:"coingecko"`
	Directory DirectoryConfig  `yaml:"directory"`
	Exchanges []ExchangeConfig `yaml:"exchanges"`
	Sync      SyncConfig       `yaml:"sync"`
	Redis     RedisConfig      `yaml:"redis"`
	Server    ServerConfig     `yaml:"server"`
}

// CoinGeckoConfig holds the market listing settings.
type CoinGeckoConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Timeout        time.Duration `yaml:"timeout"`
	TargetCount    int           `yaml:"target_count"`
	PageSize       int           `yaml:"page_size"`
	CallsPerMinute int           `yaml:"calls_per_minute"`
	// OHLCVFallback adds CoinGecko as the last OHLCV source.
	OHLCVFallback *bool `yaml:"ohlcv_fallback"`
}

// DirectoryConfig holds the listing filters.
type DirectoryConfig struct {
	MinVolume24h    float64 `yaml:"min_volume_24h"`
	MinMarketCap    float64 `yaml:"min_market_cap"`
	PageConcurrency int     `yaml:"page_concurrency"`
}

// ExchangeConfig is one OHLCV source. Order in the list is priority order.
type ExchangeConfig struct {
	Name         string        `yaml:"name"`
	BaseURL      string        `yaml:"base_url"`
	RequestDelay time.Duration `yaml:"request_delay"`
	Timeout      time.Duration `yaml:"timeout"`
	Disabled     bool          `yaml:"disabled"`
}

// SyncConfig holds planner, fetcher, persister and orchestrator settings.
type SyncConfig struct {
	LookbackYears  int           `yaml:"lookback_years"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	BatchSize      int           `yaml:"batch_size"`
	TaskDelay      time.Duration `yaml:"task_delay"`
	PageLimit      int           `yaml:"page_limit"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	MaxMagnitude   float64       `yaml:"max_magnitude"`
}

// RedisConfig holds cache and lock lifetimes.
type RedisConfig struct {
	MarketTTL time.Duration `yaml:"market_ttl"`
	OHLCVTTL  time.Duration `yaml:"ohlcv_ttl"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
	LockKey   string        `yaml:"lock_key"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// LookbackDays converts the lookback window to days.
func (c SyncConfig) LookbackDays() int {
	return c.LookbackYears * 365
}

// UseCoinGeckoOHLCV reports whether CoinGecko is used as the last OHLCV source.
func (c CoinGeckoConfig) UseCoinGeckoOHLCV() bool {
	return c.OHLCVFallback == nil || *c.OHLCVFallback
}

// EnabledExchanges returns the exchanges in priority order, skipping disabled ones.
func (s *Settings) EnabledExchanges() []ExchangeConfig {
	out := make([]ExchangeConfig, 0, len(s.Exchanges))
	for _, e := range s.Exchanges {
		if !e.Disabled {
			out = append(out, e)
		}
	}
	return out
}
