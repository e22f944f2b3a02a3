package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultCoinGeckoURL     = "https://api.coingecko.com/api/v3"
	DefaultCoinGeckoTimeout = 30 * time.Second
	DefaultTargetCount      = 1000
	DefaultPageSize         = 250
	DefaultCallsPerMinute   = 30
	DefaultMinVolume24h     = 1000
	DefaultMinMarketCap     = 100000
	DefaultPageConcurrency  = 4
	DefaultExchangeTimeout  = 10 * time.Second
	DefaultLookbackYears    = 10
	DefaultMaxConcurrency   = 20
	DefaultBatchSize        = 100
	DefaultTaskDelay        = 100 * time.Millisecond
	DefaultPageLimit        = 1000
	DefaultMaxRetries       = 3
	DefaultRetryDelay       = 2 * time.Second
	DefaultMaxMagnitude     = 999999999999
	DefaultMarketTTL        = 6 * time.Hour
	DefaultOHLCVTTL         = 5 * time.Minute
	DefaultLockTTL          = 2 * time.Hour
	DefaultLockKey          = "pipeline:run-lock"
	DefaultServerAddr       = ":8080"
)

// defaultExchanges is the source priority used when none is configured.
var defaultExchanges = []ExchangeConfig{
	{Name: "binance", BaseURL: "https://api.binance.com", RequestDelay: 50 * time.Millisecond},
	{Name: "coinbase", BaseURL: "https://api.exchange.coinbase.com", RequestDelay: 350 * time.Millisecond},
	{Name: "kraken", BaseURL: "https://api.kraken.com", RequestDelay: time.Second},
}

// Default returns the settings used when no config file is given.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	// CoinGecko defaults
	if s.CoinGecko.BaseURL == "" {
		s.CoinGecko.BaseURL = DefaultCoinGeckoURL
	}
	if s.CoinGecko.Timeout == 0 {
		s.CoinGecko.Timeout = DefaultCoinGeckoTimeout
	}
	if s.CoinGecko.TargetCount == 0 {
		s.CoinGecko.TargetCount = DefaultTargetCount
	}
	if s.CoinGecko.PageSize == 0 {
		s.CoinGecko.PageSize = DefaultPageSize
	}
	if s.CoinGecko.CallsPerMinute == 0 {
		s.CoinGecko.CallsPerMinute = DefaultCallsPerMinute
	}

	// Directory defaults
	if s.Directory.MinVolume24h == 0 {
		s.Directory.MinVolume24h = DefaultMinVolume24h
	}
	if s.Directory.MinMarketCap == 0 {
		s.Directory.MinMarketCap = DefaultMinMarketCap
	}
	if s.Directory.PageConcurrency == 0 {
		s.Directory.PageConcurrency = DefaultPageConcurrency
	}

	// Exchange defaults
	if len(s.Exchanges) == 0 {
		s.Exchanges = append([]ExchangeConfig(nil), defaultExchanges...)
	}
	for i := range s.Exchanges {
		applyExchangeDefaults(&s.Exchanges[i])
	}

	// Sync defaults
	if s.Sync.LookbackYears == 0 {
		s.Sync.LookbackYears = DefaultLookbackYears
	}
	if s.Sync.MaxConcurrency == 0 {
		s.Sync.MaxConcurrency = DefaultMaxConcurrency
	}
	if s.Sync.BatchSize == 0 {
		s.Sync.BatchSize = DefaultBatchSize
	}
	if s.Sync.TaskDelay == 0 {
		s.Sync.TaskDelay = DefaultTaskDelay
	}
	if s.Sync.PageLimit == 0 {
		s.Sync.PageLimit = DefaultPageLimit
	}
	if s.Sync.MaxRetries == 0 {
		s.Sync.MaxRetries = DefaultMaxRetries
	}
	if s.Sync.RetryDelay == 0 {
		s.Sync.RetryDelay = DefaultRetryDelay
	}
	if s.Sync.MaxMagnitude == 0 {
		s.Sync.MaxMagnitude = DefaultMaxMagnitude
	}

	// Redis defaults
	if s.Redis.MarketTTL == 0 {
		s.Redis.MarketTTL = DefaultMarketTTL
	}
	if s.Redis.OHLCVTTL == 0 {
		s.Redis.OHLCVTTL = DefaultOHLCVTTL
	}
	if s.Redis.LockTTL == 0 {
		s.Redis.LockTTL = DefaultLockTTL
	}
	if s.Redis.LockKey == "" {
		s.Redis.LockKey = DefaultLockKey
	}

	// Server defaults
	if s.Server.Addr == "" {
		s.Server.Addr = DefaultServerAddr
	}
}

func applyExchangeDefaults(e *ExchangeConfig) {
	if e.Timeout == 0 {
		e.Timeout = DefaultExchangeTimeout
	}
	if e.BaseURL != "" {
		return
	}
	for _, d := range defaultExchanges {
		if d.Name == e.Name {
			e.BaseURL = d.BaseURL
			if e.RequestDelay == 0 {
				e.RequestDelay = d.RequestDelay
			}
			return
		}
	}
}
