// Package coinbase provides a client for the Coinbase Exchange public REST API.
package coinbase

import "time"

const (
	// Name is the exchange identifier stored with every candle.
	Name = "coinbase"
	// QuoteCurrency is the quote currency of the requested products.
	QuoteCurrency = "USD"
	// DefaultBaseURL is the public market data endpoint.
	DefaultBaseURL = "https://api.exchange.coinbase.com"
	// MaxCandles is the largest number of buckets one candles request may span.
	MaxCandles = 300
	// dailyGranularity is one day in seconds.
	dailyGranularity = 86400
)

// Config holds configuration for the Coinbase client.
type Config struct {
	BaseURL      string
	RequestDelay time.Duration
	Timeout      time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		RequestDelay: 350 * time.Millisecond,
		Timeout:      10 * time.Second,
	}
}
