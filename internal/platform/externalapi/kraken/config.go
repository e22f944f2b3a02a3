// Package kraken provides a client for the Kraken public REST API.
package kraken

import "time"

const (
	// Name is the exchange identifier stored with every candle.
	Name = "kraken"
	// QuoteCurrency is the quote currency of the requested pairs.
	QuoteCurrency = "USD"
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.kraken.com"
	// MaxCandles is the most OHLC entries Kraken returns per call.
	MaxCandles = 720
	// dailyInterval is one day in minutes.
	dailyInterval = 1440
)

// Config holds configuration for the Kraken client.
type Config struct {
	BaseURL      string
	RequestDelay time.Duration
	Timeout      time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		RequestDelay: time.Second,
		Timeout:      10 * time.Second,
	}
}
