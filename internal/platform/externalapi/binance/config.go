// Package binance provides a client for the Binance spot market REST API.
package binance

import "time"

const (
	// Name is the exchange identifier stored with every candle.
	Name = "binance"
	// QuoteCurrency is the quote asset of the pairs requested from Binance.
	QuoteCurrency = "USDT"
	// DefaultBaseURL is the public spot API endpoint.
	DefaultBaseURL = "https://api.binance.com"
	// MaxKlines is the largest page /api/v3/klines returns.
	MaxKlines = 1000
)

// Config holds configuration for the Binance client.
type Config struct {
	BaseURL      string        // Base URL for the API (e.g., "https://api.binance.com")
	RequestDelay time.Duration // Minimum spacing between requests
	Timeout      time.Duration // HTTP request timeout
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		RequestDelay: 50 * time.Millisecond,
		Timeout:      10 * time.Second,
	}
}
