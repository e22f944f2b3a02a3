// Package coingecko provides a client for the CoinGecko public API: the ranked
// market listing and, as a last-resort OHLCV source, daily prices.
package coingecko

import (
	"os"
	"time"
)

const (
	// Name is the source identifier stored with every candle.
	Name = "coingecko"
	// QuoteCurrency is the currency prices are requested in.
	QuoteCurrency = "USD"
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	// DefaultCallsPerMinute matches the public tier limit.
	DefaultCallsPerMinute = 30
)

// Config holds configuration for the CoinGecko client.
type Config struct {
	BaseURL        string        // Base URL for the API
	APIKey         string        // Demo API key, optional
	CallsPerMinute int           // Request budget per minute
	Timeout        time.Duration // HTTP request timeout
}

// LoadConfig loads CoinGecko configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		BaseURL:        os.Getenv("COINGECKO_BASE_URL"),
		APIKey:         os.Getenv("COINGECKO_API_KEY"),
		CallsPerMinute: DefaultCallsPerMinute,
		Timeout:        30 * time.Second,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return cfg
}
