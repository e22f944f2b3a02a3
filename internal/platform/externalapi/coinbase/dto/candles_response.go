// Package dto contains the Coinbase Exchange REST payloads.
package dto

// Candle is one row of /products/{id}/candles: [time, low, high, open, close, volume].
type Candle []float64

// Product is one entry of /products.
type Product struct {
	ID              string `json:"id"`
	BaseCurrency    string `json:"base_currency"`
	QuoteCurrency   string `json:"quote_currency"`
	Status          string `json:"status"`
	TradingDisabled bool   `json:"trading_disabled"`
}

// APIError is the error body of non-2xx responses.
type APIError struct {
	Message string `json:"message"`
}
