// Package dto contains the Binance REST payloads.
package dto

import "encoding/json"

// Kline is one row of /api/v3/klines:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, takerBase, takerQuote, ignore].
// Times are JSON numbers (ms), prices and volumes are strings.
type Kline []json.RawMessage

// ExchangeInfo is the subset of /api/v3/exchangeInfo used to resolve pairs.
type ExchangeInfo struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo describes one trading pair.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// APIError is the error body Binance returns with 4xx responses.
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
