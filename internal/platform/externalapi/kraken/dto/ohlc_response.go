// Package dto contains the Kraken REST payloads.
package dto

import "encoding/json"

// Response is the envelope of every public endpoint.
// Errors are reported in Error with HTTP 200.
type Response struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// OHLC is one row of /0/public/OHLC:
// [time, open, high, low, close, vwap, volume, count].
type OHLC []json.RawMessage

// AssetPair is one entry of /0/public/AssetPairs.
type AssetPair struct {
	Altname string `json:"altname"`
	WSName  string `json:"wsname"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
}
