// Package dto contains the CoinGecko REST payloads.
package dto

// MarketCoin is one entry of /coins/markets. Nullable fields are pointers.
type MarketCoin struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	CurrentPrice  *float64 `json:"current_price"`
	MarketCap     *float64 `json:"market_cap"`
	MarketCapRank *int     `json:"market_cap_rank"`
	TotalVolume   *float64 `json:"total_volume"`
}

// MarketChart is the /coins/{id}/market_chart/range payload.
// Every series is a list of [timestamp ms, value].
type MarketChart struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// APIError is the error body of non-2xx responses.
type APIError struct {
	Error string `json:"error"`
}
