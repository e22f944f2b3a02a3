// Package dto defines data transfer objects for the symbols HTTP API.
package dto

// SymbolItem represents a directory entry in the API response.
// LastSyncDate is nil until the symbol has been synced once.
type SymbolItem struct {
	Symbol       string            `json:"symbol"`
	Name         string            `json:"name"`
	Rank         int               `json:"rank"`
	TradingPairs map[string]string `json:"trading_pairs"`
	LastSyncDate *string           `json:"last_sync_date"`
	TotalRecords int64             `json:"total_records"`
}
