package entity

import "strings"

// SymbolRef identifies a symbol for the exchange sources.
// Pairs holds the trading pair resolved per exchange by the symbol directory:
// a non-empty value is the pair notation, an empty value means the exchange
// does not list the symbol, and a missing key means it was never resolved.
type SymbolRef struct {
	Symbol    string
	Name      string
	CatalogID string
	Pairs     map[string]string
}

// ResolvePair returns the pair to request from exchange.
// When the directory never resolved the exchange, fallback is used.
func (r SymbolRef) ResolvePair(exchange, fallback string) (string, bool) {
	if pair, ok := r.Pairs[exchange]; ok {
		return pair, pair != ""
	}
	if fallback == "" {
		return "", false
	}
	return fallback, true
}

// Base returns the upper-cased base asset code.
func (r SymbolRef) Base() string {
	return strings.ToUpper(strings.TrimSpace(r.Symbol))
}
