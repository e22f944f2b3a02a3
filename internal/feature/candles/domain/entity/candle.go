// Package entity defines the domain models for the candles feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one daily OHLCV bar as returned by an exchange source.
type Candle struct {
	Time   time.Time // Open time of the bar (UTC)
	Open   float64   // Opening price
	High   float64   // Highest price during the day
	Low    float64   // Lowest price during the day
	Close  float64   // Closing price
	Volume float64   // Traded volume in base units
}

// OHLCVRecord is a normalized daily bar ready to be stored.
// (Symbol, Date, Exchange) is unique.
type OHLCVRecord struct {
	Symbol        string
	Name          string
	Date          time.Time // UTC calendar date, midnight
	Exchange      string
	QuoteCurrency string
	Open          decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	Close         decimal.Decimal
	Volume        decimal.Decimal
	IsActive      bool
}
