// Package entity defines the domain models for the symbols feature.
package entity

import "time"

// Symbol is one cryptocurrency in the ranked directory together with its sync state.
// TradingPairs maps an exchange name to its pair notation; an empty value
// means the exchange does not list the symbol.
type Symbol struct {
	ID           uint              `gorm:"primaryKey"`
	Symbol       string            `gorm:"size:32;not null;uniqueIndex"`
	Name         string            `gorm:"size:255;not null"`
	Rank         int               `gorm:"column:market_rank;not null;default:0;index"`
	CatalogID    string            `gorm:"size:128"`
	TradingPairs map[string]string `gorm:"type:text;serializer:json"`
	MarketCap    float64
	CurrentPrice float64
	Volume24h    float64    `gorm:"column:volume_24h"`
	IsActive     bool       `gorm:"not null"`
	LastSyncDate *time.Time `gorm:"type:date"`
	TotalRecords int64      `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// MarketListing is one entry of the ranked market listing.
// Nil fields were absent in the listing.
type MarketListing struct {
	CatalogID string
	Symbol    string
	Name      string
	Rank      *int
	Price     *float64
	MarketCap *float64
	Volume24h *float64
}

// Rejection records why a listing entry was left out of the directory.
type Rejection struct {
	Symbol string
	Name   string
	Reason RejectReason
}

// RejectReason classifies a rejected listing entry.
type RejectReason string

const (
	RejectMissingIdentity RejectReason = "missing symbol or name"
	RejectNoPrice         RejectReason = "no current price (likely delisted)"
	RejectLowLiquidity    RejectReason = "low liquidity"
	RejectLowMarketCap    RejectReason = "low market cap"
	RejectNoRank          RejectReason = "no market cap rank"
)
