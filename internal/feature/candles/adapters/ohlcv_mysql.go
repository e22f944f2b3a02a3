package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crypto_backend/internal/feature/candles/domain"
	"crypto_backend/internal/feature/candles/domain/entity"
	"crypto_backend/internal/feature/candles/usecase"
	platformdb "crypto_backend/internal/platform/db"
)

type ohlcvMySQL struct {
	db *gorm.DB
}

var (
	_ usecase.CandleRepository = (*ohlcvMySQL)(nil)
	_ usecase.OHLCVRepository  = (*ohlcvMySQL)(nil)
)

func NewOHLCVRepository(db *gorm.DB) *ohlcvMySQL {
	return &ohlcvMySQL{db: db}
}

// OHLCVModel is one stored daily bar. (symbol, date, exchange) is unique.
type OHLCVModel struct {
	ID            uint      `gorm:"primaryKey"`
	Symbol        string    `gorm:"size:32;not null;uniqueIndex:ohlcv_sym_date_exch,priority:1"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:ohlcv_sym_date_exch,priority:2;index"`
	Exchange      string    `gorm:"size:32;not null;uniqueIndex:ohlcv_sym_date_exch,priority:3"`
	Name          string    `gorm:"size:255"`
	QuoteCurrency string    `gorm:"size:8;not null"`

	Open   decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	High   decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Low    decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Close  decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Volume decimal.Decimal `gorm:"type:decimal(20,8);not null"`

	IsActive  bool `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OHLCVModel) TableName() string {
	return "ohlcv_daily"
}

func toModel(e entity.OHLCVRecord) OHLCVModel {
	return OHLCVModel{
		Symbol:        e.Symbol,
		Date:          e.Date.UTC(),
		Exchange:      e.Exchange,
		Name:          e.Name,
		QuoteCurrency: e.QuoteCurrency,
		Open:          e.Open,
		High:          e.High,
		Low:           e.Low,
		Close:         e.Close,
		Volume:        e.Volume,
		IsActive:      e.IsActive,
	}
}

func toEntity(m OHLCVModel) entity.OHLCVRecord {
	return entity.OHLCVRecord{
		Symbol:        m.Symbol,
		Name:          m.Name,
		Date:          m.Date.UTC(),
		Exchange:      m.Exchange,
		QuoteCurrency: m.QuoteCurrency,
		Open:          m.Open,
		High:          m.High,
		Low:           m.Low,
		Close:         m.Close,
		Volume:        m.Volume,
		IsActive:      m.IsActive,
	}
}

// UpsertOHLCV inserts records, refreshing values and updated_at on conflict.
func (r *ohlcvMySQL) UpsertOHLCV(ctx context.Context, records []entity.OHLCVRecord) error {
	if len(records) == 0 {
		return nil
	}
	ms := make([]OHLCVModel, 0, len(records))
	for _, e := range records {
		ms = append(ms, toModel(e))
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}, {Name: "date"}, {Name: "exchange"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "quote_currency", "open", "high", "low", "close", "volume", "is_active", "updated_at",
		}),
	}).Create(&ms).Error
	if platformdb.IsValueOutOfRange(err) {
		return fmt.Errorf("%w: %v", domain.ErrValueOutOfRange, err)
	}
	return err
}

func (r *ohlcvMySQL) CountBySymbol(ctx context.Context, symbol string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&OHLCVModel{}).Where("symbol = ?", symbol).Count(&n).Error
	return n, err
}

// Find returns the newest limit bars for symbol in ascending date order.
func (r *ohlcvMySQL) Find(ctx context.Context, symbol, exchange string, limit int) ([]entity.OHLCVRecord, error) {
	var rows []OHLCVModel
	q := r.db.WithContext(ctx).Where("symbol = ?", symbol)
	if exchange != "" {
		q = q.Where("exchange = ?", exchange)
	}
	q = q.Order("date DESC").Order("exchange")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.OHLCVRecord, len(rows))
	for i, m := range rows {
		out[len(rows)-1-i] = toEntity(m)
	}
	return out, nil
}
