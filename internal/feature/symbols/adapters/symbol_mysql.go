// Package adapters はsymbolsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	candlesusecase "crypto_backend/internal/feature/candles/usecase"
	"crypto_backend/internal/feature/symbols/domain/entity"
	"crypto_backend/internal/feature/symbols/usecase"
)

// upsertBatchSize は一度のINSERTに含める銘柄数です。
const upsertBatchSize = 200

// symbolMySQL は銘柄ディレクトリのMySQL実装です。
type symbolMySQL struct {
	db *gorm.DB
}

var (
	_ usecase.SymbolRepository  = (*symbolMySQL)(nil)
	_ usecase.SymbolWriter      = (*symbolMySQL)(nil)
	_ candlesusecase.SyncMarker = (*symbolMySQL)(nil)
)

// NewSymbolRepository は指定されたDB接続でsymbolMySQLリポジトリの新しいインスタンスを生成します。
func NewSymbolRepository(db *gorm.DB) *symbolMySQL {
	return &symbolMySQL{db: db}
}

// ListActive はrank順にすべてのアクティブな銘柄を返します。
func (r *symbolMySQL) ListActive(ctx context.Context) ([]entity.Symbol, error) {
	var symbols []entity.Symbol
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("market_rank ASC, symbol ASC").
		Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// UpsertSymbolMetadata は symbol をキーに銘柄メタデータを挿入または更新します。
// last_sync_date と total_records は同期処理だけが更新するため触りません。
func (r *symbolMySQL) UpsertSymbolMetadata(ctx context.Context, symbols []entity.Symbol) error {
	if len(symbols) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "market_rank", "catalog_id", "trading_pairs",
				"market_cap", "current_price", "volume_24h",
				"is_active", "updated_at",
			}),
		}).
		CreateInBatches(&symbols, upsertBatchSize).Error
}

// GetLastSyncDates は指定銘柄の最終同期日を1回のクエリで取得します。
// 未同期または未登録の銘柄は結果に含まれません。
func (r *symbolMySQL) GetLastSyncDates(ctx context.Context, symbols []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	var rows []struct {
		Symbol       string
		LastSyncDate *time.Time
	}
	if err := r.db.WithContext(ctx).
		Model(&entity.Symbol{}).
		Select("symbol", "last_sync_date").
		Where("symbol IN ?", symbols).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row.LastSyncDate != nil {
			out[row.Symbol] = row.LastSyncDate.UTC()
		}
	}
	return out, nil
}

// MarkSynced は保存件数を更新し、最終同期日を前進させます。
// 既存の最終同期日より古い日付では後退しません。銘柄が未登録なら作成します。
func (r *symbolMySQL) MarkSynced(ctx context.Context, symbol string, date time.Time, total int64) error {
	date = date.UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entity.Symbol
		err := tx.Where("symbol = ?", symbol).Take(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&entity.Symbol{
				Symbol:       symbol,
				Name:         symbol,
				IsActive:     true,
				LastSyncDate: &date,
				TotalRecords: total,
			}).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]any{"total_records": total}
		if current.LastSyncDate == nil || date.After(current.LastSyncDate.UTC()) {
			updates["last_sync_date"] = date
		}
		return tx.Model(&current).Updates(updates).Error
	})
}
