// Package adapters はsyncフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"

	"gorm.io/gorm"

	"crypto_backend/internal/feature/sync/domain/entity"
	"crypto_backend/internal/feature/sync/usecase"
)

type runLogMySQL struct {
	db *gorm.DB
}

var (
	_ usecase.RunLogWriter = (*runLogMySQL)(nil)
	_ usecase.RunLogReader = (*runLogMySQL)(nil)
)

// NewRunLogRepository は pipeline_logs テーブルのリポジトリを生成します。
func NewRunLogRepository(db *gorm.DB) *runLogMySQL {
	return &runLogMySQL{db: db}
}

// AppendRunLog は1ステージ分の実行ログを追加します。
func (r *runLogMySQL) AppendRunLog(ctx context.Context, entry *entity.RunLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecent は開始時刻の新しい順に最大 limit 件を返します。
func (r *runLogMySQL) ListRecent(ctx context.Context, limit int) ([]entity.RunLog, error) {
	var logs []entity.RunLog
	if err := r.db.WithContext(ctx).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
