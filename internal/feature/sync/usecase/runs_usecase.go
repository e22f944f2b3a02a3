package usecase

import (
	"context"

	"crypto_backend/internal/feature/sync/domain/entity"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// RunLogReader は実行ログを新しい順に返します。
type RunLogReader interface {
	ListRecent(ctx context.Context, limit int) ([]entity.RunLog, error)
}

// RunsUsecase provides read access to the run log.
type RunsUsecase struct {
	repo RunLogReader
}

// NewRunsUsecase creates a RunsUsecase.
func NewRunsUsecase(repo RunLogReader) *RunsUsecase {
	return &RunsUsecase{repo: repo}
}

// ListRuns returns the newest stage entries. limit is clamped to 1..500
// and defaults to 50.
func (u *RunsUsecase) ListRuns(ctx context.Context, limit int) ([]entity.RunLog, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	return u.repo.ListRecent(ctx, limit)
}
