// Package usecase implements the symbol directory and its read side.
package usecase

import (
	"context"

	"crypto_backend/internal/feature/symbols/domain/entity"
)

// SymbolRepository は銘柄ディレクトリの永続化層を抽象化します。
// Goの慣例に従い、インターフェースは利用者側で定義します。
type SymbolRepository interface {
	ListActive(ctx context.Context) ([]entity.Symbol, error)
}

// SymbolUsecase provides read access to the stored directory.
type SymbolUsecase struct {
	repo SymbolRepository
}

// NewSymbolUsecase creates a new SymbolUsecase with the given repository.
func NewSymbolUsecase(r SymbolRepository) *SymbolUsecase {
	return &SymbolUsecase{repo: r}
}

// ListActiveSymbols returns every active symbol ordered by rank.
func (u *SymbolUsecase) ListActiveSymbols(ctx context.Context) ([]entity.Symbol, error) {
	return u.repo.ListActive(ctx)
}
