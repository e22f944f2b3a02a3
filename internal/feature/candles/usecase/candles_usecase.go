// Package usecase はローソク足データの取得・保存・参照のビジネスロジックを実装します。
package usecase

import (
	"context"
	"strings"

	"crypto_backend/internal/feature/candles/domain/entity"
)

const (
	// DefaultOutputSize はデフォルトのローソク足返却件数です。
	DefaultOutputSize = 200
	// MaxOutputSize はローソク足の最大返却件数です。
	MaxOutputSize = 5000
)

// CandleRepository は保存済み日足の読み取りレイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type CandleRepository interface {
	// Find は新しい日付から最大 limit 件を取得し、日付の昇順で返します。
	// exchange が空の場合は全取引所が対象です。
	Find(ctx context.Context, symbol, exchange string, limit int) ([]entity.OHLCVRecord, error)
}

// candlesUsecase は保存済み日足の参照ユースケースです。
type candlesUsecase struct {
	candle CandleRepository
}

// NewCandlesUsecase はcandlesUsecaseの新しいインスタンスを生成します。
func NewCandlesUsecase(candle CandleRepository) *candlesUsecase {
	return &candlesUsecase{candle: candle}
}

// GetCandles は指定されたシンボルの日足データを取得します。
func (cu *candlesUsecase) GetCandles(ctx context.Context, symbol, exchange string, limit int) ([]entity.OHLCVRecord, error) {
	if limit <= 0 || limit > MaxOutputSize {
		limit = DefaultOutputSize
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	exchange = strings.ToLower(strings.TrimSpace(exchange))

	return cu.candle.Find(ctx, symbol, exchange, limit)
}
