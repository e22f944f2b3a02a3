package usecase

import (
	"context"
	"time"

	"crypto_backend/internal/feature/candles/domain/entity"
)

// PageRequest asks a source for daily candles of one pair starting at Since.
// Until is exclusive.
type PageRequest struct {
	Pair  string
	Since time.Time
	Until time.Time
	Limit int
}

// Source は日足OHLCVを提供する取引所クライアントを抽象化します。
// 実装は platform/externalapi 配下にあり、各実装は自身のリクエスト間隔を管理します。
type Source interface {
	// Name はソースの識別子です（"binance" など）。OHLCVレコードの exchange 列に入ります。
	Name() string
	// QuoteCurrency はこのソースのネイティブな建て通貨です。
	QuoteCurrency() string
	// MaxPageSize は1リクエストで返せるローソク足の最大本数です。
	MaxPageSize() int
	// Windowed が true のソースは [Since, Until) の期間指定で応答し、Since 以降の最初のデータまで読み進めません。
	// 空のページや短いページはその期間にデータがないことを意味するだけなので、呼び出し側は期間をずらして続行します。
	Windowed() bool
	// Pair はシンボルに対応する取引ペアを返します。false の場合このソースはスキップされます。
	Pair(ref entity.SymbolRef) (string, bool)
	// FetchPage は Since 以降のローソク足を時系列順で最大 Limit 本返します。
	FetchPage(ctx context.Context, req PageRequest) ([]entity.Candle, error)
}
