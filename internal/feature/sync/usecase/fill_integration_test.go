package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	candlesadapters "crypto_backend/internal/feature/candles/adapters"
	candlesentity "crypto_backend/internal/feature/candles/domain/entity"
	candlesusecase "crypto_backend/internal/feature/candles/usecase"
	symbolsadapters "crypto_backend/internal/feature/symbols/adapters"
	symbolsentity "crypto_backend/internal/feature/symbols/domain/entity"
	"crypto_backend/internal/feature/sync/domain/entity"
	"crypto_backend/internal/feature/sync/usecase"
)

// stubSource は固定の日足を返す取引所ソースです。
// ref.Pairs に空文字で登録された銘柄は扱いません。
type stubSource struct {
	name  string
	quote string
	fail  map[string]error
}

func (s *stubSource) Name() string          { return s.name }
func (s *stubSource) QuoteCurrency() string { return s.quote }
func (s *stubSource) MaxPageSize() int      { return 0 }
func (s *stubSource) Windowed() bool        { return false }

func (s *stubSource) Pair(ref candlesentity.SymbolRef) (string, bool) {
	if pair, ok := ref.Pairs[s.name]; ok {
		return pair, pair != ""
	}
	return ref.Symbol + s.quote, true
}

func (s *stubSource) FetchPage(ctx context.Context, req candlesusecase.PageRequest) ([]candlesentity.Candle, error) {
	if err := s.fail[req.Pair]; err != nil {
		return nil, err
	}
	var out []candlesentity.Candle
	for d := req.Since; d.Before(req.Until) && len(out) < req.Limit; d = d.AddDate(0, 0, 1) {
		out = append(out, candlesentity.Candle{Time: d, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100})
	}
	return out, nil
}

func setupFillDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: は接続ごとに別DBになる
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&candlesadapters.OHLCVModel{}, &symbolsentity.Symbol{}))
	return db
}

func TestFill_FallbackStoresOnlyTheAnsweringSource(t *testing.T) {
	t.Parallel()

	db := setupFillDB(t)

	binance := &stubSource{name: "binance", quote: "USDT", fail: map[string]error{"SOLUSDT": errors.New("binance SOLUSDT: 418 banned")}}
	kraken := &stubSource{name: "kraken", quote: "USD"}
	fetcher := candlesusecase.NewExchangeFetcher([]candlesusecase.Source{binance, kraken}, candlesusecase.FetcherConfig{PageLimit: 100})

	symbols := symbolsadapters.NewSymbolRepository(db)
	persister := candlesusecase.NewPersister(candlesadapters.NewOHLCVRepository(db), symbols, candlesusecase.PersisterConfig{})
	orch := usecase.NewOrchestrator(fetcher, persister, usecase.OrchestratorConfig{MaxConcurrency: 1}, nil)

	btc := task("BTC", entity.ClassNoPriorData)
	btc.Pairs = map[string]string{"binance": ""}
	stats := orch.Run(context.Background(), "", []entity.SyncTask{
		btc,
		task("ETH", entity.ClassNoPriorData),
		task("SOL", entity.ClassNoPriorData),
	})

	assert.Equal(t, 3, stats.Succeeded)
	assert.Zero(t, stats.Failed())
	assert.Equal(t, map[string]int{"binance": 1, "kraken": 2}, stats.PerSource)
	assert.Equal(t, 30, stats.RecordsWritten)

	tests := []struct {
		symbol    string
		wantExch  string
		wantQuote string
	}{
		{symbol: "BTC", wantExch: "kraken", wantQuote: "USD"},
		{symbol: "ETH", wantExch: "binance", wantQuote: "USDT"},
		{symbol: "SOL", wantExch: "kraken", wantQuote: "USD"},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			var rows []candlesadapters.OHLCVModel
			require.NoError(t, db.Where("symbol = ?", tt.symbol).Order("date").Find(&rows).Error)
			require.Len(t, rows, 10)
			for _, r := range rows {
				assert.Equal(t, tt.wantExch, r.Exchange)
				assert.Equal(t, tt.wantQuote, r.QuoteCurrency)
			}

			var sym symbolsentity.Symbol
			require.NoError(t, db.Where("symbol = ?", tt.symbol).Take(&sym).Error)
			require.NotNil(t, sym.LastSyncDate)
			assert.True(t, date(2024, 1, 10).Equal(sym.LastSyncDate.UTC()))
			assert.Equal(t, int64(10), sym.TotalRecords)
		})
	}
}

func TestFill_NoSourceDataLeavesSymbolUnsynced(t *testing.T) {
	t.Parallel()

	db := setupFillDB(t)

	// タスク範囲より前の足だけを返すフェッチャー
	kraken := &stubSource{name: "kraken", quote: "USD"}
	inner := candlesusecase.NewExchangeFetcher([]candlesusecase.Source{kraken}, candlesusecase.FetcherConfig{})
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, ref candlesentity.SymbolRef, start, end time.Time) candlesentity.FetchOutcome {
		return inner.Fetch(ctx, ref, start.AddDate(0, -1, 0), start.AddDate(0, 0, -1))
	}}

	symbols := symbolsadapters.NewSymbolRepository(db)
	persister := candlesusecase.NewPersister(candlesadapters.NewOHLCVRepository(db), symbols, candlesusecase.PersisterConfig{})
	orch := usecase.NewOrchestrator(fetcher, persister, usecase.OrchestratorConfig{MaxConcurrency: 1}, nil)

	stats := orch.Run(context.Background(), "", []entity.SyncTask{task("BTC", entity.ClassNoPriorData)})

	assert.Equal(t, map[entity.FailureReason]int{entity.FailExhausted: 1}, stats.FailureCounts())

	var count int64
	require.NoError(t, db.Model(&symbolsentity.Symbol{}).Where("symbol = ?", "BTC").Count(&count).Error)
	assert.Zero(t, count, "a symbol without stored candles must not be marked synced")
}
