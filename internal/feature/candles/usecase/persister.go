package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"crypto_backend/internal/feature/candles/domain"
	"crypto_backend/internal/feature/candles/domain/entity"
)

const (
	// DefaultBatchSize は1回のupsertで書き込むレコード数です。
	DefaultBatchSize = 100
	// DefaultMaxMagnitude は数値カラムに格納できる絶対値の上限です。
	DefaultMaxMagnitude = 999999999999
	// decimalPlaces は decimal(20,8) カラムの小数桁数です。
	decimalPlaces = 8
)

// OHLCVRepository は日足レコードの永続化レイヤーを抽象化します。
type OHLCVRepository interface {
	// UpsertOHLCV は (symbol, date, exchange) をキーにレコードを挿入または更新します。
	UpsertOHLCV(ctx context.Context, records []entity.OHLCVRecord) error
	// CountBySymbol はシンボルの保存済みレコード数を返します。
	CountBySymbol(ctx context.Context, symbol string) (int64, error)
}

// SyncMarker はシンボルの最終同期日を記録します。最終同期日は前進のみします。
type SyncMarker interface {
	MarkSynced(ctx context.Context, symbol string, date time.Time, total int64) error
}

// PersisterConfig controls batching and numeric clamping.
type PersisterConfig struct {
	BatchSize    int
	MaxMagnitude float64
}

// PersistRequest carries one fetched symbol to the persister.
type PersistRequest struct {
	Ref     entity.SymbolRef
	Start   time.Time
	End     time.Time
	Outcome entity.FetchOutcome
}

// PersistResult summarizes what was written for one symbol.
type PersistResult struct {
	Written int   // records upserted
	Dropped int   // candles outside the requested range
	Total   int64 // stored records for the symbol after the write
}

// Persister normalizes fetched candles and writes them idempotently.
type Persister struct {
	repo   OHLCVRepository
	marker SyncMarker
	batch  int
	max    decimal.Decimal
}

// NewPersister creates a Persister.
func NewPersister(repo OHLCVRepository, marker SyncMarker, cfg PersisterConfig) *Persister {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxMagnitude <= 0 {
		cfg.MaxMagnitude = DefaultMaxMagnitude
	}
	return &Persister{
		repo:   repo,
		marker: marker,
		batch:  cfg.BatchSize,
		max:    decimal.NewFromFloat(cfg.MaxMagnitude),
	}
}

// Persist writes the outcome's candles in batches and, only when every batch
// succeeded, records req.End as the symbol's last sync date.
// An outcome with no candle inside Start..End returns domain.ErrNoData and
// leaves the sync date untouched.
func (p *Persister) Persist(ctx context.Context, req PersistRequest) (PersistResult, error) {
	var res PersistResult
	if req.Outcome.Status != entity.FetchStatusFetched {
		return res, fmt.Errorf("persist: outcome has no candles: %w", domain.ErrNoData)
	}

	records, dropped := p.BuildRecords(req)
	res.Dropped = dropped
	if len(records) == 0 {
		return res, fmt.Errorf("persist %s: all %d candles from %s outside %s..%s: %w",
			req.Ref.Symbol, dropped, req.Outcome.Source,
			req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly), domain.ErrNoData)
	}

	for i := 0; i < len(records); i += p.batch {
		j := min(i+p.batch, len(records))
		if err := p.repo.UpsertOHLCV(ctx, records[i:j]); err != nil {
			return res, fmt.Errorf("upsert %s batch %d-%d: %w", req.Ref.Symbol, i, j, err)
		}
		res.Written += j - i
	}

	total, err := p.repo.CountBySymbol(ctx, req.Ref.Symbol)
	if err != nil {
		return res, fmt.Errorf("count %s: %w", req.Ref.Symbol, err)
	}
	res.Total = total

	if err := p.marker.MarkSynced(ctx, req.Ref.Symbol, dayStart(req.End), total); err != nil {
		return res, fmt.Errorf("mark %s synced: %w", req.Ref.Symbol, err)
	}

	if dropped > 0 {
		slog.Debug("dropped candles outside range", "symbol", req.Ref.Symbol, "source", req.Outcome.Source, "dropped", dropped)
	}
	return res, nil
}

// BuildRecords converts candles into storable records ordered by date.
// Candles outside Start..End are dropped; a later candle for the same date
// replaces an earlier one.
func (p *Persister) BuildRecords(req PersistRequest) ([]entity.OHLCVRecord, int) {
	start, end := dayStart(req.Start), dayStart(req.End)

	byDate := make(map[time.Time]entity.OHLCVRecord, len(req.Outcome.Candles))
	dropped := 0
	for _, c := range req.Outcome.Candles {
		d := dayStart(c.Time)
		if d.Before(start) || d.After(end) {
			dropped++
			continue
		}
		byDate[d] = entity.OHLCVRecord{
			Symbol:        req.Ref.Symbol,
			Name:          req.Ref.Name,
			Date:          d,
			Exchange:      req.Outcome.Source,
			QuoteCurrency: req.Outcome.QuoteCurrency,
			Open:          p.clamp(c.Open),
			High:          p.clamp(c.High),
			Low:           p.clamp(c.Low),
			Close:         p.clamp(c.Close),
			Volume:        p.clamp(c.Volume),
			IsActive:      true,
		}
	}

	records := make([]entity.OHLCVRecord, 0, len(byDate))
	for _, r := range byDate {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, dropped
}

// clamp bounds v to [-max, max] and rounds it to the column scale.
// NaN is stored as zero.
func (p *Persister) clamp(v float64) decimal.Decimal {
	switch {
	case math.IsNaN(v):
		return decimal.Zero
	case math.IsInf(v, 1):
		return p.max
	case math.IsInf(v, -1):
		return p.max.Neg()
	}
	d := decimal.NewFromFloat(v)
	if d.GreaterThan(p.max) {
		return p.max
	}
	if d.LessThan(p.max.Neg()) {
		return p.max.Neg()
	}
	return d.Round(decimalPlaces)
}
