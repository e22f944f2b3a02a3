package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"crypto_backend/internal/feature/candles/domain"
	"crypto_backend/internal/feature/candles/domain/entity"
)

const (
	// DefaultPageLimit は1ページあたりに要求するローソク足の本数です。
	DefaultPageLimit = 1000
	// DefaultMaxRetries は一時的なエラーに対する同一ページの再試行回数です。
	DefaultMaxRetries = 3
	// DefaultRetryDelay は再試行間の待機時間です。
	DefaultRetryDelay = 2 * time.Second
)

const day = 24 * time.Hour

// FetcherConfig controls pagination and retries.
type FetcherConfig struct {
	PageLimit  int
	MaxRetries int
	RetryDelay time.Duration
}

// ExchangeFetcher は優先順位付きのソース群から1シンボル分の日足を取得します。
// 最初にデータを返したソースを採用し、ソース間でのマージは行いません。
type ExchangeFetcher struct {
	sources []Source
	cfg     FetcherConfig
}

// NewExchangeFetcher creates a fetcher trying sources in the given order.
func NewExchangeFetcher(sources []Source, cfg FetcherConfig) *ExchangeFetcher {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	return &ExchangeFetcher{sources: sources, cfg: cfg}
}

// Sources returns the names of the configured sources in priority order.
func (f *ExchangeFetcher) Sources() []string {
	names := make([]string, 0, len(f.sources))
	for _, s := range f.sources {
		names = append(names, s.Name())
	}
	return names
}

// Fetch retrieves daily candles for ref covering the UTC days start..end inclusive.
func (f *ExchangeFetcher) Fetch(ctx context.Context, ref entity.SymbolRef, start, end time.Time) entity.FetchOutcome {
	out := entity.FetchOutcome{Status: entity.FetchStatusExhausted}

	for _, src := range f.sources {
		if err := ctx.Err(); err != nil {
			out.Status = entity.FetchStatusAborted
			out.Err = err
			return out
		}

		pair, ok := src.Pair(ref)
		if !ok {
			out.Attempts = append(out.Attempts, entity.SourceAttempt{Source: src.Name(), Skipped: true})
			continue
		}

		candles, err := f.fetchAll(ctx, src, pair, start, end)
		out.Attempts = append(out.Attempts, entity.SourceAttempt{
			Source:  src.Name(),
			Pair:    pair,
			Candles: len(candles),
			Err:     err,
		})

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.Status = entity.FetchStatusAborted
				out.Err = ctxErr
				return out
			}
			if errors.Is(err, domain.ErrUnsupportedPair) {
				slog.Debug("pair not supported, trying next source", "symbol", ref.Symbol, "source", src.Name(), "pair", pair)
			} else {
				slog.Warn("source failed, trying next source", "symbol", ref.Symbol, "source", src.Name(), "pair", pair, "error", err)
			}
			continue
		}
		if len(candles) == 0 {
			continue
		}

		out.Status = entity.FetchStatusFetched
		out.Source = src.Name()
		out.QuoteCurrency = src.QuoteCurrency()
		out.Candles = candles
		return out
	}

	out.Err = domain.ErrNoData
	return out
}

// fetchAll paginates one source from start until end is covered.
// Windowed sources are walked window by window up to end; cursor sources stop
// at the first empty or short page. Partial results are discarded when a page
// ultimately fails.
func (f *ExchangeFetcher) fetchAll(ctx context.Context, src Source, pair string, start, end time.Time) ([]entity.Candle, error) {
	limit := f.cfg.PageLimit
	if n := src.MaxPageSize(); n > 0 && n < limit {
		limit = n
	}

	until := dayStart(end).Add(day)
	cursor := dayStart(start)

	var all []entity.Candle
	for cursor.Before(until) {
		req := PageRequest{Pair: pair, Since: cursor, Until: until, Limit: limit}
		if src.Windowed() {
			if windowEnd := cursor.Add(time.Duration(limit) * day); windowEnd.Before(until) {
				req.Until = windowEnd
			}
		}
		page, err := f.fetchPage(ctx, src, req)
		if err != nil {
			return nil, err
		}

		if src.Windowed() {
			// 期間内に上場前や欠損日があっても次の期間へ進む
			all = append(all, page...)
			cursor = req.Until
			continue
		}

		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		next := dayStart(page[len(page)-1].Time).Add(day)
		if !next.After(cursor) {
			break
		}
		cursor = next

		if len(page) < limit {
			break
		}
	}
	return all, nil
}

// fetchPage requests one page, retrying transient failures with a constant delay.
func (f *ExchangeFetcher) fetchPage(ctx context.Context, src Source, req PageRequest) ([]entity.Candle, error) {
	op := func() ([]entity.Candle, error) {
		page, err := src.FetchPage(ctx, req)
		if err == nil {
			return page, nil
		}
		if errors.Is(err, domain.ErrTransient) && ctx.Err() == nil {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.cfg.RetryDelay), uint64(f.cfg.MaxRetries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		slog.Info("transient error, retrying page", "source", src.Name(), "pair", req.Pair, "since", req.Since.Format(time.DateOnly), "wait", wait, "error", err)
	}

	page, err := backoff.RetryNotifyWithData(op, b, notify)
	if err != nil {
		return nil, fmt.Errorf("%s %s since %s: %w", src.Name(), req.Pair, req.Since.Format(time.DateOnly), err)
	}
	return page, nil
}

func dayStart(t time.Time) time.Time {
	return t.UTC().Truncate(day)
}
