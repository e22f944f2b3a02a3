package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"crypto_backend/internal/feature/symbols/domain/entity"
)

const (
	// DefaultTargetCount は銘柄ディレクトリに保持する銘柄数です。
	DefaultTargetCount = 1000
	// DefaultPageSize はマーケット一覧の1ページあたりの件数です。
	DefaultPageSize = 250
	// DefaultMinVolume24h は24時間出来高の下限です。
	DefaultMinVolume24h = 1000
	// DefaultMinMarketCap は時価総額の下限です。
	DefaultMinMarketCap = 100000
	// defaultPageConcurrency は同時に取得する一覧ページ数です。
	defaultPageConcurrency = 4
)

// MarketListing は時価総額順のマーケット一覧を提供します（CoinGecko）。
type MarketListing interface {
	ListMarkets(ctx context.Context, page, perPage int) ([]entity.MarketListing, error)
}

// MarketSetLoader は取引所がネイティブ建て通貨で上場しているペアを base ごとに返します。
type MarketSetLoader interface {
	Name() string
	LoadQuoteMarkets(ctx context.Context) (map[string]string, error)
}

// SymbolWriter は銘柄メタデータを symbol をキーに保存します。
// 最終同期日と保存件数は更新しません。
type SymbolWriter interface {
	UpsertSymbolMetadata(ctx context.Context, symbols []entity.Symbol) error
}

// DirectoryConfig holds the listing filters.
type DirectoryConfig struct {
	MinVolume24h    float64
	MinMarketCap    float64
	PageConcurrency int
}

// DirectoryResult is the outcome of one directory build.
type DirectoryResult struct {
	Symbols     []entity.Symbol
	Rejections  []entity.Rejection
	Listed      int      // entries received from the listing
	Duplicates  int      // entries dropped in favour of a better ranked duplicate
	FailedPages []int    // listing pages that could not be fetched
	Unresolved  []string // exchanges whose market set could not be loaded
}

// RejectionCounts groups rejections by reason.
func (r DirectoryResult) RejectionCounts() map[entity.RejectReason]int {
	counts := make(map[entity.RejectReason]int)
	for _, rej := range r.Rejections {
		counts[rej.Reason]++
	}
	return counts
}

// DirectoryUsecase builds the ranked symbol directory from the market listing
// and resolves each symbol's trading pair on every configured exchange.
type DirectoryUsecase struct {
	listing MarketListing
	loaders []MarketSetLoader
	repo    SymbolWriter
	cfg     DirectoryConfig
}

// NewDirectoryUsecase creates a DirectoryUsecase.
func NewDirectoryUsecase(listing MarketListing, loaders []MarketSetLoader, repo SymbolWriter, cfg DirectoryConfig) *DirectoryUsecase {
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = defaultPageConcurrency
	}
	return &DirectoryUsecase{listing: listing, loaders: loaders, repo: repo, cfg: cfg}
}

// Refresh builds the directory and upserts the metadata of every retained symbol.
func (u *DirectoryUsecase) Refresh(ctx context.Context, target, pageSize int) (DirectoryResult, error) {
	res, err := u.Build(ctx, target, pageSize)
	if err != nil {
		return res, err
	}
	if len(res.Symbols) == 0 {
		return res, nil
	}
	if err := u.repo.UpsertSymbolMetadata(ctx, res.Symbols); err != nil {
		return res, fmt.Errorf("upsert symbol metadata: %w", err)
	}
	return res, nil
}

// Build fetches ceil(target/pageSize) listing pages, filters and deduplicates
// the entries, and returns at most target symbols ordered by rank.
// A failed page contributes nothing; the build fails only when every page failed.
func (u *DirectoryUsecase) Build(ctx context.Context, target, pageSize int) (DirectoryResult, error) {
	var res DirectoryResult
	if target <= 0 {
		target = DefaultTargetCount
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	pages, failed := u.fetchPages(ctx, target, pageSize)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.FailedPages = failed
	if len(failed) == len(pages) {
		return res, errors.New("directory: no listing page could be fetched")
	}

	var accepted []entity.MarketListing
	for _, page := range pages {
		for _, l := range page {
			res.Listed++
			if reason, ok := u.validate(l); !ok {
				res.Rejections = append(res.Rejections, entity.Rejection{Symbol: l.Symbol, Name: l.Name, Reason: reason})
				continue
			}
			accepted = append(accepted, l)
		}
	}

	deduped := dedupe(accepted)
	res.Duplicates = len(accepted) - len(deduped)
	if len(deduped) > target {
		deduped = deduped[:target]
	}

	markets, unresolved := u.loadMarkets(ctx)
	res.Unresolved = unresolved

	res.Symbols = make([]entity.Symbol, 0, len(deduped))
	for _, l := range deduped {
		res.Symbols = append(res.Symbols, toSymbol(l, markets))
	}

	slog.Info("symbol directory built",
		"listed", res.Listed,
		"accepted", len(res.Symbols),
		"rejected", len(res.Rejections),
		"duplicates", res.Duplicates,
		"failed_pages", len(res.FailedPages),
		"unresolved_exchanges", res.Unresolved,
	)
	return res, nil
}

func (u *DirectoryUsecase) fetchPages(ctx context.Context, target, pageSize int) ([][]entity.MarketListing, []int) {
	n := (target + pageSize - 1) / pageSize
	pages := make([][]entity.MarketListing, n)

	var (
		mu     sync.Mutex
		failed []int
	)
	// Page errors are logged, not returned, so one bad page never cancels the rest.
	g := new(errgroup.Group)
	g.SetLimit(u.cfg.PageConcurrency)
	for i := range n {
		page := i + 1
		g.Go(func() error {
			listings, err := u.listing.ListMarkets(ctx, page, pageSize)
			if err != nil {
				slog.Error("failed to fetch listing page", "page", page, "error", err)
				mu.Lock()
				failed = append(failed, page)
				mu.Unlock()
				return nil
			}
			pages[i] = listings
			return nil
		})
	}
	_ = g.Wait()

	sort.Ints(failed)
	return pages, failed
}

func (u *DirectoryUsecase) validate(l entity.MarketListing) (entity.RejectReason, bool) {
	switch {
	case strings.TrimSpace(l.Symbol) == "" || strings.TrimSpace(l.Name) == "":
		return entity.RejectMissingIdentity, false
	case l.Price == nil || *l.Price <= 0:
		return entity.RejectNoPrice, false
	case l.Volume24h == nil || *l.Volume24h < u.cfg.MinVolume24h:
		return entity.RejectLowLiquidity, false
	case l.MarketCap == nil || *l.MarketCap < u.cfg.MinMarketCap:
		return entity.RejectLowMarketCap, false
	case l.Rank == nil:
		return entity.RejectNoRank, false
	}
	return "", true
}

// dedupe keeps the best ranked entry per upper-cased symbol and sorts by rank.
func dedupe(listings []entity.MarketListing) []entity.MarketListing {
	best := make(map[string]entity.MarketListing, len(listings))
	for _, l := range listings {
		key := strings.ToUpper(strings.TrimSpace(l.Symbol))
		if cur, ok := best[key]; !ok || *l.Rank < *cur.Rank {
			best[key] = l
		}
	}

	out := make([]entity.MarketListing, 0, len(best))
	for _, l := range best {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if *out[i].Rank != *out[j].Rank {
			return *out[i].Rank < *out[j].Rank
		}
		return strings.ToUpper(out[i].Symbol) < strings.ToUpper(out[j].Symbol)
	})
	return out
}

// loadMarkets loads every exchange's market set concurrently.
// Exchanges that fail are reported as unresolved.
func (u *DirectoryUsecase) loadMarkets(ctx context.Context) (map[string]map[string]string, []string) {
	var (
		mu         sync.Mutex
		markets    = make(map[string]map[string]string, len(u.loaders))
		unresolved []string
	)

	g := new(errgroup.Group)
	for _, loader := range u.loaders {
		g.Go(func() error {
			m, err := loader.LoadQuoteMarkets(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("failed to load exchange markets, pairs left unresolved", "exchange", loader.Name(), "error", err)
				unresolved = append(unresolved, loader.Name())
				return nil
			}
			markets[loader.Name()] = m
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(unresolved)
	return markets, unresolved
}

func toSymbol(l entity.MarketListing, markets map[string]map[string]string) entity.Symbol {
	code := strings.ToUpper(strings.TrimSpace(l.Symbol))

	pairs := make(map[string]string, len(markets))
	for exchange, m := range markets {
		pairs[exchange] = m[code]
	}

	return entity.Symbol{
		Symbol:       code,
		Name:         strings.TrimSpace(l.Name),
		Rank:         *l.Rank,
		CatalogID:    l.CatalogID,
		TradingPairs: pairs,
		MarketCap:    deref(l.MarketCap),
		CurrentPrice: deref(l.Price),
		Volume24h:    deref(l.Volume24h),
		IsActive:     true,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
