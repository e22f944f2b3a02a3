// Package usecase implements sync planning, the task orchestrator and the pipeline run.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	symbolsentity "crypto_backend/internal/feature/symbols/domain/entity"
	"crypto_backend/internal/feature/sync/domain/entity"
)

// DefaultLookbackDays is the history fetched for a symbol never synced before.
const DefaultLookbackDays = 10 * 365

// LastSyncReader は銘柄ごとの最終同期日を一括で返します。
// 未同期の銘柄は結果に含まれません。
type LastSyncReader interface {
	GetLastSyncDates(ctx context.Context, symbols []string) (map[string]time.Time, error)
}

// Planner computes each symbol's missing date range.
type Planner struct {
	repo     LastSyncReader
	lookback int
	now      func() time.Time
}

// NewPlanner creates a Planner. A nil clock uses time.Now.
func NewPlanner(repo LastSyncReader, lookbackDays int, now func() time.Time) *Planner {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if now == nil {
		now = time.Now
	}
	return &Planner{repo: repo, lookback: lookbackDays, now: now}
}

// Plan classifies every symbol against today's UTC date using a single
// last-sync lookup. Tasks keep the input order.
func (p *Planner) Plan(ctx context.Context, symbols []symbolsentity.Symbol) (entity.Plan, error) {
	var plan entity.Plan
	if len(symbols) == 0 {
		return plan, nil
	}

	codes := make([]string, 0, len(symbols))
	for _, s := range symbols {
		codes = append(codes, s.Symbol)
	}
	last, err := p.repo.GetLastSyncDates(ctx, codes)
	if err != nil {
		return plan, fmt.Errorf("get last sync dates: %w", err)
	}

	today := dayStart(p.now())
	plan.Tasks = make([]entity.SyncTask, 0, len(symbols))

	for _, s := range symbols {
		task := entity.SyncTask{
			Symbol:    s.Symbol,
			Name:      s.Name,
			CatalogID: s.CatalogID,
			Pairs:     s.TradingPairs,
			End:       today,
		}

		d, synced := last[s.Symbol]
		if !synced {
			task.Start = today.AddDate(0, 0, -p.lookback)
			task.DaysMissing = p.lookback
			task.Classification = entity.ClassNoPriorData
			plan.Summary.NoPriorData++
			plan.Summary.TotalDaysMissing += task.DaysMissing
			plan.Tasks = append(plan.Tasks, task)
			continue
		}

		d = dayStart(d)
		task.LastSyncDate = &d
		task.Start = d.AddDate(0, 0, 1)
		task.DaysMissing = int(today.Sub(d) / (24 * time.Hour))

		switch {
		case task.DaysMissing > 0:
			task.Classification = entity.ClassIncremental
			plan.Summary.Incremental++
			plan.Summary.TotalDaysMissing += task.DaysMissing
		default:
			task.Classification = entity.ClassUpToDate
			plan.Summary.UpToDate++
			if task.DaysMissing < 0 {
				task.Anomaly = true
				plan.Summary.Anomalies++
				slog.Warn("last sync date is in the future, skipping", "symbol", s.Symbol, "last_sync_date", d.Format(time.DateOnly), "today", today.Format(time.DateOnly))
			}
		}
		plan.Tasks = append(plan.Tasks, task)
	}

	slog.Info("sync plan built",
		"symbols", len(plan.Tasks),
		"no_prior_data", plan.Summary.NoPriorData,
		"incremental", plan.Summary.Incremental,
		"up_to_date", plan.Summary.UpToDate,
		"anomalies", plan.Summary.Anomalies,
		"total_days_missing", plan.Summary.TotalDaysMissing,
	)
	return plan, nil
}

func dayStart(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
