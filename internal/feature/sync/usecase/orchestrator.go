package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	candlesdomain "crypto_backend/internal/feature/candles/domain"
	candlesentity "crypto_backend/internal/feature/candles/domain/entity"
	candlesusecase "crypto_backend/internal/feature/candles/usecase"
	"crypto_backend/internal/feature/sync/domain/entity"
)

const (
	// DefaultMaxConcurrency is the number of symbols synced at once.
	DefaultMaxConcurrency = 20
	// DefaultTaskDelay spaces out task dispatches.
	DefaultTaskDelay = 100 * time.Millisecond
)

// Fetcher retrieves one symbol's candles from the exchange sources.
type Fetcher interface {
	Fetch(ctx context.Context, ref candlesentity.SymbolRef, start, end time.Time) candlesentity.FetchOutcome
}

// Persister stores one symbol's fetched candles.
type Persister interface {
	Persist(ctx context.Context, req candlesusecase.PersistRequest) (candlesusecase.PersistResult, error)
}

// OrchestratorConfig bounds the worker pool.
type OrchestratorConfig struct {
	MaxConcurrency int
	TaskDelay      time.Duration
}

// Orchestrator runs fetch-then-persist for every pending task on a bounded pool.
type Orchestrator struct {
	fetcher   Fetcher
	persister Persister
	cfg       OrchestratorConfig
	observer  entity.StateObserver
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator. observer may be nil.
func NewOrchestrator(f Fetcher, p Persister, cfg OrchestratorConfig, observer entity.StateObserver) *Orchestrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.TaskDelay < 0 {
		cfg.TaskDelay = 0
	}
	return &Orchestrator{fetcher: f, persister: p, cfg: cfg, observer: observer, now: time.Now}
}

// Run processes tasks and returns the aggregated stats. Task errors are
// folded into the stats and never returned. When ctx ends, no further task is
// dispatched and in-flight tasks are recorded as cancelled.
// An empty runID gets a generated one.
func (o *Orchestrator) Run(ctx context.Context, runID string, tasks []entity.SyncTask) entity.RunStats {
	if runID == "" {
		runID = uuid.NewString()
	}
	stats := entity.RunStats{
		RunID:     runID,
		StartedAt: o.now(),
		PerSource: make(map[string]int),
	}

	pending := make([]entity.SyncTask, 0, len(tasks))
	for _, t := range tasks {
		if t.NeedsFetch() {
			pending = append(pending, t)
		} else {
			stats.Skipped++
		}
	}
	stats.Planned = len(pending)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.MaxConcurrency)

dispatch:
	for i, task := range pending {
		if i > 0 && o.cfg.TaskDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.cfg.TaskDelay):
			}
		}
		if ctx.Err() != nil {
			stats.NotDispatched = len(pending) - i
			break dispatch
		}
		g.Go(func() error {
			o.runTask(ctx, task, &stats, &mu)
			return nil
		})
	}
	_ = g.Wait()

	stats.FinishedAt = o.now()
	slog.Info("sync run finished",
		"run_id", stats.RunID,
		"planned", stats.Planned,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed(),
		"skipped", stats.Skipped,
		"not_dispatched", stats.NotDispatched,
		"records_written", stats.RecordsWritten,
		"per_source", stats.PerSource,
		"duration", stats.Duration(),
	)
	return stats
}

func (o *Orchestrator) runTask(ctx context.Context, task entity.SyncTask, stats *entity.RunStats, mu *sync.Mutex) {
	o.transition(task.Symbol, entity.StatePlanned, entity.StateFetching)
	out := o.fetcher.Fetch(ctx, task.Ref(), task.Start, task.End)

	switch out.Status {
	case candlesentity.FetchStatusAborted:
		o.fail(task, entity.StateFetching, entity.FailCancelled, out.Err, stats, mu)
		return
	case candlesentity.FetchStatusExhausted:
		if out.HadErrors() {
			o.fail(task, entity.StateFetching, entity.FailSourceError, sourceErrors(out), stats, mu)
			return
		}
		o.fail(task, entity.StateFetching, entity.FailExhausted, out.Err, stats, mu)
		return
	}
	o.transition(task.Symbol, entity.StateFetching, entity.StateFetched)

	res, err := o.persister.Persist(ctx, candlesusecase.PersistRequest{
		Ref:     task.Ref(),
		Start:   task.Start,
		End:     task.End,
		Outcome: out,
	})
	if err != nil {
		reason := entity.FailPersistFailed
		switch {
		case ctx.Err() != nil || errors.Is(err, context.Canceled):
			reason = entity.FailCancelled
		case errors.Is(err, candlesdomain.ErrNoData):
			// 範囲内の足がない場合は同期済みにしない
			reason = entity.FailExhausted
		}
		o.fail(task, entity.StateFetched, reason, err, stats, mu)
		return
	}

	mu.Lock()
	stats.Succeeded++
	stats.RecordsWritten += res.Written
	stats.PerSource[out.Source]++
	mu.Unlock()

	o.transition(task.Symbol, entity.StateFetched, entity.StatePersisted)
	slog.Info("symbol synced",
		"symbol", task.Symbol,
		"source", out.Source,
		"written", res.Written,
		"total", res.Total,
		"class", task.Classification,
	)
}

func (o *Orchestrator) fail(task entity.SyncTask, from entity.TaskState, reason entity.FailureReason, err error, stats *entity.RunStats, mu *sync.Mutex) {
	f := entity.TaskFailure{Symbol: task.Symbol, Reason: reason}
	if err != nil {
		f.Error = err.Error()
	}

	mu.Lock()
	stats.Failures = append(stats.Failures, f)
	mu.Unlock()

	to := entity.StateExhausted
	switch reason {
	case entity.FailPersistFailed:
		to = entity.StatePersistFailed
	case entity.FailCancelled:
		to = entity.StateCancelled
	}
	o.transition(task.Symbol, from, to)

	if reason == entity.FailExhausted {
		slog.Info("no data from any source", "symbol", task.Symbol, "start", task.Start.Format(time.DateOnly), "end", task.End.Format(time.DateOnly))
		return
	}
	slog.Warn("symbol sync failed", "symbol", task.Symbol, "reason", reason, "error", err)
}

// sourceErrors joins the errors of the sources that failed.
func sourceErrors(out candlesentity.FetchOutcome) error {
	var errs []error
	for _, a := range out.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) transition(symbol string, from, to entity.TaskState) {
	if o.observer != nil {
		o.observer.Observe(symbol, from, to)
	}
}
