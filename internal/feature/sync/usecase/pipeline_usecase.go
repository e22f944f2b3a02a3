package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	symbolsentity "crypto_backend/internal/feature/symbols/domain/entity"
	symbolsusecase "crypto_backend/internal/feature/symbols/usecase"
	"crypto_backend/internal/feature/sync/domain"
	"crypto_backend/internal/feature/sync/domain/entity"
)

// DirectoryRefresher rebuilds and stores the symbol directory.
type DirectoryRefresher interface {
	Refresh(ctx context.Context, target, pageSize int) (symbolsusecase.DirectoryResult, error)
}

// ActiveSymbolLister returns the stored directory.
type ActiveSymbolLister interface {
	ListActive(ctx context.Context) ([]symbolsentity.Symbol, error)
}

// SyncPlanner computes the tasks for a set of symbols.
type SyncPlanner interface {
	Plan(ctx context.Context, symbols []symbolsentity.Symbol) (entity.Plan, error)
}

// TaskRunner executes planned tasks.
type TaskRunner interface {
	Run(ctx context.Context, runID string, tasks []entity.SyncTask) entity.RunStats
}

// RunLogWriter appends one stage entry to the run log.
type RunLogWriter interface {
	AppendRunLog(ctx context.Context, entry *entity.RunLog) error
}

// RunLock is a lock shared by every process that can start a run.
// Extend reports false once owner no longer holds the lock.
type RunLock interface {
	TryLock(ctx context.Context, owner string) (bool, error)
	Extend(ctx context.Context, owner string) (bool, error)
	Unlock(ctx context.Context, owner string) error
	Owner(ctx context.Context) (string, error)
}

// DefaultLockRenewInterval is how often a running pipeline extends its lock.
const DefaultLockRenewInterval = 10 * time.Minute

// PipelineConfig controls the directory stage and lock renewal.
// LockRenewInterval must be well below the lock TTL.
type PipelineConfig struct {
	TargetCount       int
	PageSize          int
	LockRenewInterval time.Duration
}

// PipelineResult summarizes one pipeline run.
type PipelineResult struct {
	RunID       string
	Directory   symbolsusecase.DirectoryResult
	Plan        entity.PlanSummary
	Stats       entity.RunStats
	Interrupted bool
}

// PipelineUsecase runs directory refresh, planning and the fill in order and
// records every stage in the run log.
type PipelineUsecase struct {
	directory DirectoryRefresher
	stored    ActiveSymbolLister
	planner   SyncPlanner
	runner    TaskRunner
	logs      RunLogWriter
	lock      RunLock
	cfg       PipelineConfig
	now       func() time.Time

	running atomic.Bool

	// バックグラウンド実行の寿命。Shutdown で止める
	lifetime context.Context
	stopRuns context.CancelFunc
	inFlight sync.WaitGroup
}

// NewPipelineUsecase creates a PipelineUsecase. lock may be nil, in which case
// only runs inside this process are serialized.
func NewPipelineUsecase(
	directory DirectoryRefresher,
	stored ActiveSymbolLister,
	planner SyncPlanner,
	runner TaskRunner,
	logs RunLogWriter,
	lock RunLock,
	cfg PipelineConfig,
) *PipelineUsecase {
	if cfg.LockRenewInterval <= 0 {
		cfg.LockRenewInterval = DefaultLockRenewInterval
	}
	lifetime, stop := context.WithCancel(context.Background())
	return &PipelineUsecase{
		directory: directory,
		stored:    stored,
		planner:   planner,
		runner:    runner,
		logs:      logs,
		lock:      lock,
		cfg:       cfg,
		now:       time.Now,
		lifetime:  lifetime,
		stopRuns:  stop,
	}
}

// Run executes one pipeline run and blocks until it finishes.
// It returns domain.ErrRunInProgress when another run holds the lock.
func (p *PipelineUsecase) Run(ctx context.Context) (PipelineResult, error) {
	runID, runCtx, release, err := p.acquire(ctx)
	if err != nil {
		return PipelineResult{}, err
	}
	defer release()
	return p.execute(runCtx, runID)
}

// Start acquires the run lock and runs the pipeline in the background.
// ctx must outlive the caller's request. The run is also interrupted by Shutdown.
func (p *PipelineUsecase) Start(ctx context.Context) (string, error) {
	if p.lifetime.Err() != nil {
		return "", domain.ErrShuttingDown
	}
	ctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(p.lifetime, cancel)

	runID, runCtx, release, err := p.acquire(ctx)
	if err != nil {
		stopAfter()
		cancel()
		return "", err
	}
	p.inFlight.Add(1)
	go func() {
		defer p.inFlight.Done()
		defer cancel()
		defer stopAfter()
		defer release()
		if _, err := p.execute(runCtx, runID); err != nil {
			slog.Error("pipeline run failed", "run_id", runID, "error", err)
		}
	}()
	return runID, nil
}

// Shutdown interrupts background runs started by Start and waits until they
// have written their run log and released the lock, or until ctx is done.
func (p *PipelineUsecase) Shutdown(ctx context.Context) error {
	p.stopRuns()
	done := make(chan struct{})
	go func() {
		p.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquire takes the in-process guard and the shared lock. The returned
// context is cancelled when the lock can no longer be extended.
func (p *PipelineUsecase) acquire(ctx context.Context) (string, context.Context, func(), error) {
	if !p.running.CompareAndSwap(false, true) {
		return "", nil, nil, domain.ErrRunInProgress
	}
	runID := uuid.NewString()

	if p.lock == nil {
		return runID, ctx, func() { p.running.Store(false) }, nil
	}

	ok, err := p.lock.TryLock(ctx, runID)
	if err != nil {
		p.running.Store(false)
		return "", nil, nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		p.running.Store(false)
		if holder, err := p.lock.Owner(ctx); err == nil && holder != "" {
			slog.Info("run lock held by another run", "holder", holder)
		}
		return "", nil, nil, domain.ErrRunInProgress
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		p.renewLock(runCtx, runID, stop, cancel)
	}()

	release := func() {
		close(stop)
		<-renewed
		if err := p.lock.Unlock(context.WithoutCancel(ctx), runID); err != nil {
			slog.Warn("failed to release run lock", "run_id", runID, "error", err)
		}
		cancel(nil)
		p.running.Store(false)
	}
	return runID, runCtx, release, nil
}

// renewLock extends the lock every LockRenewInterval until stop is closed.
// Losing the lock interrupts the run.
func (p *PipelineUsecase) renewLock(ctx context.Context, runID string, stop <-chan struct{}, interrupt context.CancelCauseFunc) {
	ticker := time.NewTicker(p.cfg.LockRenewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ok, err := p.lock.Extend(ctx, runID)
		if err != nil {
			slog.Warn("failed to extend run lock", "run_id", runID, "error", err)
			continue
		}
		if !ok {
			slog.Error("run lock lost, interrupting run", "run_id", runID)
			interrupt(domain.ErrRunLockLost)
			return
		}
	}
}

func (p *PipelineUsecase) execute(ctx context.Context, runID string) (PipelineResult, error) {
	res := PipelineResult{RunID: runID}
	started := p.now()
	slog.Info("pipeline run started", "run_id", runID)

	symbols, err := p.directoryStage(ctx, &res)
	if err != nil {
		return p.finish(ctx, &res, started, err)
	}

	stageStart := p.now()
	plan, err := p.planner.Plan(ctx, symbols)
	if err != nil {
		p.appendLog(ctx, &entity.RunLog{
			RunID: runID, Stage: entity.StagePlanner, Status: p.statusFor(ctx, err),
			SymbolsProcessed: len(symbols), ErrorsCount: 1, ErrorMessage: err.Error(),
			StartedAt: stageStart, FinishedAt: p.now(),
		})
		return p.finish(ctx, &res, started, fmt.Errorf("plan: %w", err))
	}
	res.Plan = plan.Summary
	pending := plan.Pending()
	slog.Info("sync plan ready", "run_id", runID, "tasks", len(plan.Tasks), "pending", len(pending))
	p.appendLog(ctx, &entity.RunLog{
		RunID: runID, Stage: entity.StagePlanner, Status: entity.RunSuccess,
		SymbolsProcessed: len(plan.Tasks),
		Metadata: map[string]any{
			"pending":            len(pending),
			"no_prior_data":      plan.Summary.NoPriorData,
			"incremental":        plan.Summary.Incremental,
			"up_to_date":         plan.Summary.UpToDate,
			"anomalies":          plan.Summary.Anomalies,
			"total_days_missing": plan.Summary.TotalDaysMissing,
		},
		StartedAt: stageStart, FinishedAt: p.now(),
	})

	stats := p.runner.Run(ctx, runID, plan.Tasks)
	res.Stats = stats
	fillStatus := entity.RunSuccess
	var fillErr error
	if ctx.Err() != nil {
		fillStatus = entity.RunInterrupted
		fillErr = context.Cause(ctx)
	}
	p.appendLog(ctx, &entity.RunLog{
		RunID: runID, Stage: entity.StageFill, Status: fillStatus,
		SymbolsProcessed: stats.Succeeded + stats.Failed(),
		RecordsWritten:   stats.RecordsWritten,
		ErrorsCount:      stats.Failed(),
		ErrorMessage:     errMessage(fillErr),
		Metadata: map[string]any{
			"skipped":        stats.Skipped,
			"not_dispatched": stats.NotDispatched,
			"failures":       stats.FailureCounts(),
			"per_source":     stats.PerSource,
		},
		StartedAt: stats.StartedAt, FinishedAt: stats.FinishedAt,
	})

	return p.finish(ctx, &res, started, fillErr)
}

// directoryStage refreshes the directory. When the refresh fails or yields
// nothing, the stored active symbols are used instead.
func (p *PipelineUsecase) directoryStage(ctx context.Context, res *PipelineResult) ([]symbolsentity.Symbol, error) {
	stageStart := p.now()
	dir, err := p.directory.Refresh(ctx, p.cfg.TargetCount, p.cfg.PageSize)
	res.Directory = dir

	entry := &entity.RunLog{
		RunID: res.RunID, Stage: entity.StageDirectory, Status: entity.RunSuccess,
		SymbolsProcessed: len(dir.Symbols),
		ErrorsCount:      len(dir.FailedPages),
		Metadata: map[string]any{
			"listed":       dir.Listed,
			"rejections":   dir.RejectionCounts(),
			"duplicates":   dir.Duplicates,
			"failed_pages": dir.FailedPages,
			"unresolved":   dir.Unresolved,
		},
		StartedAt: stageStart,
	}
	if err != nil {
		entry.Status = p.statusFor(ctx, err)
		entry.ErrorMessage = err.Error()
	}
	entry.FinishedAt = p.now()
	p.appendLog(ctx, entry)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil && len(dir.Symbols) > 0 {
		return dir.Symbols, nil
	}

	slog.Warn("directory refresh produced no symbols, using stored directory", "run_id", res.RunID, "error", err)
	stored, lerr := p.stored.ListActive(ctx)
	if lerr != nil {
		return nil, errors.Join(err, fmt.Errorf("list stored symbols: %w", lerr))
	}
	if len(stored) == 0 {
		return nil, errors.Join(err, domain.ErrNoSymbols)
	}
	return stored, nil
}

func (p *PipelineUsecase) finish(ctx context.Context, res *PipelineResult, started time.Time, runErr error) (PipelineResult, error) {
	status := entity.RunSuccess
	if runErr != nil {
		status = p.statusFor(ctx, runErr)
	}
	res.Interrupted = status == entity.RunInterrupted

	p.appendLog(ctx, &entity.RunLog{
		RunID: res.RunID, Stage: entity.StageFullPipeline, Status: status,
		SymbolsProcessed: res.Stats.Succeeded + res.Stats.Failed(),
		RecordsWritten:   res.Stats.RecordsWritten,
		ErrorsCount:      res.Stats.Failed(),
		ErrorMessage:     errMessage(runErr),
		Metadata: map[string]any{
			"directory_symbols": len(res.Directory.Symbols),
			"succeeded":         res.Stats.Succeeded,
			"skipped":           res.Stats.Skipped,
		},
		StartedAt: started, FinishedAt: p.now(),
	})

	slog.Info("pipeline run finished",
		"run_id", res.RunID,
		"status", status,
		"succeeded", res.Stats.Succeeded,
		"failed", res.Stats.Failed(),
		"records_written", res.Stats.RecordsWritten,
		"duration", p.now().Sub(started),
	)
	return *res, runErr
}

func (p *PipelineUsecase) statusFor(ctx context.Context, err error) entity.RunStatus {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return entity.RunInterrupted
	}
	return entity.RunFailed
}

// appendLog writes a run log entry even after ctx was cancelled.
// A failed write is only logged.
func (p *PipelineUsecase) appendLog(ctx context.Context, entry *entity.RunLog) {
	if err := p.logs.AppendRunLog(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("failed to write run log", "run_id", entry.RunID, "stage", entry.Stage, "error", err)
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
