package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	candlesentity "crypto_backend/internal/feature/candles/domain/entity"
	symbolsentity "crypto_backend/internal/feature/symbols/domain/entity"
	symbolsusecase "crypto_backend/internal/feature/symbols/usecase"
	"crypto_backend/internal/feature/sync/domain"
	"crypto_backend/internal/feature/sync/domain/entity"
	"crypto_backend/internal/feature/sync/usecase"
)

type fakeDirectory struct {
	RefreshFunc func(ctx context.Context, target, pageSize int) (symbolsusecase.DirectoryResult, error)
}

func (f *fakeDirectory) Refresh(ctx context.Context, target, pageSize int) (symbolsusecase.DirectoryResult, error) {
	return f.RefreshFunc(ctx, target, pageSize)
}

type fakeStored struct {
	symbols []symbolsentity.Symbol
	err     error
}

func (f *fakeStored) ListActive(ctx context.Context) ([]symbolsentity.Symbol, error) {
	return f.symbols, f.err
}

type fakeRunLogs struct {
	mu      sync.Mutex
	entries []entity.RunLog
	err     error
}

func (f *fakeRunLogs) AppendRunLog(ctx context.Context, entry *entity.RunLog) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return f.err
}

func (f *fakeRunLogs) stages() map[entity.Stage]entity.RunStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[entity.Stage]entity.RunStatus, len(f.entries))
	for _, e := range f.entries {
		out[e.Stage] = e.Status
	}
	return out
}

func (f *fakeRunLogs) entry(stage entity.Stage) (entity.RunLog, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Stage == stage {
			return e, true
		}
	}
	return entity.RunLog{}, false
}

type fakeLock struct {
	mu       sync.Mutex
	held     bool
	holder   string
	lost     bool
	err      error
	extended int
	unlocked []string
}

func (f *fakeLock) TryLock(ctx context.Context, owner string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	f.holder = owner
	return true, nil
}

func (f *fakeLock) Extend(ctx context.Context, owner string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lost || f.holder != owner {
		return false, nil
	}
	f.extended++
	return true, nil
}

func (f *fakeLock) Unlock(ctx context.Context, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = false
	f.holder = ""
	f.unlocked = append(f.unlocked, owner)
	return nil
}

func (f *fakeLock) Owner(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holder, nil
}

func (f *fakeLock) extensions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.extended
}

func (f *fakeLock) releasedBy() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unlocked...)
}

func directoryOf(symbols ...symbolsentity.Symbol) *fakeDirectory {
	return &fakeDirectory{RefreshFunc: func(ctx context.Context, target, pageSize int) (symbolsusecase.DirectoryResult, error) {
		return symbolsusecase.DirectoryResult{Symbols: symbols, Listed: len(symbols)}, nil
	}}
}

func okFetcher() *fakeFetcher {
	return &fakeFetcher{FetchFunc: func(ctx context.Context, ref candlesentity.SymbolRef, start, end time.Time) candlesentity.FetchOutcome {
		return fetchedFrom("binance", 2)
	}}
}

type pipelineDeps struct {
	directory usecase.DirectoryRefresher
	stored    *fakeStored
	lastSync  *mockLastSyncReader
	fetcher   *fakeFetcher
	logs      *fakeRunLogs
	lock      usecase.RunLock
	renew     time.Duration
}

func newPipeline(d pipelineDeps) *usecase.PipelineUsecase {
	if d.stored == nil {
		d.stored = &fakeStored{}
	}
	if d.lastSync == nil {
		d.lastSync = &mockLastSyncReader{}
	}
	if d.fetcher == nil {
		d.fetcher = okFetcher()
	}
	planner := usecase.NewPlanner(d.lastSync, 30, fixedClock(date(2024, 1, 10)))
	orch := usecase.NewOrchestrator(d.fetcher, &fakePersister{}, usecase.OrchestratorConfig{MaxConcurrency: 4}, nil)
	return usecase.NewPipelineUsecase(d.directory, d.stored, planner, orch, d.logs, d.lock, usecase.PipelineConfig{TargetCount: 10, PageSize: 10, LockRenewInterval: d.renew})
}

func TestPipelineUsecase_Run_Success(t *testing.T) {
	t.Parallel()

	logs := &fakeRunLogs{}
	lock := &fakeLock{}
	p := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC", "ETH", "SOL")...),
		lastSync:  &mockLastSyncReader{dates: map[string]time.Time{"ETH": date(2024, 1, 9), "SOL": date(2024, 1, 10)}},
		logs:      logs,
		lock:      lock,
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.Interrupted)
	assert.Equal(t, entity.PlanSummary{NoPriorData: 1, Incremental: 1, UpToDate: 1, TotalDaysMissing: 31}, res.Plan)
	assert.Equal(t, 2, res.Stats.Succeeded)
	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Equal(t, 4, res.Stats.RecordsWritten)

	assert.Equal(t, map[entity.Stage]entity.RunStatus{
		entity.StageDirectory:    entity.RunSuccess,
		entity.StagePlanner:      entity.RunSuccess,
		entity.StageFill:         entity.RunSuccess,
		entity.StageFullPipeline: entity.RunSuccess,
	}, logs.stages())
	for _, e := range logs.entries {
		assert.Equal(t, res.RunID, e.RunID)
	}
	assert.Equal(t, []string{res.RunID}, lock.unlocked)
}

func TestPipelineUsecase_Run_FallsBackToStoredSymbols(t *testing.T) {
	t.Parallel()

	logs := &fakeRunLogs{}
	p := newPipeline(pipelineDeps{
		directory: &fakeDirectory{RefreshFunc: func(ctx context.Context, target, pageSize int) (symbolsusecase.DirectoryResult, error) {
			return symbolsusecase.DirectoryResult{FailedPages: []int{1}}, errors.New("directory: no listing page could be fetched")
		}},
		stored: &fakeStored{symbols: syms("BTC")},
		logs:   logs,
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Succeeded)

	stages := logs.stages()
	assert.Equal(t, entity.RunFailed, stages[entity.StageDirectory])
	assert.Equal(t, entity.RunSuccess, stages[entity.StageFullPipeline])
}

func TestPipelineUsecase_Run_NoSymbols(t *testing.T) {
	t.Parallel()

	logs := &fakeRunLogs{}
	p := newPipeline(pipelineDeps{
		directory: directoryOf(),
		stored:    &fakeStored{},
		logs:      logs,
	})

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSymbols)
	assert.Equal(t, entity.RunFailed, logs.stages()[entity.StageFullPipeline])
}

func TestPipelineUsecase_Run_LockHeldElsewhere(t *testing.T) {
	t.Parallel()

	logs := &fakeRunLogs{}
	p := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC")...),
		logs:      logs,
		lock:      &fakeLock{held: true},
	})

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	assert.Empty(t, logs.entries)

	// the in-process guard is released after a refused lock
	p2 := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC")...),
		logs:      logs,
		lock:      &fakeLock{err: errors.New("redis down")},
	})
	_, err = p2.Run(context.Background())
	assert.ErrorContains(t, err, "redis down")
	_, err = p2.Run(context.Background())
	assert.ErrorContains(t, err, "redis down")
}

func TestPipelineUsecase_Start_RejectsOverlappingRun(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	fetching := make(chan struct{}, 1)
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, ref candlesentity.SymbolRef, start, end time.Time) candlesentity.FetchOutcome {
		fetching <- struct{}{}
		<-release
		return fetchedFrom("binance", 1)
	}}
	logs := &fakeRunLogs{}
	p := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC")...),
		fetcher:   fetcher,
		logs:      logs,
	})

	runID, err := p.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	<-fetching

	_, err = p.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(release)
	assert.Eventually(t, func() bool {
		return logs.stages()[entity.StageFullPipeline] == entity.RunSuccess
	}, time.Second, 10*time.Millisecond)
}

func TestPipelineUsecase_Run_Interrupted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, ref candlesentity.SymbolRef, start, end time.Time) candlesentity.FetchOutcome {
		cancel()
		return candlesentity.FetchOutcome{Status: candlesentity.FetchStatusAborted, Err: context.Canceled}
	}}
	logs := &fakeRunLogs{}
	p := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC")...),
		fetcher:   fetcher,
		logs:      logs,
	})

	res, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Interrupted)
	assert.Equal(t, 1, res.Stats.FailureCounts()[entity.FailCancelled])

	// stage entries are still written after cancellation
	stages := logs.stages()
	assert.Equal(t, entity.RunInterrupted, stages[entity.StageFill])
	assert.Equal(t, entity.RunInterrupted, stages[entity.StageFullPipeline])
}

func TestPipelineUsecase_Run_LogWriteFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	p := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC")...),
		logs:      &fakeRunLogs{err: errors.New("table missing")},
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Succeeded)
}

func TestPipelineUsecase_Run_RecordsSourceErrorsInFillLog(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, ref candlesentity.SymbolRef, start, end time.Time) candlesentity.FetchOutcome {
		return candlesentity.FetchOutcome{
			Status:   candlesentity.FetchStatusExhausted,
			Attempts: []candlesentity.SourceAttempt{{Source: "binance", Err: errors.New("binance BTCUSDT: 503")}},
		}
	}}
	logs := &fakeRunLogs{}
	p := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC")...),
		fetcher:   fetcher,
		logs:      logs,
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.FailureCounts()[entity.FailSourceError])

	fill, ok := logs.entry(entity.StageFill)
	require.True(t, ok)
	assert.Equal(t, 1, fill.ErrorsCount)
	assert.Equal(t, map[entity.FailureReason]int{entity.FailSourceError: 1}, fill.Metadata["failures"])

	planner, ok := logs.entry(entity.StagePlanner)
	require.True(t, ok)
	assert.Equal(t, 1, planner.Metadata["pending"])
}

func TestPipelineUsecase_Run_ExtendsLockWhileRunning(t *testing.T) {
	t.Parallel()

	lock := &fakeLock{}
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, ref candlesentity.SymbolRef, start, end time.Time) candlesentity.FetchOutcome {
		deadline := time.Now().Add(time.Second)
		for lock.extensions() < 2 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		return fetchedFrom("binance", 1)
	}}
	p := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC")...),
		fetcher:   fetcher,
		logs:      &fakeRunLogs{},
		lock:      lock,
		renew:     5 * time.Millisecond,
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Succeeded)
	assert.GreaterOrEqual(t, lock.extensions(), 2)
	assert.Equal(t, []string{res.RunID}, lock.releasedBy())
}

func TestPipelineUsecase_Run_LockLostInterruptsRun(t *testing.T) {
	t.Parallel()

	lock := &fakeLock{lost: true}
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, ref candlesentity.SymbolRef, start, end time.Time) candlesentity.FetchOutcome {
		<-ctx.Done()
		return candlesentity.FetchOutcome{Status: candlesentity.FetchStatusAborted, Err: ctx.Err()}
	}}
	logs := &fakeRunLogs{}
	p := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC")...),
		fetcher:   fetcher,
		logs:      logs,
		lock:      lock,
		renew:     5 * time.Millisecond,
	})

	res, err := p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunLockLost)
	assert.True(t, res.Interrupted)
	assert.Equal(t, entity.RunInterrupted, logs.stages()[entity.StageFill])
	assert.Len(t, lock.releasedBy(), 1)
}

func TestPipelineUsecase_Shutdown_InterruptsBackgroundRun(t *testing.T) {
	t.Parallel()

	fetching := make(chan struct{}, 1)
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, ref candlesentity.SymbolRef, start, end time.Time) candlesentity.FetchOutcome {
		fetching <- struct{}{}
		<-ctx.Done()
		return candlesentity.FetchOutcome{Status: candlesentity.FetchStatusAborted, Err: ctx.Err()}
	}}
	logs := &fakeRunLogs{}
	lock := &fakeLock{}
	p := newPipeline(pipelineDeps{
		directory: directoryOf(syms("BTC")...),
		fetcher:   fetcher,
		logs:      logs,
		lock:      lock,
	})

	runID, err := p.Start(context.Background())
	require.NoError(t, err)
	<-fetching

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	assert.Equal(t, entity.RunInterrupted, logs.stages()[entity.StageFullPipeline])
	assert.Equal(t, []string{runID}, lock.releasedBy())

	_, err = p.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrShuttingDown)
}
