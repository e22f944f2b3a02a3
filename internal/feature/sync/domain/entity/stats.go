package entity

import "time"

// TaskState is a step of one task's lifecycle.
type TaskState string

const (
	StatePlanned       TaskState = "planned"
	StateFetching      TaskState = "fetching"
	StateFetched       TaskState = "fetched"
	StateExhausted     TaskState = "exhausted"
	StatePersisted     TaskState = "persisted"
	StatePersistFailed TaskState = "persist_failed"
	StateCancelled     TaskState = "cancelled"
)

// Terminal reports whether no further transition follows s.
func (s TaskState) Terminal() bool {
	switch s {
	case StateExhausted, StatePersisted, StatePersistFailed, StateCancelled:
		return true
	}
	return false
}

// StateObserver receives every task transition. Implementations must be safe
// for concurrent use.
type StateObserver interface {
	Observe(symbol string, from, to TaskState)
}

// FailureReason classifies a failed task.
type FailureReason string

const (
	// FailExhausted はどのソースにもデータがなかったことを表します。
	FailExhausted FailureReason = "exhausted"
	// FailSourceError は少なくとも1つのソースがエラーで失敗し、他のソースにもデータがなかったことを表します。
	FailSourceError   FailureReason = "source_error"
	FailPersistFailed FailureReason = "persist_failed"
	FailCancelled     FailureReason = "cancelled"
)

// TaskFailure records one failed task.
type TaskFailure struct {
	Symbol string
	Reason FailureReason
	Error  string
}

// RunStats aggregates one orchestrator run.
type RunStats struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Planned        int
	Succeeded      int
	Skipped        int
	NotDispatched  int
	RecordsWritten int
	Failures       []TaskFailure
	PerSource      map[string]int
}

// Failed returns the number of failed tasks.
func (s RunStats) Failed() int {
	return len(s.Failures)
}

// FailureCounts groups failures by reason.
func (s RunStats) FailureCounts() map[FailureReason]int {
	counts := make(map[FailureReason]int)
	for _, f := range s.Failures {
		counts[f.Reason]++
	}
	return counts
}

// Duration returns the wall time of the run.
func (s RunStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
