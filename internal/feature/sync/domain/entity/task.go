// Package entity defines the planning and run models of the sync feature.
package entity

import (
	"time"

	candlesentity "crypto_backend/internal/feature/candles/domain/entity"
)

// Classification tells how much history a symbol is missing.
type Classification string

const (
	ClassNoPriorData Classification = "no_prior_data"
	ClassIncremental Classification = "incremental"
	ClassUpToDate    Classification = "up_to_date"
)

// SyncTask is the missing date range of one symbol.
// Start and End are UTC midnights and both are inclusive.
type SyncTask struct {
	Symbol         string
	Name           string
	CatalogID      string
	Pairs          map[string]string
	LastSyncDate   *time.Time
	Start          time.Time
	End            time.Time
	DaysMissing    int
	Classification Classification
	// Anomaly marks a last sync date later than today.
	Anomaly bool
}

// NeedsFetch reports whether the task has days to fetch.
func (t SyncTask) NeedsFetch() bool {
	return t.Classification != ClassUpToDate
}

// Ref returns the identity handed to the exchange sources.
func (t SyncTask) Ref() candlesentity.SymbolRef {
	return candlesentity.SymbolRef{
		Symbol:    t.Symbol,
		Name:      t.Name,
		CatalogID: t.CatalogID,
		Pairs:     t.Pairs,
	}
}

// PlanSummary counts tasks per classification.
type PlanSummary struct {
	NoPriorData      int
	Incremental      int
	UpToDate         int
	Anomalies        int
	TotalDaysMissing int
}

// Plan is the planner output in input order.
type Plan struct {
	Tasks   []SyncTask
	Summary PlanSummary
}

// Pending returns the tasks that need fetching.
func (p Plan) Pending() []SyncTask {
	out := make([]SyncTask, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		if t.NeedsFetch() {
			out = append(out, t)
		}
	}
	return out
}
