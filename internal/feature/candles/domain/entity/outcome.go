package entity

// FetchStatus is the terminal status of one symbol's fetch across all sources.
type FetchStatus string

const (
	// FetchStatusFetched means one source returned candles.
	FetchStatusFetched FetchStatus = "fetched"
	// FetchStatusExhausted means every source was tried and none had data.
	FetchStatusExhausted FetchStatus = "exhausted"
	// FetchStatusAborted means the fetch stopped because the context ended.
	FetchStatusAborted FetchStatus = "aborted"
)

// SourceAttempt records how one source was tried for a symbol.
type SourceAttempt struct {
	Source  string
	Pair    string
	Skipped bool  // no pair for this source
	Candles int   // candles returned
	Err     error // last error, nil when the source answered
}

// FetchOutcome is the result of fetching one symbol.
// Candles are in chronological order and all come from Source.
type FetchOutcome struct {
	Status        FetchStatus
	Source        string
	QuoteCurrency string
	Candles       []Candle
	Attempts      []SourceAttempt
	Err           error
}

// HadErrors reports whether any source failed with an error rather than
// answering with no data.
func (o FetchOutcome) HadErrors() bool {
	for _, a := range o.Attempts {
		if a.Err != nil {
			return true
		}
	}
	return false
}
