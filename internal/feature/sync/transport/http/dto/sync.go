// Package dto defines data transfer objects for the sync HTTP API.
package dto

import "time"

// SyncStartedResponse is returned when a pipeline run was started.
type SyncStartedResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// RunLogResponse is one stage entry of the run log.
type RunLogResponse struct {
	RunID            string         `json:"run_id"`
	Stage            string         `json:"stage"`
	Status           string         `json:"status"`
	SymbolsProcessed int            `json:"symbols_processed"`
	RecordsWritten   int            `json:"records_written"`
	ErrorsCount      int            `json:"errors_count"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
