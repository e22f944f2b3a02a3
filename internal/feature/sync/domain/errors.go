// Package domain holds the sentinel errors of the sync feature.
package domain

import "errors"

var (
	// ErrRunInProgress is returned when another pipeline run holds the run lock.
	ErrRunInProgress = errors.New("a pipeline run is already in progress")
	// ErrNoSymbols is returned when neither the directory nor storage yields a symbol.
	ErrNoSymbols = errors.New("no symbols to sync")
	// ErrRunLockLost interrupts a run whose lock expired or was taken over.
	ErrRunLockLost = errors.New("pipeline run lock lost")
	// ErrShuttingDown is returned by Start after Shutdown was called.
	ErrShuttingDown = errors.New("pipeline is shutting down")
)
