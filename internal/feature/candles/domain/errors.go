// Package domain holds the sentinel errors shared by the exchange sources and
// the candles usecases.
package domain

import "errors"

var (
	// ErrUnsupportedPair is returned by a source that does not list the requested pair.
	ErrUnsupportedPair = errors.New("pair not supported by source")
	// ErrTransient marks a failure worth retrying: timeouts, network errors, rate limiting, 5xx.
	ErrTransient = errors.New("transient source error")
	// ErrNoData is returned when no source produced candles for a symbol.
	ErrNoData = errors.New("no data available from any source")
	// ErrValueOutOfRange is returned when the database rejects a value as too large for its column.
	ErrValueOutOfRange = errors.New("numeric value out of range")
)
