package engine

import (
	"fmt"
	"time"

	models "concept-insight/database/models_pkg"
)

// UnresolvableCodeError marks one raw stock code that matched no registry
// entry after normalization. Per-row: the recompute records it as a skipped
// row and continues.
type UnresolvableCodeError struct {
	RawCode string
}

// Error implements the error interface
func (e *UnresolvableCodeError) Error() string {
	return fmt.Sprintf("stock code %q matches no registry entry", e.RawCode)
}

// NoSourceDataError means no trading records exist for the requested date.
// Fatal to that date's recompute; an empty run must not silently succeed.
type NoSourceDataError struct {
	TradingDate time.Time
}

// Error implements the error interface
func (e *NoSourceDataError) Error() string {
	return fmt.Sprintf("no trading records for date %s", e.TradingDate.Format(models.DateLayout))
}

// ConcurrentRecomputeError means another recompute for the same date is
// already in flight, either in this process or (via the shared lock)
// in another one.
type ConcurrentRecomputeError struct {
	TradingDate time.Time
}

// Error implements the error interface
func (e *ConcurrentRecomputeError) Error() string {
	return fmt.Sprintf("recompute for date %s already in progress", e.TradingDate.Format(models.DateLayout))
}

// PersistenceError wraps a storage failure during the commit of a date's
// derived rows. The transactional ReplaceForDate guarantees the date is
// never left half-cleared, so callers may simply retry the whole date.
type PersistenceError struct {
	TradingDate time.Time
	Stage       string
	Err         error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s for date %s: %v", e.Stage, e.TradingDate.Format(models.DateLayout), e.Err)
}

// Unwrap returns the underlying error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
