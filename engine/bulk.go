package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	models "concept-insight/database/models_pkg"

	"golang.org/x/sync/errgroup"
)

// DateResult is the outcome of one date inside a bulk recompute. Exactly
// one of Stats and Error is set.
type DateResult struct {
	TradingDate string `json:"trading_date"`
	Stats       *Stats `json:"stats,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RunRange recomputes a set of trading dates in ascending order. One
// date's failure is recorded in its result and does not abort the others.
//
// With workers <= 1, the default, dates run strictly sequentially, so each
// date's trailing-window highs are detected against its predecessors'
// freshly committed totals and a historical backfill cascades correctly.
// workers > 1 lets dates commit out of order: a later date may then read
// stale or missing history for its high records, so it is only appropriate
// when the requested dates' windows do not overlap.
func (o *Orchestrator) RunRange(ctx context.Context, dates []time.Time, workers int) []DateResult {
	if workers <= 0 {
		workers = 1
	}

	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	results := make([]DateResult, len(sorted))
	var mu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(workers)

	for i, date := range sorted {
		g.Go(func() error {
			stats, err := o.Run(ctx, date)

			result := DateResult{TradingDate: date.Format(models.DateLayout)}
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Stats = stats
			}

			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil // per-date errors are per-date; never cancel siblings
		})
	}

	g.Wait()
	return results
}
