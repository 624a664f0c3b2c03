package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"concept-insight/database/derived"
	models "concept-insight/database/models_pkg"
)

// State is a stage of the per-date recompute state machine
type State string

const (
	StatePending        State = "PENDING"
	StateValidating     State = "VALIDATING"
	StateClearing       State = "CLEARING"
	StateAggregating    State = "AGGREGATING"
	StateRanking        State = "RANKING"
	StateDetectingHighs State = "DETECTING_HIGHS"
	StateCommitted      State = "COMMITTED"
	StateFailed         State = "FAILED"
)

// TradingStore is the orchestrator's read-only view of the trading records
type TradingStore interface {
	RecordsForDate(ctx context.Context, date time.Time) ([]models.TradingRecord, error)
}

// ReferenceStore supplies registry and membership snapshots
type ReferenceStore interface {
	ActiveStocks(ctx context.Context) ([]models.Stock, error)
	ActiveMemberships(ctx context.Context) ([]models.StockConceptMembership, error)
}

// DerivedStore persists the derived tables. ReplaceForDate must couple the
// clearing of a date's prior rows with the insert of its replacement rows
// in one transaction.
type DerivedStore interface {
	PriorTotals(ctx context.Context, date time.Time, lookbackDays int) (map[int64][]derived.DailyTotal, error)
	ReplaceForDate(ctx context.Context, date time.Time,
		summaries []models.ConceptDailySummary,
		rankings []models.StockConceptRanking,
		highs []models.ConceptHighRecord) error
}

// Locker serializes recomputes of the same date across processes. Acquire
// returns false when another holder has the date.
type Locker interface {
	AcquireDateLock(ctx context.Context, date time.Time) (bool, error)
	ReleaseDateLock(ctx context.Context, date time.Time) error
}

// Event is a recompute lifecycle notification for dashboards
type Event struct {
	Type        string `json:"type"` // started, committed, failed
	TradingDate string `json:"trading_date"`
	State       State  `json:"state"`
	Stats       *Stats `json:"stats,omitempty"`
	Error       string `json:"error,omitempty"`
}

// EventSink receives recompute lifecycle events
type EventSink interface {
	PublishRecomputeEvent(event Event)
}

// Stats is the summary returned to the caller after a committed recompute.
// The API layer serializes it to JSON unchanged.
type Stats struct {
	TradingDate         string   `json:"trading_date"`
	ConceptSummaryCount int      `json:"concept_summary_count"`
	RankingCount        int      `json:"ranking_count"`
	NewHighCount        int      `json:"new_high_count"`
	SkippedCodes        []string `json:"skipped_codes"`
	DurationMs          int64    `json:"duration_ms"`
}

// Orchestrator drives the full pipeline for one trading date: validate,
// aggregate, rank, detect highs, then atomically replace the date's derived
// rows. It is the only component with side effects on persisted data.
// Independent dates may run in parallel; the same date is serialized.
type Orchestrator struct {
	trading      TradingStore
	reference    ReferenceStore
	derivedStore DerivedStore
	locker       Locker    // optional cross-process lock
	sink         EventSink // optional event broadcast
	lookbackDays int

	mu       sync.Mutex
	inflight map[string]bool
}

// NewOrchestrator creates a recompute orchestrator. locker and sink may be
// nil; lookbackDays <= 0 selects DefaultLookbackDays.
func NewOrchestrator(trading TradingStore, reference ReferenceStore, derivedStore DerivedStore, locker Locker, sink EventSink, lookbackDays int) *Orchestrator {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Orchestrator{
		trading:      trading,
		reference:    reference,
		derivedStore: derivedStore,
		locker:       locker,
		sink:         sink,
		lookbackDays: lookbackDays,
		inflight:     make(map[string]bool),
	}
}

// Run recomputes one trading date end to end and returns its statistics.
// Both the first-time "import" and the forced "recalculate" triggers reduce
// to this call: the commit always replaces whatever derived rows the date
// had. Any error leaves previously committed rows for the date untouched.
func (o *Orchestrator) Run(ctx context.Context, date time.Time) (*Stats, error) {
	date = truncateToDay(date)
	day := date.Format(models.DateLayout)
	started := time.Now()

	if !o.begin(day) {
		return nil, &ConcurrentRecomputeError{TradingDate: date}
	}
	defer o.end(day)

	if o.locker != nil {
		acquired, err := o.locker.AcquireDateLock(ctx, date)
		if err != nil {
			return nil, o.fail(date, StatePending, &PersistenceError{TradingDate: date, Stage: "locking", Err: err})
		}
		if !acquired {
			return nil, o.fail(date, StatePending, &ConcurrentRecomputeError{TradingDate: date})
		}
		defer o.locker.ReleaseDateLock(context.WithoutCancel(ctx), date)
	}

	o.publish(Event{Type: "started", TradingDate: day, State: StateValidating})

	// Validating: the date must have source data; an empty run must fail,
	// not silently commit empty output
	records, err := o.trading.RecordsForDate(ctx, date)
	if err != nil {
		return nil, o.fail(date, StateValidating, &PersistenceError{TradingDate: date, Stage: "validating", Err: err})
	}
	if len(records) == 0 {
		return nil, o.fail(date, StateValidating, &NoSourceDataError{TradingDate: date})
	}

	stocks, err := o.reference.ActiveStocks(ctx)
	if err != nil {
		return nil, o.fail(date, StateValidating, &PersistenceError{TradingDate: date, Stage: "validating", Err: err})
	}
	memberships, err := o.reference.ActiveMemberships(ctx)
	if err != nil {
		return nil, o.fail(date, StateValidating, &PersistenceError{TradingDate: date, Stage: "validating", Err: err})
	}

	// Clearing: logical transition only. The physical deletes are deferred
	// into the commit transaction so a failure anywhere past this point can
	// never leave the date cleared but unwritten.
	log.Printf("🔁 Recompute %s: %d records, %d stocks, %d memberships", day, len(records), len(stocks), len(memberships))
	if err := ctx.Err(); err != nil {
		return nil, o.fail(date, StateClearing, &PersistenceError{TradingDate: date, Stage: "clearing", Err: err})
	}

	// Aggregating
	resolver := NewResolver(stocks)
	index := BuildMembershipIndex(memberships, resolver)
	if unresolved := index.Unresolved(); len(unresolved) > 0 {
		log.Printf("⚠️  Recompute %s: %d membership codes match no registry entry", day, len(unresolved))
	}
	agg := Aggregate(date, records, resolver, index)

	// Ranking
	rankings := Rank(agg)

	// DetectingHighs
	history, err := o.derivedStore.PriorTotals(ctx, date, o.lookbackDays)
	if err != nil {
		return nil, o.fail(date, StateDetectingHighs, &PersistenceError{TradingDate: date, Stage: "detecting_highs", Err: err})
	}
	highs := DetectHighs(date, agg.Summaries, history, o.lookbackDays)

	// Commit: clear + write as one unit
	if err := o.derivedStore.ReplaceForDate(ctx, date, agg.Summaries, rankings, highs); err != nil {
		return nil, o.fail(date, StateCommitted, &PersistenceError{TradingDate: date, Stage: "committing", Err: err})
	}

	newHighCount := 0
	for _, h := range highs {
		if h.IsNewHigh {
			newHighCount++
		}
	}

	stats := &Stats{
		TradingDate:         day,
		ConceptSummaryCount: len(agg.Summaries),
		RankingCount:        len(rankings),
		NewHighCount:        newHighCount,
		SkippedCodes:        agg.SkippedCodes,
		DurationMs:          time.Since(started).Milliseconds(),
	}
	if stats.SkippedCodes == nil {
		stats.SkippedCodes = []string{}
	}

	log.Printf("✅ Recompute %s committed: %d summaries, %d rankings, %d new highs, %d skipped (%dms)",
		day, stats.ConceptSummaryCount, stats.RankingCount, stats.NewHighCount, len(stats.SkippedCodes), stats.DurationMs)
	o.publish(Event{Type: "committed", TradingDate: day, State: StateCommitted, Stats: stats})

	return stats, nil
}

// begin marks a date in flight; false means someone in this process holds it
func (o *Orchestrator) begin(day string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[day] {
		return false
	}
	o.inflight[day] = true
	return true
}

func (o *Orchestrator) end(day string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, day)
}

func (o *Orchestrator) fail(date time.Time, state State, err error) error {
	day := date.Format(models.DateLayout)
	log.Printf("❌ Recompute %s failed in %s: %v", day, state, err)
	o.publish(Event{Type: "failed", TradingDate: day, State: StateFailed, Error: err.Error()})
	return err
}

func (o *Orchestrator) publish(event Event) {
	if o.sink != nil {
		o.sink.PublishRecomputeEvent(event)
	}
}

// truncateToDay normalizes a timestamp to its calendar date in UTC
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
