package engine

import (
	"sort"
	"time"

	models "concept-insight/database/models_pkg"
)

// StockVolume is one canonical stock's contribution to a concept on a date
type StockVolume struct {
	StockCode string // canonical registry code
	Volume    int64
}

// AggregationResult holds everything one aggregation pass produced: the
// per-concept summaries plus the per-concept member volumes the ranking
// step needs, and the raw codes that resolved nowhere.
type AggregationResult struct {
	TradingDate  time.Time
	Summaries    []models.ConceptDailySummary
	ConceptStats map[int64][]StockVolume
	SkippedCodes []string
}

// Aggregate rolls the date's trading records up per concept. Each record's
// raw code is resolved to a canonical stock; records that resolve to the
// same stock (a bare and a prefixed form of the same code in one feed) are
// merged, volumes summed, counted once. Each resolved stock then fans out
// to every concept it belongs to.
//
// Concepts with no contributing stock emit no summary. A zero-volume record
// still counts toward stock_count. Unresolvable codes are collected, not
// fatal.
func Aggregate(date time.Time, records []models.TradingRecord, resolver *Resolver, index *MembershipIndex) *AggregationResult {
	result := &AggregationResult{
		TradingDate:  date,
		ConceptStats: make(map[int64][]StockVolume),
	}

	// First pass: resolve and merge by canonical stock
	volumeByStock := make(map[int64]int64)
	codeByStock := make(map[int64]string)
	for _, rec := range records {
		stock, err := resolver.Resolve(rec.StockCode)
		if err != nil {
			result.SkippedCodes = append(result.SkippedCodes, rec.StockCode)
			continue
		}
		volumeByStock[stock.ID] += rec.Volume
		codeByStock[stock.ID] = stock.Code
	}

	// Second pass: fan out to concepts
	for stockID, volume := range volumeByStock {
		for _, conceptID := range index.ConceptsFor(stockID) {
			result.ConceptStats[conceptID] = append(result.ConceptStats[conceptID], StockVolume{
				StockCode: codeByStock[stockID],
				Volume:    volume,
			})
		}
	}

	// Summaries, ordered by concept ID for reproducible output
	conceptIDs := make([]int64, 0, len(result.ConceptStats))
	for id := range result.ConceptStats {
		conceptIDs = append(conceptIDs, id)
	}
	sort.Slice(conceptIDs, func(i, j int) bool { return conceptIDs[i] < conceptIDs[j] })

	for _, conceptID := range conceptIDs {
		members := result.ConceptStats[conceptID]

		var total, max int64
		for _, m := range members {
			total += m.Volume
			if m.Volume > max {
				max = m.Volume
			}
		}

		result.Summaries = append(result.Summaries, models.ConceptDailySummary{
			ConceptID:   conceptID,
			TradingDate: date,
			TotalVolume: total,
			StockCount:  len(members),
			AvgVolume:   float64(total) / float64(len(members)),
			MaxVolume:   max,
		})
	}

	return result
}
