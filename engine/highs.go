package engine

import (
	"time"

	"concept-insight/database/derived"
	models "concept-insight/database/models_pkg"
)

// DefaultLookbackDays is the trailing window for new-high detection when
// no override is configured.
const DefaultLookbackDays = 10

// DetectHighs flags, for every concept summarized on the date, whether its
// total volume is a new high over the trailing window. history maps concept
// ID to that concept's prior (date, total) observations inside the window,
// newest first, as loaded by derived.Repository.PriorTotals.
//
// A total is a new high iff it is strictly greater than the window maximum.
// Fewer than lookbackDays of history is compared as-is; no zeros are
// fabricated. No history at all trivially counts as a new high with nil
// previous-high fields.
func DetectHighs(date time.Time, summaries []models.ConceptDailySummary, history map[int64][]derived.DailyTotal, lookbackDays int) []models.ConceptHighRecord {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	highs := make([]models.ConceptHighRecord, 0, len(summaries))
	for _, summary := range summaries {
		record := models.ConceptHighRecord{
			ConceptID:    summary.ConceptID,
			TradingDate:  date,
			TotalVolume:  summary.TotalVolume,
			LookbackDays: lookbackDays,
		}

		prior := history[summary.ConceptID]
		if len(prior) == 0 {
			record.IsNewHigh = true
			highs = append(highs, record)
			continue
		}

		// Window maximum; on equal volumes keep the most recent date,
		// prior is ordered newest first
		maxTotal := prior[0]
		for _, obs := range prior[1:] {
			if obs.TotalVolume > maxTotal.TotalVolume {
				maxTotal = obs
			}
		}

		prevVolume := maxTotal.TotalVolume
		prevDate := maxTotal.TradingDate
		record.PrevHighVolume = &prevVolume
		record.PrevHighDate = &prevDate
		record.IsNewHigh = summary.TotalVolume > prevVolume

		highs = append(highs, record)
	}

	return highs
}
