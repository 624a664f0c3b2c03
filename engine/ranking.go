package engine

import (
	"sort"

	models "concept-insight/database/models_pkg"
)

// Rank orders each concept's member stocks by volume and assigns dense
// ranks: rank 1 for the largest volume, equal volumes share a rank, and the
// next distinct volume takes the next consecutive rank with no gap. Ties
// are ordered by canonical stock code ascending so reruns over identical
// input produce byte-identical rows.
//
// volume_percentage is each member's share of the concept total; when the
// total is 0 (every member traded zero volume) the percentage is defined
// as 0 rather than dividing.
func Rank(agg *AggregationResult) []models.StockConceptRanking {
	// Concept totals from the summaries just computed
	totals := make(map[int64]int64, len(agg.Summaries))
	for _, s := range agg.Summaries {
		totals[s.ConceptID] = s.TotalVolume
	}

	conceptIDs := make([]int64, 0, len(agg.ConceptStats))
	for id := range agg.ConceptStats {
		conceptIDs = append(conceptIDs, id)
	}
	sort.Slice(conceptIDs, func(i, j int) bool { return conceptIDs[i] < conceptIDs[j] })

	var rankings []models.StockConceptRanking
	for _, conceptID := range conceptIDs {
		members := append([]StockVolume(nil), agg.ConceptStats[conceptID]...)
		sort.Slice(members, func(i, j int) bool {
			if members[i].Volume != members[j].Volume {
				return members[i].Volume > members[j].Volume
			}
			return members[i].StockCode < members[j].StockCode
		})

		total := totals[conceptID]

		rank := 0
		var prevVolume int64
		for i, m := range members {
			if i == 0 || m.Volume != prevVolume {
				rank++
				prevVolume = m.Volume
			}

			pct := 0.0
			if total > 0 {
				pct = float64(m.Volume) / float64(total) * 100
			}

			rankings = append(rankings, models.StockConceptRanking{
				StockCode:          m.StockCode,
				ConceptID:          conceptID,
				TradingDate:        agg.TradingDate,
				Volume:             m.Volume,
				Rank:               rank,
				ConceptTotalVolume: total,
				VolumePercentage:   pct,
			})
		}
	}

	return rankings
}
