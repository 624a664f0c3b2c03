package engine

import (
	"testing"

	"concept-insight/database/derived"
	models "concept-insight/database/models_pkg"
)

func TestDetectHighs(t *testing.T) {
	date := mustDate(t, "2025-09-02")

	history := func(totals ...int64) []derived.DailyTotal {
		// newest first, one observation per prior trading day
		out := make([]derived.DailyTotal, len(totals))
		for i, v := range totals {
			out[i] = derived.DailyTotal{
				TradingDate: date.AddDate(0, 0, -(i + 1)),
				TotalVolume: v,
			}
		}
		return out
	}

	tests := []struct {
		name       string
		total      int64
		prior      []derived.DailyTotal
		isNewHigh  bool
		expectPrev *int64
	}{
		{
			name:       "strictly above window max is a new high",
			total:      5000,
			prior:      history(4000, 4500, 3000),
			isNewHigh:  true,
			expectPrev: int64Ptr(4500),
		},
		{
			name:       "equal to window max is not a new high",
			total:      4500,
			prior:      history(4000, 4500),
			isNewHigh:  false,
			expectPrev: int64Ptr(4500),
		},
		{
			name:       "below window max is not a new high",
			total:      100,
			prior:      history(4000),
			isNewHigh:  false,
			expectPrev: int64Ptr(4000),
		},
		{
			name:       "no history trivially counts as a new high",
			total:      1,
			prior:      nil,
			isNewHigh:  true,
			expectPrev: nil,
		},
		{
			name:       "short history is compared as-is",
			total:      300,
			prior:      history(200, 250), // only 2 of 10 window days exist
			isNewHigh:  true,
			expectPrev: int64Ptr(250),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summaries := []models.ConceptDailySummary{
				{ConceptID: 1, TradingDate: date, TotalVolume: tt.total},
			}
			hist := map[int64][]derived.DailyTotal{1: tt.prior}

			highs := DetectHighs(date, summaries, hist, 10)
			if len(highs) != 1 {
				t.Fatalf("expected 1 high record, got %d", len(highs))
			}

			record := highs[0]
			if record.IsNewHigh != tt.isNewHigh {
				t.Errorf("is_new_high: expected %v, got %v", tt.isNewHigh, record.IsNewHigh)
			}
			if record.LookbackDays != 10 {
				t.Errorf("lookback_days: expected 10, got %d", record.LookbackDays)
			}
			if tt.expectPrev == nil {
				if record.PrevHighVolume != nil {
					t.Errorf("prev_high_volume: expected nil, got %d", *record.PrevHighVolume)
				}
				if record.PrevHighDate != nil {
					t.Errorf("prev_high_date: expected nil, got %v", record.PrevHighDate)
				}
			} else {
				if record.PrevHighVolume == nil || *record.PrevHighVolume != *tt.expectPrev {
					t.Errorf("prev_high_volume: expected %d, got %v", *tt.expectPrev, record.PrevHighVolume)
				}
				if record.PrevHighDate == nil {
					t.Error("prev_high_date should be populated when history exists")
				}
			}
		})
	}
}

func TestDetectHighsPrevDateTracksWindowMax(t *testing.T) {
	date := mustDate(t, "2025-09-02")
	maxDay := mustDate(t, "2025-08-27")

	prior := []derived.DailyTotal{
		{TradingDate: mustDate(t, "2025-09-01"), TotalVolume: 3000},
		{TradingDate: mustDate(t, "2025-08-29"), TotalVolume: 2000},
		{TradingDate: maxDay, TotalVolume: 9000},
	}
	summaries := []models.ConceptDailySummary{
		{ConceptID: 5, TradingDate: date, TotalVolume: 9500},
	}

	highs := DetectHighs(date, summaries, map[int64][]derived.DailyTotal{5: prior}, 10)
	if len(highs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(highs))
	}
	record := highs[0]
	if !record.IsNewHigh {
		t.Error("9500 > 9000 should be a new high")
	}
	if record.PrevHighDate == nil || !record.PrevHighDate.Equal(maxDay) {
		t.Errorf("prev_high_date: expected %v, got %v", maxDay, record.PrevHighDate)
	}
}

func TestDetectHighsDefaultsLookback(t *testing.T) {
	date := mustDate(t, "2025-09-02")
	summaries := []models.ConceptDailySummary{{ConceptID: 1, TradingDate: date, TotalVolume: 10}}

	highs := DetectHighs(date, summaries, nil, 0)
	if highs[0].LookbackDays != DefaultLookbackDays {
		t.Errorf("expected default lookback %d, got %d", DefaultLookbackDays, highs[0].LookbackDays)
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
