package engine

import (
	"testing"
	"time"

	models "concept-insight/database/models_pkg"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	date, err := time.Parse(models.DateLayout, value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return date
}

func bankingFixture() (*Resolver, *MembershipIndex) {
	resolver := NewResolver([]models.Stock{
		{ID: 1, Code: "SH600000", Name: "SPDB"},
		{ID: 2, Code: "SZ000001", Name: "PAB"},
		{ID: 3, Code: "SH601398", Name: "ICBC"},
	})
	index := BuildMembershipIndex([]models.StockConceptMembership{
		{StockCode: "SH600000", ConceptID: 100}, // Banking
		{StockCode: "SZ000001", ConceptID: 100},
		{StockCode: "SH600000", ConceptID: 200}, // Shanghai Local
	}, resolver)
	return resolver, index
}

func TestAggregateBankingScenario(t *testing.T) {
	resolver, index := bankingFixture()
	date := mustDate(t, "2025-09-02")

	records := []models.TradingRecord{
		{StockCode: "SH600000", TradingDate: date, Volume: 1_000_000},
		{StockCode: "SZ000001", TradingDate: date, Volume: 2_000_000},
	}

	result := Aggregate(date, records, resolver, index)

	if len(result.Summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(result.Summaries))
	}

	var banking *models.ConceptDailySummary
	for i := range result.Summaries {
		if result.Summaries[i].ConceptID == 100 {
			banking = &result.Summaries[i]
		}
	}
	if banking == nil {
		t.Fatal("no summary for concept 100")
	}

	if banking.TotalVolume != 3_000_000 {
		t.Errorf("total_volume: expected 3000000, got %d", banking.TotalVolume)
	}
	if banking.StockCount != 2 {
		t.Errorf("stock_count: expected 2, got %d", banking.StockCount)
	}
	if banking.AvgVolume != 1_500_000 {
		t.Errorf("avg_volume: expected 1500000, got %f", banking.AvgVolume)
	}
	if banking.MaxVolume != 2_000_000 {
		t.Errorf("max_volume: expected 2000000, got %d", banking.MaxVolume)
	}
	if len(result.SkippedCodes) != 0 {
		t.Errorf("expected no skipped codes, got %v", result.SkippedCodes)
	}
}

func TestAggregateMergesBareAndPrefixedForms(t *testing.T) {
	resolver, index := bankingFixture()
	date := mustDate(t, "2025-09-02")

	// Same underlying stock delivered under both code forms: volumes merge,
	// the stock counts once
	records := []models.TradingRecord{
		{StockCode: "SH600000", TradingDate: date, Volume: 400},
		{StockCode: "600000", TradingDate: date, Volume: 600},
		{StockCode: "SZ000001", TradingDate: date, Volume: 5000},
	}

	result := Aggregate(date, records, resolver, index)

	for _, s := range result.Summaries {
		if s.ConceptID != 100 {
			continue
		}
		if s.StockCount != 2 {
			t.Errorf("stock_count: expected 2 (no double count), got %d", s.StockCount)
		}
		if s.TotalVolume != 6000 {
			t.Errorf("total_volume: expected 6000, got %d", s.TotalVolume)
		}
	}
}

func TestAggregateEdgeCases(t *testing.T) {
	resolver, index := bankingFixture()
	date := mustDate(t, "2025-09-02")

	tests := []struct {
		name            string
		records         []models.TradingRecord
		expectSummaries int
		expectSkipped   int
	}{
		{
			name: "unresolvable code is skipped, not fatal",
			records: []models.TradingRecord{
				{StockCode: "SH600000", TradingDate: date, Volume: 100},
				{StockCode: "777777", TradingDate: date, Volume: 100},
			},
			expectSummaries: 2, // Banking + Shanghai Local
			expectSkipped:   1,
		},
		{
			name: "stock without membership contributes nowhere but is no error",
			records: []models.TradingRecord{
				{StockCode: "SH601398", TradingDate: date, Volume: 100},
			},
			expectSummaries: 0,
			expectSkipped:   0,
		},
		{
			name:            "no records yields no summaries",
			records:         nil,
			expectSummaries: 0,
			expectSkipped:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Aggregate(date, tt.records, resolver, index)
			if len(result.Summaries) != tt.expectSummaries {
				t.Errorf("summaries: expected %d, got %d", tt.expectSummaries, len(result.Summaries))
			}
			if len(result.SkippedCodes) != tt.expectSkipped {
				t.Errorf("skipped: expected %d, got %d", tt.expectSkipped, len(result.SkippedCodes))
			}
		})
	}
}

func TestAggregateZeroVolumeCountsTowardStockCount(t *testing.T) {
	resolver, index := bankingFixture()
	date := mustDate(t, "2025-09-02")

	records := []models.TradingRecord{
		{StockCode: "SH600000", TradingDate: date, Volume: 0},
		{StockCode: "SZ000001", TradingDate: date, Volume: 0},
	}

	result := Aggregate(date, records, resolver, index)

	for _, s := range result.Summaries {
		if s.ConceptID != 100 {
			continue
		}
		if s.StockCount != 2 {
			t.Errorf("stock_count: expected 2, got %d", s.StockCount)
		}
		if s.TotalVolume != 0 || s.AvgVolume != 0 || s.MaxVolume != 0 {
			t.Errorf("zero-volume concept should have zero stats, got %+v", s)
		}
	}
}
