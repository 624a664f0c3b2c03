package engine

import (
	"errors"
	"reflect"
	"testing"

	models "concept-insight/database/models_pkg"
)

func TestCodeCandidates(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{
			name:     "prefixed code tries bare form second",
			raw:      "SH600000",
			expected: []string{"SH600000", "600000"},
		},
		{
			name:     "bare code tries every prefix in fixed order",
			raw:      "600000",
			expected: []string{"600000", "SH600000", "SZ600000", "BJ600000"},
		},
		{
			name:     "lowercase input is normalized",
			raw:      "sz000001",
			expected: []string{"SZ000001", "000001"},
		},
		{
			name:     "surrounding whitespace is trimmed",
			raw:      "  BJ830799 ",
			expected: []string{"BJ830799", "830799"},
		},
		{
			name:     "empty input yields no candidates",
			raw:      "   ",
			expected: nil,
		},
		{
			name:     "prefix alone is not treated as prefixed",
			raw:      "SH",
			expected: []string{"SH", "SHSH", "SZSH", "BJSH"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CodeCandidates(tt.raw)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestResolverResolve(t *testing.T) {
	resolver := NewResolver([]models.Stock{
		{ID: 1, Code: "SH600000", Name: "SPDB"},
		{ID: 2, Code: "SZ000001", Name: "PAB"},
		{ID: 3, Code: "300750", Name: "CATL"}, // registry row stored bare
	})
	if resolver.Len() != 3 {
		t.Fatalf("expected 3 registry entries, got %d", resolver.Len())
	}

	tests := []struct {
		name       string
		raw        string
		expectedID int64
		resolves   bool
	}{
		{"exact prefixed hit", "SH600000", 1, true},
		{"bare form resolves via prefix candidates", "600000", 1, true},
		{"bare registry entry hit directly", "300750", 3, true},
		{"prefixed feed code falls back to bare registry row", "SZ300750", 3, true},
		{"unknown code fails on every candidate", "999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stock, err := resolver.Resolve(tt.raw)
			if tt.resolves {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if stock.ID != tt.expectedID {
					t.Errorf("expected stock %d, got %d", tt.expectedID, stock.ID)
				}
				return
			}
			var unresolvable *UnresolvableCodeError
			if !errors.As(err, &unresolvable) {
				t.Fatalf("expected UnresolvableCodeError, got %v", err)
			}
			if unresolvable.RawCode != tt.raw {
				t.Errorf("expected raw code %q in error, got %q", tt.raw, unresolvable.RawCode)
			}
		})
	}
}

func TestResolverBareAndPrefixedHitSameStock(t *testing.T) {
	resolver := NewResolver([]models.Stock{{ID: 7, Code: "SH600000"}})

	bare, err1 := resolver.Resolve("600000")
	prefixed, err2 := resolver.Resolve("SH600000")
	if err1 != nil || err2 != nil {
		t.Fatalf("both forms should resolve: %v, %v", err1, err2)
	}
	if bare.ID != prefixed.ID {
		t.Errorf("bare and prefixed forms resolved to different stocks: %d vs %d", bare.ID, prefixed.ID)
	}
}

func TestBuildMembershipIndex(t *testing.T) {
	resolver := NewResolver([]models.Stock{
		{ID: 1, Code: "SH600000"},
		{ID: 2, Code: "SZ000001"},
	})

	memberships := []models.StockConceptMembership{
		{StockCode: "600000", ConceptID: 10},   // bare form
		{StockCode: "SH600000", ConceptID: 10}, // duplicate pair via prefixed form
		{StockCode: "SH600000", ConceptID: 20},
		{StockCode: "SZ000001", ConceptID: 10},
		{StockCode: "888888", ConceptID: 10}, // resolves nowhere
	}

	idx := BuildMembershipIndex(memberships, resolver)

	if got := idx.ConceptsFor(1); !reflect.DeepEqual(got, []int64{10, 20}) {
		t.Errorf("stock 1 concepts: expected [10 20], got %v", got)
	}
	if got := idx.ConceptsFor(2); !reflect.DeepEqual(got, []int64{10}) {
		t.Errorf("stock 2 concepts: expected [10], got %v", got)
	}
	if got := idx.ConceptsFor(99); got != nil {
		t.Errorf("unknown stock should have nil concepts, got %v", got)
	}
	if got := idx.Unresolved(); !reflect.DeepEqual(got, []string{"888888"}) {
		t.Errorf("unresolved: expected [888888], got %v", got)
	}
}
