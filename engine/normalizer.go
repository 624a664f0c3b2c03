// Package engine implements the daily trading aggregation and ranking
// pipeline: code normalization, per-concept aggregation, dense ranking,
// trailing-window new-high detection and the recompute orchestrator that
// drives them for one trading date at a time.
//
// The aggregation, ranking and high-detection steps are pure functions over
// in-memory inputs; only the orchestrator touches storage, through small
// injected repository interfaces.
package engine

import (
	"sort"
	"strings"

	models "concept-insight/database/models_pkg"
)

// exchangePrefixes are the known exchange prefixes, in the fixed order
// candidates are tried when a bare code has to be qualified.
var exchangePrefixes = []string{"SH", "SZ", "BJ"}

// CodeCandidates returns the ordered list of canonical forms to try for a
// raw stock identifier:
//  1. the identifier as given (upper-cased)
//  2. if it carries a known exchange prefix, the bare form
//  3. if it carries no prefix, each known prefix concatenated with it
//
// The feed tables and the registry are maintained independently and do not
// agree on prefixing, so every join between them goes through this list.
func CodeCandidates(raw string) []string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return nil
	}

	candidates := []string{code}

	prefixed := false
	for _, prefix := range exchangePrefixes {
		if strings.HasPrefix(code, prefix) && len(code) > len(prefix) {
			candidates = append(candidates, code[len(prefix):])
			prefixed = true
			break
		}
	}

	if !prefixed {
		for _, prefix := range exchangePrefixes {
			candidates = append(candidates, prefix+code)
		}
	}

	return candidates
}

// Resolver resolves raw stock identifiers against an in-memory snapshot of
// the stock registry.
type Resolver struct {
	byCode map[string]*models.Stock
}

// NewResolver builds a resolver over a registry snapshot. Lookup is by the
// stocks' canonical codes, upper-cased.
func NewResolver(stocks []models.Stock) *Resolver {
	byCode := make(map[string]*models.Stock, len(stocks))
	for i := range stocks {
		byCode[strings.ToUpper(stocks[i].Code)] = &stocks[i]
	}
	return &Resolver{byCode: byCode}
}

// Resolve maps a raw identifier to its registry stock. Resolution succeeds
// on the first candidate that exists in the registry; a miss on every
// candidate returns an UnresolvableCodeError, which is non-fatal and
// per-row at the call sites.
func (r *Resolver) Resolve(raw string) (*models.Stock, error) {
	for _, candidate := range CodeCandidates(raw) {
		if stock, ok := r.byCode[candidate]; ok {
			return stock, nil
		}
	}
	return nil, &UnresolvableCodeError{RawCode: raw}
}

// Len returns the number of registry entries in the snapshot
func (r *Resolver) Len() int {
	return len(r.byCode)
}

// MembershipIndex maps canonical stocks to the concepts they belong to.
// It is built once per recompute from the membership table, resolving the
// independently maintained membership codes through the same resolver the
// trading feed goes through.
type MembershipIndex struct {
	conceptsByStock map[int64][]int64
	unresolved      []string
}

// BuildMembershipIndex resolves membership rows against the registry and
// indexes them by stock ID. Membership rows whose stock code resolves
// nowhere are collected in Unresolved and excluded from fan-out.
func BuildMembershipIndex(memberships []models.StockConceptMembership, resolver *Resolver) *MembershipIndex {
	idx := &MembershipIndex{
		conceptsByStock: make(map[int64][]int64),
	}
	seen := make(map[int64]map[int64]bool)

	for _, m := range memberships {
		stock, err := resolver.Resolve(m.StockCode)
		if err != nil {
			idx.unresolved = append(idx.unresolved, m.StockCode)
			continue
		}
		if seen[stock.ID] == nil {
			seen[stock.ID] = make(map[int64]bool)
		}
		// Two membership rows (bare + prefixed code) can land on the same
		// pair; keep the first
		if seen[stock.ID][m.ConceptID] {
			continue
		}
		seen[stock.ID][m.ConceptID] = true
		idx.conceptsByStock[stock.ID] = append(idx.conceptsByStock[stock.ID], m.ConceptID)
	}

	for stockID := range idx.conceptsByStock {
		concepts := idx.conceptsByStock[stockID]
		sort.Slice(concepts, func(i, j int) bool { return concepts[i] < concepts[j] })
	}

	return idx
}

// ConceptsFor returns the concept IDs a stock belongs to. A stock with no
// memberships returns nil, which is not an error: it simply contributes to
// no summary.
func (idx *MembershipIndex) ConceptsFor(stockID int64) []int64 {
	return idx.conceptsByStock[stockID]
}

// Unresolved returns membership stock codes that resolved nowhere
func (idx *MembershipIndex) Unresolved() []string {
	return idx.unresolved
}
