// Package mapping holds the classification rule catalog: the configurable
// set of cost-center (and optional counterparty) rules that route
// transactions to P&L lines, plus the prepared lookup the classifier
// works against.
package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"lucro/internal/core"
)

// GenericCounterparty is the reserved counterparty value meaning "match
// any counterparty for this cost center".
const GenericCounterparty = "Diversos"

// RuleKind is the expected nature of amounts a rule routes.
type RuleKind string

const (
	KindRevenue RuleKind = "revenue"
	KindCost    RuleKind = "cost"
	KindExpense RuleKind = "expense"
)

// Rule maps transactions of one cost center (optionally narrowed to a
// counterparty) to a P&L line. Rules are read-only for the duration of a
// calculation; catalogs are replaced wholesale, never mutated in place.
type Rule struct {
	Line         core.Line `json:"line"`
	Group        string    `json:"group"`
	CostCenter   string    `json:"cost_center"`
	Counterparty string    `json:"counterparty"`
	Kind         RuleKind  `json:"kind"`
	Active       bool      `json:"active"`
	Note         string    `json:"note,omitempty"`
}

// IsGeneric reports whether the rule matches any counterparty of its cost
// center.
func (r Rule) IsGeneric() bool {
	cp := core.NormalizeText(r.Counterparty)
	return cp == "" || cp == core.NormalizeText(GenericCounterparty)
}

// ValidateCatalog checks a replacement catalog before it is accepted:
// every rule needs a cost center and a line, and active rules sharing a
// cost center may carry at most one generic counterparty.
func ValidateCatalog(rules []Rule) error {
	if len(rules) == 0 {
		return errors.New("catalog is empty")
	}
	generics := make(map[string]bool)
	for i, r := range rules {
		cc := core.NormalizeText(r.CostCenter)
		if cc == "" {
			return fmt.Errorf("rule %d: missing cost center", i)
		}
		if r.Line == 0 {
			return fmt.Errorf("rule %d (%s): missing target line", i, r.CostCenter)
		}
		if !r.Active || !r.IsGeneric() {
			continue
		}
		if generics[cc] {
			return fmt.Errorf("rule %d (%s): duplicate generic rule for cost center", i, r.CostCenter)
		}
		generics[cc] = true
	}
	return nil
}

// Index is the prepared, read-only lookup built once per catalog. It is
// safe for concurrent reads. Splitting specific from generic rules and
// pre-sorting specific rules longest-key-first is what makes the
// longest-match tie-break deterministic regardless of catalog order.
type Index struct {
	specific map[string][]indexedRule
	generic  map[string]Rule
}

type indexedRule struct {
	rule Rule
	// key is the normalized counterparty match key, cached so matching
	// never re-normalizes per transaction.
	key string
}

// NewIndex prepares a lookup from the given rules. Inactive rules are
// skipped. When two generic rules share a cost center the last one wins,
// mirroring replace-wholesale catalog semantics.
func NewIndex(rules []Rule) *Index {
	idx := &Index{
		specific: make(map[string][]indexedRule),
		generic:  make(map[string]Rule),
	}
	for _, r := range rules {
		if !r.Active {
			continue
		}
		cc := core.NormalizeText(r.CostCenter)
		if cc == "" {
			continue
		}
		if r.IsGeneric() {
			idx.generic[cc] = r
			continue
		}
		idx.specific[cc] = append(idx.specific[cc], indexedRule{
			rule: r,
			key:  core.NormalizeText(r.Counterparty),
		})
	}
	for cc := range idx.specific {
		list := idx.specific[cc]
		sort.SliceStable(list, func(i, j int) bool {
			return len(list[i].key) > len(list[j].key)
		})
		idx.specific[cc] = list
	}
	return idx
}

// Specific returns the specific rules for a normalized cost center,
// longest counterparty key first.
func (idx *Index) Specific(costCenter string) []Rule {
	list := idx.specific[costCenter]
	if len(list) == 0 {
		return nil
	}
	out := make([]Rule, len(list))
	for i, ir := range list {
		out[i] = ir.rule
	}
	return out
}

// MatchSpecific returns the specific rule for the normalized cost center
// whose counterparty key is a substring of matchText, preferring longer
// keys. The boolean is false when no specific rule matches.
func (idx *Index) MatchSpecific(costCenter, matchText string) (Rule, bool) {
	for _, ir := range idx.specific[costCenter] {
		if ir.key != "" && strings.Contains(matchText, ir.key) {
			return ir.rule, true
		}
	}
	return Rule{}, false
}

// MatchGeneric returns the generic rule for the normalized cost center.
func (idx *Index) MatchGeneric(costCenter string) (Rule, bool) {
	r, ok := idx.generic[costCenter]
	return r, ok
}

// Known reports whether any rule (specific or generic) exists for the
// normalized cost center.
func (idx *Index) Known(costCenter string) bool {
	if _, ok := idx.generic[costCenter]; ok {
		return true
	}
	return len(idx.specific[costCenter]) > 0
}
