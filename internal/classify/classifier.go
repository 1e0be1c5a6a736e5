// Package classify routes transactions to P&L lines by applying the
// mapping catalog with a hierarchical matching strategy.
//
// Matching is an ordered chain of strategies, each a pure function over
// the prepared catalog index: specific counterparty match on the cost
// center, generic cost-center match, then both again using the category
// label as fallback key. The first strategy that produces a rule wins;
// a transaction no strategy claims is unmapped, which is a normal
// outcome, never an error.
package classify

import (
	"lucro/internal/core"
	"lucro/internal/mapping"
)

// Result is the classification outcome for one transaction.
type Result struct {
	// Line is the target P&L line; meaningful only when Matched is true.
	Line core.Line
	// Rule is the rule that claimed the transaction.
	Rule mapping.Rule
	// Strategy names the chain step that matched, for operator logs.
	Strategy string
	// Matched is false for unmapped transactions.
	Matched bool
}

// record is a transaction reduced to its normalized match keys. Built
// once per transaction so no strategy re-normalizes text.
type record struct {
	costCenter string
	category   string
	// matchText blends counterparty and description so counterparty keys
	// embedded in free text still match.
	matchText string
}

// strategy is one step of the matching chain.
type strategy interface {
	// match returns the claiming rule, or false to fall through.
	match(idx *mapping.Index, rec record) (mapping.Rule, bool)
	name() string
}

// costCenterSpecific matches specific-counterparty rules of the record's
// cost center, longest key first.
type costCenterSpecific struct{}

func (costCenterSpecific) name() string { return "specific" }

func (costCenterSpecific) match(idx *mapping.Index, rec record) (mapping.Rule, bool) {
	return idx.MatchSpecific(rec.costCenter, rec.matchText)
}

// costCenterGeneric matches the generic sentinel rule of the record's
// cost center.
type costCenterGeneric struct{}

func (costCenterGeneric) name() string { return "generic" }

func (costCenterGeneric) match(idx *mapping.Index, rec record) (mapping.Rule, bool) {
	return idx.MatchGeneric(rec.costCenter)
}

// categorySpecific repeats the specific match using the category label in
// place of the cost center.
type categorySpecific struct{}

func (categorySpecific) name() string { return "category-specific" }

func (categorySpecific) match(idx *mapping.Index, rec record) (mapping.Rule, bool) {
	if rec.category == "" {
		return mapping.Rule{}, false
	}
	return idx.MatchSpecific(rec.category, rec.matchText)
}

// categoryGeneric repeats the generic match on the category label.
type categoryGeneric struct{}

func (categoryGeneric) name() string { return "category-generic" }

func (categoryGeneric) match(idx *mapping.Index, rec record) (mapping.Rule, bool) {
	if rec.category == "" {
		return mapping.Rule{}, false
	}
	return idx.MatchGeneric(rec.category)
}

// chain is the fixed evaluation order.
var chain = []strategy{
	costCenterSpecific{},
	costCenterGeneric{},
	categorySpecific{},
	categoryGeneric{},
}

// Classifier applies a prepared catalog index to transactions. It is
// read-only after construction and safe for concurrent use.
type Classifier struct {
	idx *mapping.Index
}

// New builds a classifier over the given catalog.
func New(rules []mapping.Rule) *Classifier {
	return &Classifier{idx: mapping.NewIndex(rules)}
}

// NewWithIndex builds a classifier over an already prepared index.
func NewWithIndex(idx *mapping.Index) *Classifier {
	return &Classifier{idx: idx}
}

// Classify returns the P&L line for tx, walking the strategy chain in
// priority order.
func (c *Classifier) Classify(tx core.Transaction) Result {
	rec := record{
		costCenter: core.NormalizeText(tx.CostCenter),
		category:   core.NormalizeText(tx.Category),
		matchText:  matchText(tx),
	}

	for _, s := range chain {
		if rule, ok := s.match(c.idx, rec); ok {
			return Result{Line: rule.Line, Rule: rule, Strategy: s.name(), Matched: true}
		}
	}
	return Result{}
}

func matchText(tx core.Transaction) string {
	cp := core.NormalizeText(tx.Counterparty)
	desc := core.NormalizeText(tx.Description)
	switch {
	case cp == "":
		return desc
	case desc == "":
		return cp
	default:
		return cp + " " + desc
	}
}
