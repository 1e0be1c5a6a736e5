// Package pnl aggregates classified transactions into the monthly P&L
// statement, applies overrides, computes the derived lines and reduces
// the statement to dashboard KPIs.
package pnl

import "lucro/internal/core"

// RowKind distinguishes aggregated input rows from computed ones.
type RowKind string

const (
	RowInput    RowKind = "input"
	RowComputed RowKind = "computed"
)

// Row is one display row of the statement. Number follows the report
// layout the exports mirror; Line is the underlying P&L line.
type Row struct {
	Number int                `json:"number"`
	Line   core.Line          `json:"line"`
	Label  string             `json:"label"`
	Kind   RowKind            `json:"kind"`
	Header bool               `json:"is_header,omitempty"`
	Total  bool               `json:"is_total,omitempty"`
	Values map[string]float64 `json:"values"`
}

// Signal is an advisory materiality flag: a single transaction, monthly
// line total or unmapped amount whose magnitude crossed a configured
// threshold. Signals never influence the calculation.
type Signal struct {
	Kind   string    `json:"kind"` // "transaction", "monthly-total" or "unmapped"
	Line   core.Line `json:"line,omitempty"`
	Month  string    `json:"month,omitempty"`
	Amount float64   `json:"amount"`
}

// Statement is the full monthly P&L: ordered month headers and one row
// per taxonomy line. Built fresh per calculation and immutable after.
type Statement struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
	Signals []Signal `json:"signals,omitempty"`

	// lines keeps per-line month values for programmatic access
	// (dashboard, forecast) without scanning display rows.
	lines map[core.Line]map[string]float64
}

// Value returns the statement value for a line and ISO month label, zero
// when absent. Missing lines or months are a defined zero, never a
// fault.
func (s *Statement) Value(line core.Line, month string) float64 {
	if s.lines == nil {
		return 0
	}
	return s.lines[line][month]
}

// Series returns the chronological values of a line across all headers.
func (s *Statement) Series(line core.Line) []float64 {
	out := make([]float64, len(s.Headers))
	for i, m := range s.Headers {
		out[i] = s.Value(line, m)
	}
	return out
}

// Empty reports whether the statement has no months at all.
func (s *Statement) Empty() bool {
	return len(s.Headers) == 0
}
