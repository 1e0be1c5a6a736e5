package core

import (
	"fmt"
	"time"
)

// Kind tags a transaction as an inflow or an outflow, as declared by the
// export's type column. It is used only to force the amount sign during
// ingestion.
type Kind string

const (
	KindInflow  Kind = "inflow"
	KindOutflow Kind = "outflow"
	KindUnknown Kind = "unknown"
)

// Month is a calendar year-month bucket, the aggregation granularity of
// the whole engine. The zero value is the "unknown month" sentinel used
// for records whose competency date could not be parsed; such records are
// excluded from aggregation.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the bucket containing t, or the zero Month for a zero t.
func MonthOf(t time.Time) Month {
	if t.IsZero() {
		return Month{}
	}
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses an ISO year-month label such as "2024-01".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// String renders the ISO year-month label ("2024-01").
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether m is the unknown-month sentinel.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Before reports whether m is chronologically before o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Transaction is one normalized row of an ingested export. It is created
// by the ingestion parser and immutable afterwards; the classifier and
// the engine only read it.
type Transaction struct {
	// Date is the competency date; zero when the export value could not
	// be parsed with any known format.
	Date time.Time
	// Month is the bucket derived from Date (zero when Date is zero).
	Month Month
	// Amount is the signed value. The sign is forced from Kind at
	// ingestion: inflows are non-negative, outflows non-positive.
	Amount float64
	// Kind is the inflow/outflow tag from the export's type column.
	Kind Kind
	// CostCenter is the primary classification key. May have been
	// rewritten to the canonical payroll cost center by the payroll
	// keyword override.
	CostCenter string
	// Counterparty is the supplier/client name; may be empty.
	Counterparty string
	// Category is the secondary classification key used as fallback when
	// the cost center matches no rule.
	Category string
	// Description is free text carried along for matching and drill-down.
	Description string
}
