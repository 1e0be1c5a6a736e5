package core

import (
	"testing"
	"time"
)

func TestMonth_String(t *testing.T) {
	m := Month{Year: 2024, Month: time.March}
	if got := m.String(); got != "2024-03" {
		t.Errorf("Month.String() = %q, want %q", got, "2024-03")
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-01")
	if err != nil {
		t.Fatalf("ParseMonth() error = %v", err)
	}
	if m.Year != 2024 || m.Month != time.January {
		t.Errorf("ParseMonth() = %+v, want 2024 January", m)
	}

	if _, err := ParseMonth("not-a-month"); err == nil {
		t.Error("ParseMonth() expected error for invalid input")
	}
}

func TestMonth_Next(t *testing.T) {
	tests := []struct {
		name string
		in   Month
		want Month
	}{
		{name: "mid year", in: Month{2024, time.May}, want: Month{2024, time.June}},
		{name: "year rollover", in: Month{2024, time.December}, want: Month{2025, time.January}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Next(); got != tt.want {
				t.Errorf("Month.Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonth_Before(t *testing.T) {
	a := Month{2023, time.December}
	b := Month{2024, time.January}
	if !a.Before(b) {
		t.Error("expected 2023-12 before 2024-01")
	}
	if b.Before(a) {
		t.Error("did not expect 2024-01 before 2023-12")
	}
}

func TestMonthOf_ZeroDate(t *testing.T) {
	if m := MonthOf(time.Time{}); !m.IsZero() {
		t.Errorf("MonthOf(zero) = %v, want zero sentinel", m)
	}
}

func TestLine_Overridable(t *testing.T) {
	for _, l := range []Line{LineTotalRevenue, LineEBITDA, LineNetResult} {
		if !l.Overridable() {
			t.Errorf("line %d should be overridable", l)
		}
	}
	for _, l := range []Line{LineGrossProfit, LineGooglePlayRevenue, LineCOGS} {
		if l.Overridable() {
			t.Errorf("line %d should not be overridable", l)
		}
	}
}
