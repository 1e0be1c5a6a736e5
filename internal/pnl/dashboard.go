package pnl

import (
	"math"

	"lucro/internal/core"
)

// KPIs is a scalar KPI set: either year-to-date sums or a single month.
type KPIs struct {
	TotalRevenue  float64 `json:"total_revenue"`
	GrossProfit   float64 `json:"gross_profit"`
	EBITDA        float64 `json:"ebitda"`
	NetResult     float64 `json:"net_result"`
	GrossMargin   float64 `json:"gross_margin"`
	EBITDAMargin  float64 `json:"ebitda_margin"`
	GoogleRevenue float64 `json:"google_revenue"`
	AppleRevenue  float64 `json:"apple_revenue"`
}

// MonthPoint is one month of the charting series. Costs and expenses are
// reported as positive magnitudes for display.
type MonthPoint struct {
	Month    string  `json:"month"`
	Revenue  float64 `json:"revenue"`
	EBITDA   float64 `json:"ebitda"`
	Costs    float64 `json:"costs"`
	Expenses float64 `json:"expenses"`
}

// CostStructure is the latest month's cost breakdown, all positive
// magnitudes.
type CostStructure struct {
	PaymentProcessing float64 `json:"payment_processing"`
	COGS              float64 `json:"cogs"`
	Marketing         float64 `json:"marketing"`
	Wages             float64 `json:"wages"`
	Tech              float64 `json:"tech"`
	Other             float64 `json:"other"`
}

// Dashboard is the KPI view of a statement: aggregate-to-date totals,
// the latest month's snapshot and the per-category monthly series.
type Dashboard struct {
	Totals        KPIs          `json:"totals"`
	LatestMonth   string        `json:"latest_month"`
	Latest        KPIs          `json:"latest"`
	Monthly       []MonthPoint  `json:"monthly"`
	CostStructure CostStructure `json:"cost_structure"`
}

// Summarize reduces a statement to its dashboard view. Every figure is
// read straight off the statement and margins reuse the same zero guard,
// so dashboard numbers always equal statement numbers for overlapping
// metrics.
func Summarize(st *Statement) Dashboard {
	if st == nil || st.Empty() {
		return Dashboard{}
	}

	var d Dashboard
	for _, m := range st.Headers {
		d.Totals.TotalRevenue += st.Value(core.LineTotalRevenue, m)
		d.Totals.GrossProfit += st.Value(core.LineGrossProfit, m)
		d.Totals.EBITDA += st.Value(core.LineEBITDA, m)
		d.Totals.NetResult += st.Value(core.LineNetResult, m)
		d.Totals.GoogleRevenue += st.Value(core.LineGoogleDisplay, m)
		d.Totals.AppleRevenue += st.Value(core.LineAppleDisplay, m)

		d.Monthly = append(d.Monthly, MonthPoint{
			Month:    m,
			Revenue:  st.Value(core.LineTotalRevenue, m),
			EBITDA:   st.Value(core.LineEBITDA, m),
			Costs:    math.Abs(st.Value(core.LinePaymentProcessing, m) + st.Value(core.LineCOGS, m)),
			Expenses: math.Abs(st.Value(core.LineSGA, m) + st.Value(core.LineOtherOpexTotal, m)),
		})
	}
	d.Totals.GrossMargin = Margin(d.Totals.GrossProfit, d.Totals.TotalRevenue)
	d.Totals.EBITDAMargin = Margin(d.Totals.EBITDA, d.Totals.TotalRevenue)

	d.LatestMonth = latestMonth(st)
	m := d.LatestMonth
	d.Latest = KPIs{
		TotalRevenue:  st.Value(core.LineTotalRevenue, m),
		GrossProfit:   st.Value(core.LineGrossProfit, m),
		EBITDA:        st.Value(core.LineEBITDA, m),
		NetResult:     st.Value(core.LineNetResult, m),
		GoogleRevenue: st.Value(core.LineGoogleDisplay, m),
		AppleRevenue:  st.Value(core.LineAppleDisplay, m),
	}
	d.Latest.GrossMargin = Margin(d.Latest.GrossProfit, d.Latest.TotalRevenue)
	d.Latest.EBITDAMargin = Margin(d.Latest.EBITDA, d.Latest.TotalRevenue)

	d.CostStructure = CostStructure{
		PaymentProcessing: math.Abs(st.Value(core.LinePaymentProcessing, m)),
		COGS:              math.Abs(st.Value(core.LineCOGS, m)),
		Marketing:         math.Abs(st.Value(core.LineMarketingTotal, m)),
		Wages:             math.Abs(st.Value(core.LineWagesTotal, m)),
		Tech:              math.Abs(st.Value(core.LineTechSupportTotal, m)),
		Other:             math.Abs(st.Value(core.LineOtherOpexTotal, m)),
	}

	return d
}

// latestMonth picks the most recent month with positive revenue, falling
// back to the last header.
func latestMonth(st *Statement) string {
	for i := len(st.Headers) - 1; i >= 0; i-- {
		if st.Value(core.LineTotalRevenue, st.Headers[i]) > 0 {
			return st.Headers[i]
		}
	}
	return st.Headers[len(st.Headers)-1]
}
