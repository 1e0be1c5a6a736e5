package core

// Line identifies one row of the fixed P&L taxonomy. Input lines receive
// classified transaction amounts; derived lines are computed from other
// lines of the same month by the formula engine.
type Line int

// Input lines. The numbering comes from the mapping catalog the engine
// grew up with, so persisted catalogs stay valid.
const (
	LineGooglePlayRevenue Line = 25
	LineAppStoreRevenue   Line = 33
	LineInvestmentIncome  Line = 38
	LineAWS               Line = 43
	LineCloudflare        Line = 44
	LineHeroku            Line = 45
	LineIAPHub            Line = 46
	LineMailgun           Line = 47
	LineAWSSES            Line = 48
	LineOtherRevenue      Line = 49
	LineMarketing         Line = 56
	LineWages             Line = 62
	LineTechSupportOther  Line = 65
	LineTechSupport       Line = 68
	LineOtherExpenses     Line = 90
)

// Derived lines, computed per month in the order listed by DerivedOrder.
const (
	LineTotalRevenue      Line = 100
	LineSalesRevenue      Line = 101 // Google + Apple, excludes investment income
	LinePaymentProcessing Line = 102
	LineCOGS              Line = 103
	LineGrossProfit       Line = 104
	LineSGA               Line = 105
	LineEBITDA            Line = 106
	LineMarketingTotal    Line = 107
	LineWagesTotal        Line = 108
	LineTechSupportTotal  Line = 109
	LineOtherOpexTotal    Line = 110
	LineNetResult         Line = 111
	LineGoogleDisplay     Line = 112
	LineAppleDisplay      Line = 113
)

// COGSLines are the designated cost-of-goods input lines (web services
// and infrastructure), summed by magnitude into LineCOGS.
var COGSLines = []Line{LineAWS, LineCloudflare, LineHeroku, LineIAPHub, LineMailgun, LineAWSSES}

// DerivedOrder is the statically checked dependency order for derived
// lines: every line only reads lines that appear before it (or input
// lines), always within the same month.
var DerivedOrder = []Line{
	LineGoogleDisplay,
	LineAppleDisplay,
	LineSalesRevenue,
	LineTotalRevenue,
	LinePaymentProcessing,
	LineCOGS,
	LineGrossProfit,
	LineMarketingTotal,
	LineWagesTotal,
	LineTechSupportTotal,
	LineOtherOpexTotal,
	LineSGA,
	LineEBITDA,
	LineNetResult,
}

// IsDerived reports whether l is computed rather than aggregated.
func (l Line) IsDerived() bool {
	return l >= LineTotalRevenue && l <= LineAppleDisplay
}

// overridableLines is the allow-list for caller-supplied overrides:
// top-level revenue, EBITDA and net result.
var overridableLines = map[Line]bool{
	LineTotalRevenue: true,
	LineEBITDA:       true,
	LineNetResult:    true,
}

// Overridable reports whether callers may replace the computed value of l.
func (l Line) Overridable() bool {
	return overridableLines[l]
}
