package pnl

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"lucro/internal/classify"
	"lucro/internal/core"
)

// Config carries the engine tunables. It is a value object handed to the
// engine at construction so concurrent calculations with different
// settings stay independent.
type Config struct {
	// PaymentProcessingRate is applied to total revenue per month.
	PaymentProcessingRate float64
	// MaterialityTransaction flags single classified amounts above this
	// magnitude.
	MaterialityTransaction float64
	// MaterialityMonthly flags per-line monthly totals above this
	// magnitude.
	MaterialityMonthly float64
	// MaterialityUnmapped flags unmapped amounts above this magnitude.
	MaterialityUnmapped float64
	// MaxMonths caps the header count, keeping the most recent months.
	MaxMonths int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		PaymentProcessingRate:  0.1765,
		MaterialityTransaction: 20000,
		MaterialityMonthly:     100000,
		MaterialityUnmapped:    10000,
		MaxMonths:              120,
	}
}

// DateRange optionally restricts the months included in a statement.
// Zero bounds are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Overrides maps an allow-listed line to per-month replacement values,
// keyed by ISO month label.
type Overrides map[core.Line]map[string]float64

// Routed pairs a transaction with its classification outcome; it is the
// single data path shared by aggregation and drill-down, which is what
// makes drill-down totals reconcile with statement totals exactly.
type Routed struct {
	Tx    core.Transaction
	Line  core.Line
	Match bool
}

// Engine computes P&L statements. Stateless apart from its Config; safe
// for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine builds an engine with the given configuration. Zero-value
// fields fall back to the defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.PaymentProcessingRate == 0 {
		cfg.PaymentProcessingRate = def.PaymentProcessingRate
	}
	if cfg.MaterialityTransaction == 0 {
		cfg.MaterialityTransaction = def.MaterialityTransaction
	}
	if cfg.MaterialityMonthly == 0 {
		cfg.MaterialityMonthly = def.MaterialityMonthly
	}
	if cfg.MaterialityUnmapped == 0 {
		cfg.MaterialityUnmapped = def.MaterialityUnmapped
	}
	if cfg.MaxMonths == 0 {
		cfg.MaxMonths = def.MaxMonths
	}
	return &Engine{cfg: cfg}
}

// Route classifies every transaction inside the date range. Records with
// an unknown month are excluded; unmapped records are kept with
// Match=false so callers can surface them.
func (e *Engine) Route(txs []core.Transaction, cls *classify.Classifier, rng DateRange) []Routed {
	routed := make([]Routed, 0, len(txs))
	for _, tx := range txs {
		if tx.Month.IsZero() || !rng.contains(tx.Date) {
			continue
		}
		res := cls.Classify(tx)
		routed = append(routed, Routed{Tx: tx, Line: res.Line, Match: res.Matched})
	}
	return routed
}

// Calculate produces the complete statement for the given transactions,
// catalog and overrides. Empty or fully filtered input yields a defined
// empty statement, not an error.
func (e *Engine) Calculate(txs []core.Transaction, cls *classify.Classifier, overrides Overrides, rng DateRange) *Statement {
	routed := e.Route(txs, cls, rng)
	return e.calculate(routed, overrides)
}

func (e *Engine) calculate(routed []Routed, overrides Overrides) *Statement {
	months := monthHeaders(routed, e.cfg.MaxMonths)
	if len(months) == 0 {
		return &Statement{}
	}
	inMonths := make(map[string]bool, len(months))
	for _, m := range months {
		inMonths[m] = true
	}

	st := &Statement{
		Headers: months,
		lines:   make(map[core.Line]map[string]float64),
	}

	// Raw aggregation: sum signed amounts per (line, month).
	for _, r := range routed {
		month := r.Tx.Month.String()
		if !inMonths[month] {
			continue
		}
		if !r.Match {
			if math.Abs(r.Tx.Amount) > e.cfg.MaterialityUnmapped {
				st.Signals = append(st.Signals, Signal{Kind: "unmapped", Month: month, Amount: r.Tx.Amount})
				slog.Debug("material unmapped amount",
					"amount", r.Tx.Amount,
					"cost_center", r.Tx.CostCenter,
					"month", month)
			}
			continue
		}
		st.add(r.Line, month, r.Tx.Amount)
		if math.Abs(r.Tx.Amount) > e.cfg.MaterialityTransaction {
			st.Signals = append(st.Signals, Signal{Kind: "transaction", Line: r.Line, Month: month, Amount: r.Tx.Amount})
			slog.Debug("material transaction",
				"line", int(r.Line),
				"amount", r.Tx.Amount,
				"month", month)
		}
	}

	// Walk lines in id order and months in header order so repeated runs
	// emit identical signal sequences.
	lineIDs := make([]core.Line, 0, len(st.lines))
	for line := range st.lines {
		lineIDs = append(lineIDs, line)
	}
	sort.Slice(lineIDs, func(i, j int) bool { return lineIDs[i] < lineIDs[j] })
	for _, line := range lineIDs {
		for _, month := range months {
			total, ok := st.lines[line][month]
			if ok && math.Abs(total) > e.cfg.MaterialityMonthly {
				st.Signals = append(st.Signals, Signal{Kind: "monthly-total", Line: line, Month: month, Amount: total})
			}
		}
	}

	overrides = allowedOverrides(overrides)

	// Derived lines, per month, in dependency order. An override replaces
	// a line's value the moment that line is computed, so later lines see
	// the override while earlier ones keep their computed values.
	for _, month := range months {
		e.deriveMonth(st, month, overrides)
	}

	st.Rows = e.buildRows(st)
	return st
}

// deriveMonth computes every derived line for one month. No derived line
// ever reads another month.
func (e *Engine) deriveMonth(st *Statement, m string, overrides Overrides) {
	set := func(line core.Line, v float64) {
		if byMonth, ok := overrides[line]; ok {
			if ov, ok := byMonth[m]; ok {
				st.set(line, m, ov)
				return
			}
		}
		st.set(line, m, v)
	}
	v := func(line core.Line) float64 { return st.Value(line, m) }

	google := v(core.LineGooglePlayRevenue)
	apple := v(core.LineAppStoreRevenue)
	invest := v(core.LineInvestmentIncome) + v(core.LineOtherRevenue)

	// Revenue is sign-preserving: refunds and chargebacks arrive negative
	// and reduce the totals.
	set(core.LineGoogleDisplay, google)
	set(core.LineAppleDisplay, apple)
	set(core.LineSalesRevenue, google+apple)
	set(core.LineTotalRevenue, google+apple+invest)

	totalRevenue := v(core.LineTotalRevenue)
	paymentProcessing := totalRevenue * e.cfg.PaymentProcessingRate
	set(core.LinePaymentProcessing, -paymentProcessing)

	cogs := 0.0
	for _, l := range core.COGSLines {
		cogs += math.Abs(v(l))
	}
	set(core.LineCOGS, -cogs)

	set(core.LineGrossProfit, totalRevenue-paymentProcessing-cogs)

	marketing := math.Abs(v(core.LineMarketing))
	wages := math.Abs(v(core.LineWages))
	tech := math.Abs(v(core.LineTechSupport)) + math.Abs(v(core.LineTechSupportOther))
	other := math.Abs(v(core.LineOtherExpenses))

	set(core.LineMarketingTotal, -marketing)
	set(core.LineWagesTotal, -wages)
	set(core.LineTechSupportTotal, -tech)
	set(core.LineOtherOpexTotal, -other)
	set(core.LineSGA, -(marketing + wages + tech))

	set(core.LineEBITDA, v(core.LineGrossProfit)-(marketing+wages+tech+other))
	set(core.LineNetResult, v(core.LineEBITDA))
}

// allowedOverrides filters out entries for lines outside the allow-list.
// Rejected overrides are logged and ignored; the calculation proceeds
// without them and the caller's map is left untouched.
func allowedOverrides(overrides Overrides) Overrides {
	if len(overrides) == 0 {
		return nil
	}
	kept := make(Overrides, len(overrides))
	for line, byMonth := range overrides {
		if !line.Overridable() {
			slog.Warn("override rejected for non-overridable line", "line", int(line))
			continue
		}
		kept[line] = byMonth
	}
	return kept
}

// buildRows assembles the display rows in report order.
func (e *Engine) buildRows(st *Statement) []Row {
	months := st.Headers
	valuesOf := func(line core.Line) map[string]float64 {
		out := make(map[string]float64, len(months))
		for _, m := range months {
			out[m] = st.Value(line, m)
		}
		return out
	}
	sumOf := func(a, b core.Line) map[string]float64 {
		out := make(map[string]float64, len(months))
		for _, m := range months {
			out[m] = st.Value(a, m) + st.Value(b, m)
		}
		return out
	}

	processingLabel := fmt.Sprintf("Payment Processing (%.2f%%)", e.cfg.PaymentProcessingRate*100)

	rows := []Row{
		{Number: 1, Line: core.LineTotalRevenue, Label: "RECEITA OPERACIONAL BRUTA", Kind: RowComputed, Header: true, Values: valuesOf(core.LineTotalRevenue)},
		{Number: 2, Line: core.LineSalesRevenue, Label: "Receita de Vendas (Google + Apple)", Kind: RowComputed, Values: valuesOf(core.LineSalesRevenue)},
		{Number: 21, Line: core.LineGoogleDisplay, Label: "Google Play Revenue", Kind: RowComputed, Values: valuesOf(core.LineGoogleDisplay)},
		{Number: 22, Line: core.LineAppleDisplay, Label: "App Store Revenue", Kind: RowComputed, Values: valuesOf(core.LineAppleDisplay)},
		{Number: 3, Line: core.LineInvestmentIncome, Label: "Rendimentos de Aplicações", Kind: RowInput, Values: valuesOf(core.LineInvestmentIncome)},
		{Number: 4, Label: "(-) CUSTOS DIRETOS", Kind: RowComputed, Header: true, Values: sumOf(core.LinePaymentProcessing, core.LineCOGS)},
		{Number: 5, Line: core.LinePaymentProcessing, Label: processingLabel, Kind: RowComputed, Values: valuesOf(core.LinePaymentProcessing)},
		{Number: 6, Line: core.LineCOGS, Label: "COGS (Web Services)", Kind: RowComputed, Values: valuesOf(core.LineCOGS)},
		{Number: 7, Line: core.LineGrossProfit, Label: "(=) LUCRO BRUTO", Kind: RowComputed, Total: true, Values: valuesOf(core.LineGrossProfit)},
		{Number: 8, Label: "(-) DESPESAS OPERACIONAIS", Kind: RowComputed, Header: true, Values: sumOf(core.LineSGA, core.LineOtherOpexTotal)},
		{Number: 9, Line: core.LineMarketingTotal, Label: "Marketing", Kind: RowComputed, Values: valuesOf(core.LineMarketingTotal)},
		{Number: 10, Line: core.LineWagesTotal, Label: "Salários (Wages)", Kind: RowComputed, Values: valuesOf(core.LineWagesTotal)},
		{Number: 11, Line: core.LineTechSupportTotal, Label: "Tech Support & Services", Kind: RowComputed, Values: valuesOf(core.LineTechSupportTotal)},
		{Number: 12, Line: core.LineOtherOpexTotal, Label: "Outras Despesas", Kind: RowComputed, Values: valuesOf(core.LineOtherOpexTotal)},
		{Number: 13, Line: core.LineEBITDA, Label: "(=) EBITDA", Kind: RowComputed, Total: true, Values: valuesOf(core.LineEBITDA)},
		{Number: 16, Line: core.LineNetResult, Label: "(=) RESULTADO LÍQUIDO", Kind: RowComputed, Total: true, Values: valuesOf(core.LineNetResult)},
	}

	ebitdaMargins := make(map[string]float64, len(months))
	grossMargins := make(map[string]float64, len(months))
	for _, m := range months {
		rev := st.Value(core.LineTotalRevenue, m)
		ebitdaMargins[m] = Margin(st.Value(core.LineEBITDA, m), rev) * 100
		grossMargins[m] = Margin(st.Value(core.LineGrossProfit, m), rev) * 100
	}
	rows = append(rows,
		Row{Number: 14, Label: "Margem EBITDA %", Kind: RowComputed, Values: ebitdaMargins},
		Row{Number: 15, Label: "Margem Bruta %", Kind: RowComputed, Values: grossMargins},
	)

	return rows
}

// Margin divides profit by revenue with the zero guard every margin in
// the system must share: zero revenue means zero margin, never a
// division fault.
func Margin(profit, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	return profit / revenue
}

// DrillDown returns the transactions the classifier routed to one
// (line, month) pair, in input order. It runs the same classification
// pass as Calculate, so the amounts sum exactly to the statement value
// before overrides.
func (e *Engine) DrillDown(txs []core.Transaction, cls *classify.Classifier, line core.Line, month core.Month, rng DateRange) []core.Transaction {
	var out []core.Transaction
	for _, r := range e.Route(txs, cls, rng) {
		if r.Match && r.Line == line && r.Tx.Month == month {
			out = append(out, r.Tx)
		}
	}
	return out
}

// monthHeaders returns the sorted distinct month labels of the routed
// set, truncated to the most recent maxMonths.
func monthHeaders(routed []Routed, maxMonths int) []string {
	seen := make(map[core.Month]bool)
	var months []core.Month
	for _, r := range routed {
		if !seen[r.Tx.Month] {
			seen[r.Tx.Month] = true
			months = append(months, r.Tx.Month)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	if maxMonths > 0 && len(months) > maxMonths {
		months = months[len(months)-maxMonths:]
	}
	labels := make([]string, len(months))
	for i, m := range months {
		labels[i] = m.String()
	}
	return labels
}

func (s *Statement) add(line core.Line, month string, v float64) {
	if s.lines[line] == nil {
		s.lines[line] = make(map[string]float64)
	}
	s.lines[line][month] += v
}

func (s *Statement) set(line core.Line, month string, v float64) {
	if s.lines[line] == nil {
		s.lines[line] = make(map[string]float64)
	}
	s.lines[line][month] = v
}
