// Package ingest turns raw export bytes of unknown encoding and
// separator into normalized transactions.
package ingest

// PayrollCostCenter is the canonical cost-center label all payroll
// transactions are rerouted to, whatever their original cost center.
const PayrollCostCenter = "Wages Expenses"

// Config carries the ingestion tunables. A value object passed at
// construction time so concurrent calculations with different settings
// never share state.
type Config struct {
	// PayrollCostCenter is the rewrite target for payroll-flagged rows.
	PayrollCostCenter string
	// PayrollKeywords flag a row as payroll when any of them appears in
	// its free-text fields. Compared after text normalization.
	PayrollKeywords []string
}

// DefaultConfig returns the ingestion defaults: the payroll keyword list
// the accounting exports are known to use.
func DefaultConfig() Config {
	return Config{
		PayrollCostCenter: PayrollCostCenter,
		PayrollKeywords: []string{
			"folha de pagamento",
			"folha pagamento",
			"folha",
			"pro labore",
			"pro-labore",
			"pró labore",
			"pró-labore",
			"salario",
			"salário",
			"holerite",
			"prestador de servico pj",
			"payroll",
		},
	}
}
