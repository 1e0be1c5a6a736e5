package mapping

import "lucro/internal/core"

// Default returns the built-in catalog used until an operator replaces it.
// Cost-center names match the accounting export labels exactly.
func Default() []Rule {
	rule := func(cc, cp string, line core.Line, kind RuleKind, note string) Rule {
		return Rule{
			Line:         line,
			Group:        cc,
			CostCenter:   cc,
			Counterparty: cp,
			Kind:         kind,
			Active:       true,
			Note:         note,
		}
	}

	return []Rule{
		// Revenues
		rule("Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA", core.LineGooglePlayRevenue, KindRevenue, "Google Play revenue"),
		rule("App Store Net Revenue", "App Store (Apple)", core.LineAppStoreRevenue, KindRevenue, "App Store revenue"),
		rule("Rendimentos de Aplicações", "CONTA SIMPLES", core.LineInvestmentIncome, KindRevenue, "CDI yield"),
		rule("Rendimentos de Aplicações", "BANCO INTER", core.LineInvestmentIncome, KindRevenue, "Inter yield"),

		// COGS: web services, specific suppliers first
		rule("Web Services Expenses", "AWS SES", core.LineAWSSES, KindCost, "AWS SES"),
		rule("Web Services Expenses", "AWS", core.LineAWS, KindCost, "Amazon Web Services"),
		rule("Web Services Expenses", "Cloudflare", core.LineCloudflare, KindCost, "Cloudflare"),
		rule("Web Services Expenses", "Heroku", core.LineHeroku, KindCost, "Heroku"),
		rule("Web Services Expenses", "IAPHUB", core.LineIAPHub, KindCost, "IAPHUB"),
		rule("Web Services Expenses", "MailGun", core.LineMailgun, KindCost, "MailGun"),
		rule("Web Services Expenses", GenericCounterparty, core.LineAWS, KindCost, "Web services, generic"),

		// Operating expenses
		rule("Marketing & Growth Expenses", "MGA MARKETING LTDA", core.LineMarketing, KindExpense, "Marketing agency"),
		rule("Marketing & Growth Expenses", GenericCounterparty, core.LineMarketing, KindExpense, "Marketing, generic"),
		rule("Wages Expenses", GenericCounterparty, core.LineWages, KindExpense, "Salaries and pró-labore"),
		rule("Tech Support & Services", "Adobe", core.LineTechSupport, KindExpense, "Adobe Creative Cloud"),
		rule("Tech Support & Services", "Canva", core.LineTechSupport, KindExpense, "Canva"),
		rule("Tech Support & Services", "ClickSign", core.LineTechSupport, KindExpense, "ClickSign"),
		rule("Tech Support & Services", "COMPANYHERO", core.LineTechSupport, KindExpense, "Company Hero"),
		rule("Tech Support & Services", GenericCounterparty, core.LineTechSupportOther, KindExpense, "Tech support, generic"),

		// Other expenses and taxes, all folding into the catch-all line
		rule("Legal & Accounting Expenses", "BHUB.AI", core.LineOtherExpenses, KindExpense, "Finance BPO"),
		rule("Legal & Accounting Expenses", "WOLFF", core.LineOtherExpenses, KindExpense, "Legal fees"),
		rule("Legal & Accounting Expenses", GenericCounterparty, core.LineOtherExpenses, KindExpense, "Legal and accounting, generic"),
		rule("Office Expenses", "GO OFFICES", core.LineOtherExpenses, KindExpense, "Rent"),
		rule("Office Expenses", "CO-SERVICES", core.LineOtherExpenses, KindExpense, "Office services"),
		rule("Office Expenses", GenericCounterparty, core.LineOtherExpenses, KindExpense, "Office, generic"),
		rule("Travel", "American Airlines", core.LineOtherExpenses, KindExpense, "Travel"),
		rule("Travel", GenericCounterparty, core.LineOtherExpenses, KindExpense, "Travel, generic"),
		rule("Other Taxes", "IMPOSTOS/TRIBUTOS", core.LineOtherExpenses, KindExpense, "Taxes"),
		rule("Other Taxes", GenericCounterparty, core.LineOtherExpenses, KindExpense, "Other taxes, generic"),
		rule("Payroll Tax - Brazil", "IMPOSTOS/TRIBUTOS", core.LineOtherExpenses, KindExpense, "Payroll taxes"),
		rule("Payroll Tax - Brazil", GenericCounterparty, core.LineOtherExpenses, KindExpense, "Payroll tax, generic"),
		rule("Other Expenses", GenericCounterparty, core.LineOtherExpenses, KindExpense, "General expenses"),
		rule("Identificar", GenericCounterparty, core.LineOtherExpenses, KindExpense, "To be identified"),
		rule("Devoluções e Estornos", GenericCounterparty, core.LineOtherExpenses, KindExpense, "Refunds and chargebacks"),
	}
}
