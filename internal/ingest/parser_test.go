package ingest

import (
	"errors"
	"math"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"

	"lucro/internal/core"
)

const sampleCSV = `Data de competência,Valor (R$),Tipo,Centro de Custo 1,Nome do fornecedor/cliente,Categoria 1,Descrição
15/01/2024,"1.000,00",Entrada,Google Play Net Revenue,GOOGLE BRASIL PAGAMENTOS LTDA,Receitas,repasse mensal
20/01/2024,"250,00",Saída,Web Services Expenses,AWS,Infra,fatura aws
`

func TestParser_Parse_UTF8Comma(t *testing.T) {
	p := NewParser(DefaultConfig())
	txs, err := p.Parse([]byte(sampleCSV))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("Parse() returned %d transactions, want 2", len(txs))
	}

	in := txs[0]
	if in.Kind != core.KindInflow {
		t.Errorf("first row kind = %v, want inflow", in.Kind)
	}
	if math.Abs(in.Amount-1000) > 0.001 {
		t.Errorf("first row amount = %v, want 1000", in.Amount)
	}
	if in.Month != (core.Month{Year: 2024, Month: time.January}) {
		t.Errorf("first row month = %v, want 2024-01", in.Month)
	}
	if in.Counterparty != "GOOGLE BRASIL PAGAMENTOS LTDA" {
		t.Errorf("counterparty = %q", in.Counterparty)
	}

	out := txs[1]
	if out.Kind != core.KindOutflow {
		t.Errorf("second row kind = %v, want outflow", out.Kind)
	}
	if math.Abs(out.Amount-(-250)) > 0.001 {
		t.Errorf("second row amount = %v, want -250", out.Amount)
	}
}

func TestParser_Parse_Latin1Semicolon(t *testing.T) {
	csv := "Data de competência;Valor (R$);Tipo;Centro de Custo 1;Nome do fornecedor/cliente\n" +
		"10/02/2024;1.500,00;Saída;Serviços Técnicos;FORNECEDOR LTDA\n"
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(csv))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	p := NewParser(DefaultConfig())
	txs, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("Parse() returned %d transactions, want 1", len(txs))
	}
	if txs[0].CostCenter != "Serviços Técnicos" {
		t.Errorf("cost center = %q, accents should survive decoding", txs[0].CostCenter)
	}
	if math.Abs(txs[0].Amount-(-1500)) > 0.001 {
		t.Errorf("amount = %v, want -1500", txs[0].Amount)
	}
}

func TestParser_Parse_HeaderAliases(t *testing.T) {
	csv := "Data;Valor;Natureza;Centro de Custo\n" +
		"05/03/2024;100,00;Entrada;Google Play Net Revenue\n"

	p := NewParser(DefaultConfig())
	txs, err := p.Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if txs[0].Amount != 100 {
		t.Errorf("amount = %v, want 100", txs[0].Amount)
	}
}

func TestParser_Parse_MissingColumns(t *testing.T) {
	csv := "Data de competência,Descrição\n15/01/2024,algo\n"

	p := NewParser(DefaultConfig())
	_, err := p.Parse([]byte(csv))

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse() error = %v, want *ParseError", err)
	}
	if len(perr.MissingColumns) != 3 {
		t.Errorf("missing columns = %v, want amount, kind and cost_center", perr.MissingColumns)
	}
}

func TestParser_Parse_NoValidCombination(t *testing.T) {
	p := NewParser(DefaultConfig())
	_, err := p.Parse([]byte("just some prose without any delimiters"))

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse() error = %v, want *ParseError", err)
	}
	if len(perr.Attempted) == 0 {
		t.Error("ParseError should list attempted combinations")
	}
	if len(perr.MissingColumns) != 0 {
		t.Errorf("unexpected missing columns: %v", perr.MissingColumns)
	}
}

func TestParser_Parse_SignForcedFromKind(t *testing.T) {
	// The embedded trailing minus must be ignored: the type tag wins.
	csv := "Data de competência,Valor (R$),Tipo,Centro de Custo 1\n" +
		"15/01/2024,\"500,00-\",Entrada,Google Play Net Revenue\n" +
		"15/01/2024,\"300,00\",Despesa,Marketing & Growth Expenses\n"

	p := NewParser(DefaultConfig())
	txs, err := p.Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if txs[0].Amount != 500 {
		t.Errorf("inflow amount = %v, want +500 (tag overrides embedded sign)", txs[0].Amount)
	}
	if txs[1].Amount != -300 {
		t.Errorf("outflow amount = %v, want -300", txs[1].Amount)
	}
}

func TestParser_Parse_PayrollOverride(t *testing.T) {
	csv := "Data de competência,Valor (R$),Tipo,Centro de Custo 1,Descrição\n" +
		"15/01/2024,\"8.000,00\",Saída,Prestadores,pagamento Pró-Labore sócio\n" +
		"15/01/2024,\"100,00\",Saída,Office Expenses,material de escritório\n"

	p := NewParser(DefaultConfig())
	txs, err := p.Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if txs[0].CostCenter != PayrollCostCenter {
		t.Errorf("payroll row cost center = %q, want %q", txs[0].CostCenter, PayrollCostCenter)
	}
	if txs[1].CostCenter != "Office Expenses" {
		t.Errorf("non-payroll row cost center = %q, should be untouched", txs[1].CostCenter)
	}
}

func TestParser_Parse_InvalidDateBecomesSentinel(t *testing.T) {
	csv := "Data de competência,Valor (R$),Tipo,Centro de Custo 1\n" +
		"not-a-date,\"100,00\",Entrada,Google Play Net Revenue\n"

	p := NewParser(DefaultConfig())
	txs, err := p.Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !txs[0].Date.IsZero() || !txs[0].Month.IsZero() {
		t.Errorf("invalid date should yield zero sentinel, got %v / %v", txs[0].Date, txs[0].Month)
	}
}

func TestParser_Parse_RaggedRowsSkipped(t *testing.T) {
	csv := "Data de competência,Valor (R$),Tipo,Centro de Custo 1\n" +
		"15/01/2024,\"100,00\",Entrada,Google Play Net Revenue\n" +
		"garbage line\n" +
		"16/01/2024,\"200,00\",Entrada,App Store Net Revenue\n"

	p := NewParser(DefaultConfig())
	txs, err := p.Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2 (ragged row skipped)", len(txs))
	}
}
