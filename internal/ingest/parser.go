package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"lucro/internal/core"
)

// Canonical column keys after header resolution.
const (
	colDate         = "date"
	colAmount       = "amount"
	colKind         = "kind"
	colCostCenter   = "cost_center"
	colCounterparty = "counterparty"
	colCategory     = "category"
	colDescription  = "description"
)

// requiredColumns must all resolve for ingestion to succeed.
var requiredColumns = []string{colDate, colAmount, colKind, colCostCenter}

// columnAliases maps canonical keys to the known header variants of the
// accounting exports. Headers are compared after text normalization, so
// case and accent variants collapse into one entry.
var columnAliases = map[string][]string{
	colDate:         {"data de competencia", "data competencia", "data_competencia", "data"},
	colAmount:       {"valor (r$)", "valor r$", "valor"},
	colKind:         {"tipo", "entrada/saida", "tipo (entrada/saida)", "tipo de movimentacao", "natureza"},
	colCostCenter:   {"centro de custo 1", "centro de custo", "centrocusto", "centro_custo"},
	colCounterparty: {"nome do fornecedor/cliente", "fornecedor/cliente", "nome fornecedor", "fornecedor_cliente", "fornecedor", "cliente"},
	colCategory:     {"categoria 1", "categoria"},
	colDescription:  {"descricao"},
}

// outflowTokens mark a type tag as an outflow. Matched as substrings of
// the normalized tag.
var outflowTokens = []string{"saida", "debito", "despesa", "pagamento"}

// dateFormats are tried in order when parsing competency dates.
var dateFormats = []string{"02/01/2006", "2006-01-02", "01/02/2006", "02-01-2006"}

// encodingTrials is the fixed trial order for text encodings. The order
// is a deterministic tie-break, not a best-fit search: the first
// combination that yields a table with the competency-date column wins.
var encodingTrials = []struct {
	name    string
	decoder *encoding.Decoder
}{
	{"utf-8", nil},
	{"iso-8859-1", charmap.ISO8859_1.NewDecoder()},
	{"windows-1252", charmap.Windows1252.NewDecoder()},
}

// separatorTrials is the fixed trial order for field separators.
var separatorTrials = []rune{',', ';', '\t'}

// Parser converts raw export bytes into normalized transactions.
type Parser struct {
	cfg Config
	// keywords are the payroll keywords, pre-normalized once.
	keywords []string
}

// NewParser builds a parser with the given configuration. Zero-value
// fields fall back to the defaults.
func NewParser(cfg Config) *Parser {
	def := DefaultConfig()
	if cfg.PayrollCostCenter == "" {
		cfg.PayrollCostCenter = def.PayrollCostCenter
	}
	if cfg.PayrollKeywords == nil {
		cfg.PayrollKeywords = def.PayrollKeywords
	}
	keywords := make([]string, 0, len(cfg.PayrollKeywords))
	for _, k := range cfg.PayrollKeywords {
		if n := core.NormalizeText(k); n != "" {
			keywords = append(keywords, n)
		}
	}
	return &Parser{cfg: cfg, keywords: keywords}
}

// Parse decodes and normalizes the raw export content. It tries the
// fixed encoding/separator grid in order and accepts the first
// combination producing a multi-column table with the competency-date
// column; it fails with a *ParseError when none does or when mandatory
// columns are missing.
func (p *Parser) Parse(raw []byte) ([]core.Transaction, error) {
	headers, rows, attempted, err := decodeTable(raw)
	if err != nil {
		return nil, err
	}

	columns := resolveColumns(headers)
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{Attempted: attempted, MissingColumns: missing}
	}

	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx := p.normalizeRow(columns, row)
		txs = append(txs, tx)
	}
	return txs, nil
}

// decodeTable walks the encoding × separator grid and returns the first
// acceptable table.
func decodeTable(raw []byte) (headers []string, rows [][]string, attempted []string, err error) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	for _, enc := range encodingTrials {
		text, decErr := decode(raw, enc.decoder)
		if decErr != nil {
			for _, sep := range separatorTrials {
				attempted = append(attempted, fmt.Sprintf("%s %q", enc.name, sep))
			}
			continue
		}
		for _, sep := range separatorTrials {
			attempted = append(attempted, fmt.Sprintf("%s %q", enc.name, sep))
			h, r, ok := parseCSV(text, sep)
			if ok {
				return h, r, attempted, nil
			}
		}
	}
	return nil, nil, attempted, &ParseError{Attempted: attempted}
}

func decode(raw []byte, dec *encoding.Decoder) (string, error) {
	if dec == nil {
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid utf-8")
		}
		return string(raw), nil
	}
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return string(out), nil
}

// parseCSV parses text with the given separator and reports whether the
// result is an acceptable table: at least two columns and a resolvable
// competency-date header. A strict pass runs first; when it fails on
// ragged rows a lenient pass skips them instead.
func parseCSV(text string, sep rune) (headers []string, rows [][]string, ok bool) {
	for _, lenient := range []bool{false, true} {
		r := csv.NewReader(strings.NewReader(text))
		r.Comma = sep
		r.LazyQuotes = true
		if lenient {
			r.FieldsPerRecord = -1
		}
		records, err := r.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}
		headers = records[0]
		if len(headers) < 2 {
			continue
		}
		if !hasDateColumn(headers) {
			return nil, nil, false
		}
		rows = records[1:]
		if lenient {
			rows = dropShortRows(rows, len(headers))
		}
		return headers, rows, true
	}
	return nil, nil, false
}

func hasDateColumn(headers []string) bool {
	for _, h := range headers {
		n := core.NormalizeText(h)
		for _, alias := range columnAliases[colDate] {
			if n == alias {
				return true
			}
		}
	}
	return false
}

func dropShortRows(rows [][]string, width int) [][]string {
	kept := rows[:0]
	for _, row := range rows {
		if len(row) >= width {
			kept = append(kept, row[:width])
		}
	}
	return kept
}

// resolveColumns maps canonical column keys to their index in the header
// row, using the alias table over normalized header text.
func resolveColumns(headers []string) map[string]int {
	columns := make(map[string]int)
	for i, h := range headers {
		n := core.NormalizeText(h)
		for key, aliases := range columnAliases {
			if _, taken := columns[key]; taken {
				continue
			}
			for _, alias := range aliases {
				if n == alias {
					columns[key] = i
					break
				}
			}
		}
	}
	return columns
}

// normalizeRow builds one Transaction from a raw row: date parsing,
// amount parsing, sign forcing from the type tag and the payroll
// cost-center override.
func (p *Parser) normalizeRow(columns map[string]int, row []string) core.Transaction {
	field := func(key string) string {
		i, ok := columns[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date := parseDate(field(colDate))
	kind := parseKind(field(colKind))

	// The type tag is the source of truth for the sign: any sign embedded
	// in the numeric string is discarded here. Revenue lines later keep
	// this forced sign untouched, so a refund only reduces revenue when
	// the export tags it as an outflow.
	amount := math.Abs(core.ParseAmount(field(colAmount)))
	if kind == core.KindOutflow {
		amount = -amount
	}

	tx := core.Transaction{
		Date:         date,
		Month:        core.MonthOf(date),
		Amount:       amount,
		Kind:         kind,
		CostCenter:   field(colCostCenter),
		Counterparty: field(colCounterparty),
		Category:     field(colCategory),
		Description:  field(colDescription),
	}

	if p.isPayroll(tx) {
		tx.CostCenter = p.cfg.PayrollCostCenter
	}
	return tx
}

// isPayroll reports whether any payroll keyword appears in the row's
// free-text fields.
func (p *Parser) isPayroll(tx core.Transaction) bool {
	blob := core.NormalizeText(tx.CostCenter) + " " +
		core.NormalizeText(tx.Category) + " " +
		core.NormalizeText(tx.Description) + " " +
		core.NormalizeText(tx.Counterparty)
	for _, k := range p.keywords {
		if strings.Contains(blob, k) {
			return true
		}
	}
	return false
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	slog.Debug("unparseable competency date", "value", s)
	return time.Time{}
}

func parseKind(s string) core.Kind {
	n := core.NormalizeText(s)
	if n == "" {
		return core.KindUnknown
	}
	for _, token := range outflowTokens {
		if strings.Contains(n, token) {
			return core.KindOutflow
		}
	}
	return core.KindInflow
}
