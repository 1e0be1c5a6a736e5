package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsWriter replaces the contents of one Google Sheets tab with the
// rendered statement.
type SheetsWriter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ Writer = (*SheetsWriter)(nil)

// SheetsConfig carries the export target and service-account
// credentials, exactly one of File or JSON set.
type SheetsConfig struct {
	SpreadsheetID string
	SheetName     string
	CredsFile     string
	CredsJSON     string
}

func NewSheetsWriter(ctx context.Context, cfg SheetsConfig) (*SheetsWriter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if cfg.SheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredsJSON != "":
		credentialsJSON = []byte(cfg.CredsJSON)
	case cfg.CredsFile != "":
		data, err := os.ReadFile(cfg.CredsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsWriter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         cfg.SheetName,
	}, nil
}

// Write clears the target tab and uploads the statement as one value
// range starting at A1.
func (w *SheetsWriter) Write(ctx context.Context, report Report) (string, error) {
	if w.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if report.Statement == nil || report.Statement.Empty() {
		return "", fmt.Errorf("nothing to export for upload %s", report.UploadID)
	}

	st := report.Statement

	values := make([][]any, 0, len(st.Rows)+1)
	header := make([]any, 0, len(st.Headers)+1)
	header = append(header, "Linha")
	for _, month := range st.Headers {
		header = append(header, month)
	}
	values = append(values, header)

	for _, row := range st.Rows {
		line := make([]any, 0, len(st.Headers)+1)
		line = append(line, row.Label)
		for _, month := range st.Headers {
			line = append(line, row.Values[month])
		}
		values = append(values, line)
	}

	clearRange := fmt.Sprintf("%s!A:ZZ", w.sheet)
	if _, err := w.svc.Spreadsheets.Values.Clear(w.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", w.sheet, err)
	}

	writeRange := fmt.Sprintf("%s!A1", w.sheet)
	vr := &gsheet.ValueRange{Values: values}
	if _, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update sheet %s: %w", w.sheet, err)
	}

	ref := fmt.Sprintf("%s!A1:%s", w.sheet, lastCell(len(st.Headers)+1, len(values)))
	slog.InfoContext(ctx, "Statement exported to Google Sheets",
		"upload_id", report.UploadID,
		"spreadsheet_id", w.spreadsheetID,
		"range", ref)
	return ref, nil
}

func lastCell(cols, rows int) string {
	name, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		name = "A"
	}
	return fmt.Sprintf("%s%d", name, rows)
}
