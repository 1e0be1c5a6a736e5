package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const sheetName = "P&L"

// XLSXWriter renders statements to .xlsx files in a local directory.
type XLSXWriter struct {
	dir string
}

var _ Writer = (*XLSXWriter)(nil)

func NewXLSXWriter(dir string) *XLSXWriter {
	return &XLSXWriter{dir: dir}
}

// Write renders the statement rows in report order, one column per
// month, and saves the workbook as <upload id>.xlsx.
func (w *XLSXWriter) Write(ctx context.Context, report Report) (string, error) {
	if report.Statement == nil || report.Statement.Empty() {
		return "", fmt.Errorf("nothing to export for upload %s", report.UploadID)
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	st := report.Statement

	// Header row: label column then one column per month.
	if err := f.SetCellValue(sheetName, "A1", "Linha"); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for i, month := range st.Headers {
		cell, err := cellName(i+2, 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheetName, cell, month); err != nil {
			return "", fmt.Errorf("write header %s: %w", month, err)
		}
	}

	for rowIdx, row := range st.Rows {
		labelCell, err := cellName(1, rowIdx+2)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheetName, labelCell, row.Label); err != nil {
			return "", fmt.Errorf("write label %q: %w", row.Label, err)
		}
		for colIdx, month := range st.Headers {
			cell, err := cellName(colIdx+2, rowIdx+2)
			if err != nil {
				return "", err
			}
			if err := f.SetCellValue(sheetName, cell, row.Values[month]); err != nil {
				return "", fmt.Errorf("write value %q %s: %w", row.Label, month, err)
			}
		}
	}

	path := filepath.Join(w.dir, report.UploadID+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	slog.InfoContext(ctx, "Statement exported to xlsx",
		"upload_id", report.UploadID,
		"path", path,
		"months", len(st.Headers),
		"rows", len(st.Rows))
	return path, nil
}

func cellName(col, row int) (string, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("cell coordinates (%d, %d): %w", col, row, err)
	}
	return name, nil
}
