// Package export renders a computed statement into spreadsheet targets.
package export

import (
	"context"

	"lucro/internal/pnl"
)

// Report is one export job: the computed statement plus the upload
// metadata used to name the output.
type Report struct {
	UploadID  string
	Filename  string
	Statement *pnl.Statement
}

// Writer writes a rendered report to one target and returns a reference
// to where it landed (a file path or a sheet range).
type Writer interface {
	Write(ctx context.Context, report Report) (ref string, err error)
}
