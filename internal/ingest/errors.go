package ingest

import (
	"fmt"
	"strings"
)

// ParseError is the structured, fatal ingestion failure: either no
// encoding/separator combination produced a table with the competency
// date column, or the accepted table lacks mandatory columns.
type ParseError struct {
	// Attempted lists the encoding/separator combinations tried, in
	// trial order, e.g. "utf-8 ','".
	Attempted []string
	// MissingColumns names the mandatory columns absent from the
	// accepted table. Empty when no combination parsed at all.
	MissingColumns []string
}

func (e *ParseError) Error() string {
	if len(e.MissingColumns) > 0 {
		return fmt.Sprintf("ingest: missing required columns: %s", strings.Join(e.MissingColumns, ", "))
	}
	return fmt.Sprintf("ingest: no valid encoding/separator combination (tried %s)", strings.Join(e.Attempted, ", "))
}
