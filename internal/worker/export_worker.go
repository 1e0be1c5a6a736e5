// Package worker consumes queued export jobs and renders reports.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"lucro/internal/amqp"
	"lucro/internal/export"
	"lucro/internal/services"
)

// ReportSource assembles the export payload for an upload.
type ReportSource interface {
	Report(ctx context.Context, uploadID string) (export.Report, error)
}

var _ ReportSource = (*services.ReportService)(nil)

// ExportWorker renders queued report exports with the writer registered
// for each format.
type ExportWorker struct {
	source  ReportSource
	writers map[string]export.Writer
}

func NewExportWorker(source ReportSource, writers map[string]export.Writer) *ExportWorker {
	return &ExportWorker{
		source:  source,
		writers: writers,
	}
}

// HandleExportMessage processes a single export message from AMQP. A
// missing writer drops the message with a warning instead of requeueing
// it forever; a writer failure is returned so the message is retried.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ReportExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"upload_id", msg.UploadID,
		"format", msg.Format)

	writer, ok := w.writers[msg.Format]
	if !ok || writer == nil {
		slog.WarnContext(ctx, "No writer configured for format, skipping export",
			"upload_id", msg.UploadID,
			"format", msg.Format)
		return nil
	}

	report, err := w.source.Report(ctx, msg.UploadID)
	if err != nil {
		return fmt.Errorf("assemble report: %w", err)
	}

	ref, err := writer.Write(ctx, report)
	if err != nil {
		return fmt.Errorf("write %s export: %w", msg.Format, err)
	}

	slog.InfoContext(ctx, "Export completed",
		"upload_id", msg.UploadID,
		"format", msg.Format,
		"ref", ref)
	return nil
}
