package worker

import (
	"context"
	"errors"
	"testing"

	"lucro/internal/amqp"
	"lucro/internal/export"
	"lucro/internal/pnl"
)

type fakeSource struct {
	report export.Report
	err    error
	calls  int
}

func (f *fakeSource) Report(_ context.Context, uploadID string) (export.Report, error) {
	f.calls++
	if f.err != nil {
		return export.Report{}, f.err
	}
	return f.report, nil
}

type fakeWriter struct {
	ref   string
	err   error
	calls int
}

func (f *fakeWriter) Write(_ context.Context, report export.Report) (string, error) {
	f.calls++
	return f.ref, f.err
}

func TestExportWorker_HandleExportMessage(t *testing.T) {
	source := &fakeSource{report: export.Report{
		UploadID:  "u1",
		Filename:  "jan.csv",
		Statement: &pnl.Statement{Headers: []string{"2024-01"}},
	}}
	writer := &fakeWriter{ref: "/tmp/u1.xlsx"}
	w := NewExportWorker(source, map[string]export.Writer{amqp.FormatXLSX: writer})

	msg := amqp.NewReportExportMessage("u1", amqp.FormatXLSX)
	if err := w.HandleExportMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleExportMessage() error = %v", err)
	}
	if writer.calls != 1 {
		t.Errorf("writer calls = %d, want 1", writer.calls)
	}
}

func TestExportWorker_UnknownFormatSkips(t *testing.T) {
	source := &fakeSource{}
	w := NewExportWorker(source, map[string]export.Writer{})

	msg := amqp.NewReportExportMessage("u1", amqp.FormatSheets)
	if err := w.HandleExportMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleExportMessage() error = %v, want skip without error", err)
	}
	if source.calls != 0 {
		t.Error("report must not be assembled when no writer is configured")
	}
}

func TestExportWorker_SourceErrorIsReturned(t *testing.T) {
	source := &fakeSource{err: errors.New("upload not found")}
	writer := &fakeWriter{}
	w := NewExportWorker(source, map[string]export.Writer{amqp.FormatXLSX: writer})

	msg := amqp.NewReportExportMessage("u1", amqp.FormatXLSX)
	if err := w.HandleExportMessage(context.Background(), msg); err == nil {
		t.Fatal("HandleExportMessage() should propagate source errors")
	}
	if writer.calls != 0 {
		t.Error("writer must not run when the report cannot be assembled")
	}
}

func TestExportWorker_WriterErrorIsReturned(t *testing.T) {
	source := &fakeSource{report: export.Report{
		UploadID:  "u1",
		Statement: &pnl.Statement{Headers: []string{"2024-01"}},
	}}
	writer := &fakeWriter{err: errors.New("disk full")}
	w := NewExportWorker(source, map[string]export.Writer{amqp.FormatXLSX: writer})

	msg := amqp.NewReportExportMessage("u1", amqp.FormatXLSX)
	if err := w.HandleExportMessage(context.Background(), msg); err == nil {
		t.Fatal("HandleExportMessage() should propagate writer errors")
	}
}
