// Package services orchestrates the reporting pipeline across storage,
// the calculation engine, the dataset cache and the export queue.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"lucro/internal/amqp"
	"lucro/internal/cache"
	"lucro/internal/classify"
	"lucro/internal/core"
	"lucro/internal/export"
	"lucro/internal/forecast"
	"lucro/internal/ingest"
	"lucro/internal/mapping"
	"lucro/internal/pnl"
	"lucro/internal/storage"
)

// ErrLineNotOverridable is returned when an override targets a line
// outside the allow-list.
var ErrLineNotOverridable = errors.New("line does not accept overrides")

// ErrUnsupportedFormat is returned for export formats the worker cannot
// produce.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Store is the persistence surface the service needs.
type Store interface {
	SaveUpload(ctx context.Context, u storage.Upload) error
	GetUpload(ctx context.Context, id string) (*storage.Upload, error)
	ListUploads(ctx context.Context, limit int) ([]storage.Upload, error)
	ListRules(ctx context.Context) ([]mapping.Rule, error)
	ReplaceRules(ctx context.Context, rules []mapping.Rule) error
	SaveOverrides(ctx context.Context, uploadID string, overrides pnl.Overrides) error
	GetOverrides(ctx context.Context, uploadID string) (pnl.Overrides, error)
}

// ExportQueue publishes asynchronous export requests.
type ExportQueue interface {
	PublishReportExport(ctx context.Context, uploadID, format string) error
}

var _ Store = (*storage.SQLiteRepository)(nil)
var _ ExportQueue = (*amqp.Client)(nil)

// IngestResult is what an upload call returns to the operator.
type IngestResult struct {
	UploadID      string   `json:"upload_id"`
	RowCount      int      `json:"row_count"`
	UnmappedCount int      `json:"unmapped_count"`
	Months        []string `json:"months"`
}

// ReportService runs the full pipeline per request. The parsed dataset
// of each upload is cached so statement, dashboard, forecast and
// drill-down calls over the same upload parse the bytes once.
type ReportService struct {
	store    Store
	queue    ExportQueue
	parser   *ingest.Parser
	engine   *pnl.Engine
	datasets cache.Cache[[]core.Transaction]
}

func NewReportService(store Store, queue ExportQueue, parser *ingest.Parser, engine *pnl.Engine, datasets cache.Cache[[]core.Transaction]) *ReportService {
	return &ReportService{
		store:    store,
		queue:    queue,
		parser:   parser,
		engine:   engine,
		datasets: datasets,
	}
}

// Ingest parses raw bytes, classifies them against the active catalog
// and persists the upload for later recomputation.
func (s *ReportService) Ingest(ctx context.Context, filename string, content []byte) (*IngestResult, error) {
	txs, err := s.parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	cls, err := s.classifier(ctx)
	if err != nil {
		return nil, err
	}

	unmapped := 0
	monthSet := make(map[core.Month]bool)
	for _, tx := range txs {
		if !cls.Classify(tx).Matched {
			unmapped++
		}
		if !tx.Month.IsZero() {
			monthSet[tx.Month] = true
		}
	}
	months := sortedMonths(monthSet)

	id := uuid.NewString()
	sum := sha256.Sum256(content)
	upload := storage.Upload{
		ID:            id,
		Filename:      filename,
		Checksum:      hex.EncodeToString(sum[:]),
		Content:       content,
		RowCount:      len(txs),
		UnmappedCount: unmapped,
	}
	if len(months) > 0 {
		upload.FirstMonth = months[0]
		upload.LastMonth = months[len(months)-1]
	}

	if err := s.store.SaveUpload(ctx, upload); err != nil {
		return nil, fmt.Errorf("persist upload: %w", err)
	}
	s.datasets.Set(id, txs)

	slog.InfoContext(ctx, "Upload ingested",
		"upload_id", id,
		"filename", filename,
		"rows", len(txs),
		"unmapped", unmapped,
		"months", len(months))

	return &IngestResult{
		UploadID:      id,
		RowCount:      len(txs),
		UnmappedCount: unmapped,
		Months:        months,
	}, nil
}

// Statement computes the full P&L statement for an upload, stored
// overrides applied.
func (s *ReportService) Statement(ctx context.Context, uploadID string, rng pnl.DateRange) (*pnl.Statement, error) {
	txs, err := s.transactions(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	cls, err := s.classifier(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := s.store.GetOverrides(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	return s.engine.Calculate(txs, cls, overrides, rng), nil
}

// Dashboard reduces an upload's statement to its KPI view.
func (s *ReportService) Dashboard(ctx context.Context, uploadID string) (pnl.Dashboard, error) {
	st, err := s.Statement(ctx, uploadID, pnl.DateRange{})
	if err != nil {
		return pnl.Dashboard{}, err
	}
	return pnl.Summarize(st), nil
}

// Forecast projects headline metrics for an upload.
func (s *ReportService) Forecast(ctx context.Context, uploadID string, months int) (forecast.Result, error) {
	st, err := s.Statement(ctx, uploadID, pnl.DateRange{})
	if err != nil {
		return forecast.Result{}, err
	}
	return forecast.Project(st, months), nil
}

// DrillDown lists the transactions routed to one (line, month) pair.
func (s *ReportService) DrillDown(ctx context.Context, uploadID string, line core.Line, month core.Month, rng pnl.DateRange) ([]core.Transaction, error) {
	txs, err := s.transactions(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	cls, err := s.classifier(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.DrillDown(txs, cls, line, month, rng), nil
}

// SetOverrides persists override values for an upload. Lines outside
// the allow-list are rejected here so the operator hears about it,
// instead of being silently dropped at calculation time.
func (s *ReportService) SetOverrides(ctx context.Context, uploadID string, overrides pnl.Overrides) error {
	for line := range overrides {
		if !line.Overridable() {
			return fmt.Errorf("line %d: %w", line, ErrLineNotOverridable)
		}
	}
	if _, err := s.store.GetUpload(ctx, uploadID); err != nil {
		return fmt.Errorf("load upload: %w", err)
	}
	if err := s.store.SaveOverrides(ctx, uploadID, overrides); err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}
	return nil
}

// QueueExport publishes an asynchronous export request for an upload.
func (s *ReportService) QueueExport(ctx context.Context, uploadID, format string) error {
	if format != amqp.FormatXLSX && format != amqp.FormatSheets {
		return fmt.Errorf("format %q: %w", format, ErrUnsupportedFormat)
	}
	if s.queue == nil {
		return fmt.Errorf("export queue not configured")
	}
	if _, err := s.store.GetUpload(ctx, uploadID); err != nil {
		return fmt.Errorf("load upload: %w", err)
	}
	if err := s.queue.PublishReportExport(ctx, uploadID, format); err != nil {
		return fmt.Errorf("queue export: %w", err)
	}
	return nil
}

// Report assembles the export job for an upload; used by the worker.
func (s *ReportService) Report(ctx context.Context, uploadID string) (export.Report, error) {
	upload, err := s.store.GetUpload(ctx, uploadID)
	if err != nil {
		return export.Report{}, fmt.Errorf("load upload: %w", err)
	}
	st, err := s.Statement(ctx, uploadID, pnl.DateRange{})
	if err != nil {
		return export.Report{}, err
	}
	return export.Report{
		UploadID:  uploadID,
		Filename:  upload.Filename,
		Statement: st,
	}, nil
}

// Mappings returns the active catalog: the stored one, or the built-in
// default when nothing has been stored yet.
func (s *ReportService) Mappings(ctx context.Context) ([]mapping.Rule, error) {
	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mapping catalog: %w", err)
	}
	if len(rules) == 0 {
		return mapping.Default(), nil
	}
	return rules, nil
}

// ReplaceMappings validates and stores a wholesale catalog replacement.
func (s *ReportService) ReplaceMappings(ctx context.Context, rules []mapping.Rule) error {
	if err := mapping.ValidateCatalog(rules); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	if err := s.store.ReplaceRules(ctx, rules); err != nil {
		return fmt.Errorf("store catalog: %w", err)
	}
	return nil
}

// Uploads lists recent uploads without content.
func (s *ReportService) Uploads(ctx context.Context, limit int) ([]storage.Upload, error) {
	uploads, err := s.store.ListUploads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return uploads, nil
}

// transactions returns an upload's parsed dataset, from cache when
// possible.
func (s *ReportService) transactions(ctx context.Context, uploadID string) ([]core.Transaction, error) {
	if txs, ok := s.datasets.Get(uploadID); ok {
		return txs, nil
	}
	upload, err := s.store.GetUpload(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("load upload: %w", err)
	}
	txs, err := s.parser.Parse(upload.Content)
	if err != nil {
		return nil, fmt.Errorf("re-parse stored upload: %w", err)
	}
	s.datasets.Set(uploadID, txs)
	return txs, nil
}

// classifier builds the matcher from the active catalog.
func (s *ReportService) classifier(ctx context.Context) (*classify.Classifier, error) {
	rules, err := s.Mappings(ctx)
	if err != nil {
		return nil, err
	}
	return classify.New(rules), nil
}

func sortedMonths(set map[core.Month]bool) []string {
	months := make([]core.Month, 0, len(set))
	for m := range set {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	labels := make([]string, len(months))
	for i, m := range months {
		labels[i] = m.String()
	}
	return labels
}
