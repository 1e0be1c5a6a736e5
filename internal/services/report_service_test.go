package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"lucro/internal/amqp"
	"lucro/internal/cache"
	"lucro/internal/core"
	"lucro/internal/ingest"
	"lucro/internal/mapping"
	"lucro/internal/pnl"
	"lucro/internal/storage"
)

// sampleCSV is a small Conta Azul style export: semicolon separated,
// Brazilian amounts, one cost center the default catalog does not know.
const sampleCSV = `Data de Competência;Valor (R$);Tipo;Centro de Custo 1;Nome do Fornecedor/Cliente
15/01/2024;10.000,00;Entrada;Google Play Net Revenue;GOOGLE BRASIL PAGAMENTOS LTDA
20/01/2024;2.000,00;Saída;Web Services Expenses;AWS
10/02/2024;5.000,00;Entrada;Google Play Net Revenue;GOOGLE BRASIL PAGAMENTOS LTDA
05/02/2024;300,00;Saída;Centro Misterioso;FORNECEDOR XYZ
`

type fakeStore struct {
	uploads   map[string]storage.Upload
	rules     []mapping.Rule
	overrides map[string]pnl.Overrides
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		uploads:   make(map[string]storage.Upload),
		overrides: make(map[string]pnl.Overrides),
	}
}

func (f *fakeStore) SaveUpload(_ context.Context, u storage.Upload) error {
	f.uploads[u.ID] = u
	return nil
}

func (f *fakeStore) GetUpload(_ context.Context, id string) (*storage.Upload, error) {
	u, ok := f.uploads[id]
	if !ok {
		return nil, storage.ErrUploadNotFound
	}
	return &u, nil
}

func (f *fakeStore) ListUploads(_ context.Context, limit int) ([]storage.Upload, error) {
	out := make([]storage.Upload, 0, len(f.uploads))
	for _, u := range f.uploads {
		u.Content = nil
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ListRules(_ context.Context) ([]mapping.Rule, error) {
	return f.rules, nil
}

func (f *fakeStore) ReplaceRules(_ context.Context, rules []mapping.Rule) error {
	f.rules = rules
	return nil
}

func (f *fakeStore) SaveOverrides(_ context.Context, uploadID string, overrides pnl.Overrides) error {
	f.overrides[uploadID] = overrides
	return nil
}

func (f *fakeStore) GetOverrides(_ context.Context, uploadID string) (pnl.Overrides, error) {
	return f.overrides[uploadID], nil
}

type fakeQueue struct {
	published []string
}

func (f *fakeQueue) PublishReportExport(_ context.Context, uploadID, format string) error {
	f.published = append(f.published, uploadID+":"+format)
	return nil
}

func newTestService(store Store, queue ExportQueue) *ReportService {
	parser := ingest.NewParser(ingest.DefaultConfig())
	engine := pnl.NewEngine(pnl.Config{})
	datasets := cache.NewLRUCache[[]core.Transaction](8, time.Minute)
	return NewReportService(store, queue, parser, engine, datasets)
}

func TestReportService_Ingest(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "export.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.RowCount != 4 {
		t.Errorf("RowCount = %d, want 4", res.RowCount)
	}
	if res.UnmappedCount != 1 {
		t.Errorf("UnmappedCount = %d, want 1", res.UnmappedCount)
	}
	wantMonths := []string{"2024-01", "2024-02"}
	if len(res.Months) != len(wantMonths) {
		t.Fatalf("Months = %v, want %v", res.Months, wantMonths)
	}
	for i, m := range wantMonths {
		if res.Months[i] != m {
			t.Errorf("Months[%d] = %q, want %q", i, res.Months[i], m)
		}
	}

	stored, ok := store.uploads[res.UploadID]
	if !ok {
		t.Fatal("upload was not persisted")
	}
	if stored.Filename != "export.csv" {
		t.Errorf("Filename = %q, want export.csv", stored.Filename)
	}
	if stored.Checksum == "" {
		t.Error("Checksum is empty")
	}
	if stored.FirstMonth != "2024-01" || stored.LastMonth != "2024-02" {
		t.Errorf("month range = %s..%s, want 2024-01..2024-02", stored.FirstMonth, stored.LastMonth)
	}
}

func TestReportService_Ingest_ParseError(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.Ingest(context.Background(), "bad.csv", []byte("no headers here"))
	if err == nil {
		t.Fatal("Ingest() with unparseable content should fail")
	}
}

func TestReportService_Statement(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "export.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	st, err := svc.Statement(ctx, res.UploadID, pnl.DateRange{})
	if err != nil {
		t.Fatalf("Statement() error = %v", err)
	}
	if got := st.Value(core.LineTotalRevenue, "2024-01"); got != 10000 {
		t.Errorf("total revenue 2024-01 = %v, want 10000", got)
	}
	if got := st.Value(core.LineTotalRevenue, "2024-02"); got != 5000 {
		t.Errorf("total revenue 2024-02 = %v, want 5000", got)
	}
}

func TestReportService_Statement_ReparsesFromStore(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	res, err := newTestService(store, nil).Ingest(ctx, "export.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	// A fresh service has a cold dataset cache, so this exercises the
	// re-parse path over the stored bytes.
	st, err := newTestService(store, nil).Statement(ctx, res.UploadID, pnl.DateRange{})
	if err != nil {
		t.Fatalf("Statement() error = %v", err)
	}
	if got := st.Value(core.LineTotalRevenue, "2024-01"); got != 10000 {
		t.Errorf("total revenue 2024-01 = %v, want 10000", got)
	}
}

func TestReportService_Statement_UnknownUpload(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.Statement(context.Background(), "missing", pnl.DateRange{})
	if err == nil {
		t.Fatal("Statement() for unknown upload should fail")
	}
}

func TestReportService_SetOverrides(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "export.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	overrides := pnl.Overrides{core.LineEBITDA: {"2024-01": 1234.5}}
	if err := svc.SetOverrides(ctx, res.UploadID, overrides); err != nil {
		t.Fatalf("SetOverrides() error = %v", err)
	}

	st, err := svc.Statement(ctx, res.UploadID, pnl.DateRange{})
	if err != nil {
		t.Fatalf("Statement() error = %v", err)
	}
	if got := st.Value(core.LineEBITDA, "2024-01"); got != 1234.5 {
		t.Errorf("EBITDA 2024-01 = %v, want 1234.5", got)
	}
}

func TestReportService_SetOverrides_RejectsLockedLine(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "export.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	err = svc.SetOverrides(ctx, res.UploadID, pnl.Overrides{core.LineGrossProfit: {"2024-01": 1}})
	if err == nil {
		t.Fatal("SetOverrides() on a non-overridable line should fail")
	}
	if len(store.overrides[res.UploadID]) != 0 {
		t.Error("rejected overrides must not be persisted")
	}
}

func TestReportService_SetOverrides_UnknownUpload(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	err := svc.SetOverrides(context.Background(), "missing", pnl.Overrides{core.LineEBITDA: {"2024-01": 1}})
	if err == nil {
		t.Fatal("SetOverrides() for unknown upload should fail")
	}
}

func TestReportService_QueueExport(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	svc := newTestService(store, queue)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "export.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if err := svc.QueueExport(ctx, res.UploadID, amqp.FormatXLSX); err != nil {
		t.Fatalf("QueueExport() error = %v", err)
	}
	if len(queue.published) != 1 || queue.published[0] != res.UploadID+":"+amqp.FormatXLSX {
		t.Errorf("published = %v", queue.published)
	}

	if err := svc.QueueExport(ctx, res.UploadID, "pdf"); err == nil {
		t.Error("QueueExport() with unsupported format should fail")
	}
	if err := svc.QueueExport(ctx, "missing", amqp.FormatXLSX); err == nil {
		t.Error("QueueExport() for unknown upload should fail")
	}
}

func TestReportService_QueueExport_NoQueue(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	err := svc.QueueExport(context.Background(), "any", amqp.FormatXLSX)
	if err == nil {
		t.Fatal("QueueExport() without a queue should fail")
	}
	if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("error = %v, want queue-not-configured", err)
	}
}

func TestReportService_Report(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "export.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	report, err := svc.Report(ctx, res.UploadID)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report.UploadID != res.UploadID {
		t.Errorf("UploadID = %q, want %q", report.UploadID, res.UploadID)
	}
	if report.Filename != "export.csv" {
		t.Errorf("Filename = %q, want export.csv", report.Filename)
	}
	if report.Statement == nil || report.Statement.Empty() {
		t.Fatal("Report() statement is empty")
	}
}

func TestReportService_Mappings_DefaultWhenStoreEmpty(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	rules, err := svc.Mappings(context.Background())
	if err != nil {
		t.Fatalf("Mappings() error = %v", err)
	}
	if len(rules) != len(mapping.Default()) {
		t.Errorf("len(rules) = %d, want built-in default %d", len(rules), len(mapping.Default()))
	}
}

func TestReportService_ReplaceMappings(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	custom := []mapping.Rule{
		{
			Line:         core.LineGooglePlayRevenue,
			Group:        "Receitas",
			CostCenter:   "Receitas Google",
			Counterparty: mapping.GenericCounterparty,
			Kind:         mapping.KindRevenue,
			Active:       true,
		},
	}
	if err := svc.ReplaceMappings(ctx, custom); err != nil {
		t.Fatalf("ReplaceMappings() error = %v", err)
	}
	if len(store.rules) != 1 {
		t.Fatalf("stored rules = %d, want 1", len(store.rules))
	}

	if err := svc.ReplaceMappings(ctx, nil); err == nil {
		t.Error("ReplaceMappings() with an empty catalog should fail")
	}

	// Mappings must now serve the stored catalog instead of the default.
	rules, err := svc.Mappings(ctx)
	if err != nil {
		t.Fatalf("Mappings() error = %v", err)
	}
	if len(rules) != 1 || rules[0].CostCenter != "Receitas Google" {
		t.Errorf("Mappings() = %v, want the stored catalog", rules)
	}
}

func TestReportService_Forecast_ShortHistoryWarning(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "export.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	fc, err := svc.Forecast(ctx, res.UploadID, 3)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if len(fc.Points) != 0 {
		t.Errorf("Points = %v, want none for two months of history", fc.Points)
	}
	if fc.Warning == "" {
		t.Error("Warning is empty, want short-history warning")
	}
}
