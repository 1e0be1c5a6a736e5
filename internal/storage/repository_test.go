package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"lucro/internal/core"
	"lucro/internal/mapping"
	"lucro/internal/pnl"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_UploadRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	u := Upload{
		ID:            "3f1f3f64-1111-4222-8333-444455556666",
		Filename:      "extrato-jan.csv",
		Checksum:      "abc123",
		Content:       []byte("data;valor\n15/01/2024;100,00\n"),
		RowCount:      1,
		UnmappedCount: 0,
		FirstMonth:    "2024-01",
		LastMonth:     "2024-01",
	}
	if err := repo.SaveUpload(ctx, u); err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}

	got, err := repo.GetUpload(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUpload() error = %v", err)
	}
	if got.Filename != u.Filename || got.Checksum != u.Checksum {
		t.Errorf("GetUpload() = %+v, want filename/checksum of %+v", got, u)
	}
	if string(got.Content) != string(u.Content) {
		t.Errorf("content round trip mismatch: %q", got.Content)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func TestSQLiteRepository_GetUploadNotFound(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.GetUpload(context.Background(), "missing")
	if !errors.Is(err, ErrUploadNotFound) {
		t.Errorf("GetUpload() error = %v, want ErrUploadNotFound", err)
	}
}

func TestSQLiteRepository_ListUploads(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for _, id := range []string{"id-1", "id-2"} {
		if err := repo.SaveUpload(ctx, Upload{ID: id, Filename: id + ".csv", Content: []byte("x")}); err != nil {
			t.Fatalf("SaveUpload(%s) error = %v", id, err)
		}
	}

	uploads, err := repo.ListUploads(ctx, 10)
	if err != nil {
		t.Fatalf("ListUploads() error = %v", err)
	}
	if len(uploads) != 2 {
		t.Fatalf("ListUploads() = %d uploads, want 2", len(uploads))
	}
	for _, u := range uploads {
		if len(u.Content) != 0 {
			t.Errorf("ListUploads() returned content blob for %s", u.ID)
		}
	}
}

func TestSQLiteRepository_RuleReplacement(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	rules, err := repo.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("ListRules() on fresh db = %d rules, want 0", len(rules))
	}

	if err := repo.ReplaceRules(ctx, mapping.Default()); err != nil {
		t.Fatalf("ReplaceRules() error = %v", err)
	}
	rules, err = repo.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(rules) != len(mapping.Default()) {
		t.Fatalf("ListRules() = %d rules, want %d", len(rules), len(mapping.Default()))
	}
	// Stored order must match catalog order, it feeds the longest-match
	// index build.
	if rules[0].CostCenter != mapping.Default()[0].CostCenter {
		t.Errorf("first rule cost center = %q, want %q", rules[0].CostCenter, mapping.Default()[0].CostCenter)
	}

	replacement := []mapping.Rule{
		{Line: core.LineMarketing, CostCenter: "Marketing", Counterparty: mapping.GenericCounterparty, Kind: mapping.KindExpense, Active: true},
	}
	if err := repo.ReplaceRules(ctx, replacement); err != nil {
		t.Fatalf("ReplaceRules() error = %v", err)
	}
	rules, err = repo.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(rules) != 1 || rules[0].Line != core.LineMarketing {
		t.Errorf("ListRules() after replacement = %+v, want single marketing rule", rules)
	}
}

func TestSQLiteRepository_OverridesRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.SaveUpload(ctx, Upload{ID: "up-1", Filename: "a.csv", Content: []byte("x")}); err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}

	overrides := pnl.Overrides{
		core.LineEBITDA:       {"2024-01": 5000},
		core.LineTotalRevenue: {"2024-01": 120000, "2024-02": 90000},
	}
	if err := repo.SaveOverrides(ctx, "up-1", overrides); err != nil {
		t.Fatalf("SaveOverrides() error = %v", err)
	}

	got, err := repo.GetOverrides(ctx, "up-1")
	if err != nil {
		t.Fatalf("GetOverrides() error = %v", err)
	}
	if got[core.LineEBITDA]["2024-01"] != 5000 {
		t.Errorf("EBITDA override = %v, want 5000", got[core.LineEBITDA]["2024-01"])
	}
	if len(got[core.LineTotalRevenue]) != 2 {
		t.Errorf("revenue overrides = %d entries, want 2", len(got[core.LineTotalRevenue]))
	}

	// Upsert replaces the value in place.
	if err := repo.SaveOverrides(ctx, "up-1", pnl.Overrides{core.LineEBITDA: {"2024-01": 7500}}); err != nil {
		t.Fatalf("SaveOverrides() upsert error = %v", err)
	}
	got, err = repo.GetOverrides(ctx, "up-1")
	if err != nil {
		t.Fatalf("GetOverrides() error = %v", err)
	}
	if got[core.LineEBITDA]["2024-01"] != 7500 {
		t.Errorf("EBITDA override after upsert = %v, want 7500", got[core.LineEBITDA]["2024-01"])
	}
}
