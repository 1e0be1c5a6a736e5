package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lucro/internal/core"
	"lucro/internal/mapping"
	"lucro/internal/pnl"

	_ "modernc.org/sqlite"
)

// ErrUploadNotFound is returned when an upload id has no stored row.
var ErrUploadNotFound = errors.New("upload not found")

// Upload is a stored accounting export. Content keeps the raw bytes so
// the statement can be recomputed later without a re-upload.
type Upload struct {
	ID            string
	Filename      string
	Checksum      string
	Content       []byte
	RowCount      int
	UnmappedCount int
	FirstMonth    string
	LastMonth     string
	CreatedAt     time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveUpload stores an upload, raw bytes included.
func (r *SQLiteRepository) SaveUpload(ctx context.Context, u Upload) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO uploads (id, filename, checksum, content, row_count, unmapped_count, first_month, last_month)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Filename, u.Checksum, u.Content, u.RowCount, u.UnmappedCount, u.FirstMonth, u.LastMonth)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}

	slog.InfoContext(ctx, "Upload saved",
		"id", u.ID,
		"filename", u.Filename,
		"rows", u.RowCount,
		"unmapped", u.UnmappedCount)
	return nil
}

// GetUpload loads one upload with its raw content.
func (r *SQLiteRepository) GetUpload(ctx context.Context, id string) (*Upload, error) {
	var u Upload
	err := r.db.QueryRowContext(ctx, `
		SELECT id, filename, checksum, content, row_count, unmapped_count, first_month, last_month, created_at
		FROM uploads WHERE id = ?`, id).
		Scan(&u.ID, &u.Filename, &u.Checksum, &u.Content, &u.RowCount, &u.UnmappedCount, &u.FirstMonth, &u.LastMonth, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return &u, nil
}

// ListUploads returns recent uploads without their content blobs.
func (r *SQLiteRepository) ListUploads(ctx context.Context, limit int) ([]Upload, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, checksum, row_count, unmapped_count, first_month, last_month, created_at
		FROM uploads ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.Filename, &u.Checksum, &u.RowCount, &u.UnmappedCount, &u.FirstMonth, &u.LastMonth, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return uploads, nil
}

// ListRules loads the persisted mapping catalog in stored order. An
// empty catalog is not an error; callers fall back to the built-in one.
func (r *SQLiteRepository) ListRules(ctx context.Context) ([]mapping.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT line, group_name, cost_center, counterparty, kind, active, note
		FROM mapping_rules ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list mapping rules: %w", err)
	}
	defer rows.Close()

	var rules []mapping.Rule
	for rows.Next() {
		var rule mapping.Rule
		var line int
		var active int
		if err := rows.Scan(&line, &rule.Group, &rule.CostCenter, &rule.Counterparty, &rule.Kind, &active, &rule.Note); err != nil {
			return nil, fmt.Errorf("scan mapping rule: %w", err)
		}
		rule.Line = core.Line(line)
		rule.Active = active != 0
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mapping rules: %w", err)
	}
	return rules, nil
}

// ReplaceRules swaps the whole catalog in one transaction. Rules are
// never mutated individually; replacement is always wholesale.
func (r *SQLiteRepository) ReplaceRules(ctx context.Context, rules []mapping.Rule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rule replacement: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mapping_rules`); err != nil {
		return fmt.Errorf("clear mapping rules: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mapping_rules (position, line, group_name, cost_center, counterparty, kind, active, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare rule insert: %w", err)
	}
	defer stmt.Close()

	for i, rule := range rules {
		active := 0
		if rule.Active {
			active = 1
		}
		if _, err := stmt.ExecContext(ctx, i, int(rule.Line), rule.Group, rule.CostCenter, rule.Counterparty, string(rule.Kind), active, rule.Note); err != nil {
			return fmt.Errorf("insert rule %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rule replacement: %w", err)
	}

	slog.InfoContext(ctx, "Mapping catalog replaced", "rules", len(rules))
	return nil
}

// SaveOverrides upserts override values for an upload.
func (r *SQLiteRepository) SaveOverrides(ctx context.Context, uploadID string, overrides pnl.Overrides) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin override save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO overrides (upload_id, line, month, value, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (upload_id, line, month) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("prepare override upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for line, byMonth := range overrides {
		for month, value := range byMonth {
			if _, err := stmt.ExecContext(ctx, uploadID, int(line), month, value); err != nil {
				return fmt.Errorf("upsert override line %d month %s: %w", line, month, err)
			}
			count++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit override save: %w", err)
	}

	slog.InfoContext(ctx, "Overrides saved", "upload_id", uploadID, "count", count)
	return nil
}

// GetOverrides loads all override values for an upload.
func (r *SQLiteRepository) GetOverrides(ctx context.Context, uploadID string) (pnl.Overrides, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT line, month, value FROM overrides WHERE upload_id = ?`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("get overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(pnl.Overrides)
	for rows.Next() {
		var line int
		var month string
		var value float64
		if err := rows.Scan(&line, &month, &value); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		if overrides[core.Line(line)] == nil {
			overrides[core.Line(line)] = make(map[string]float64)
		}
		overrides[core.Line(line)][month] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return overrides, nil
}
