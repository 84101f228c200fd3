package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reports/internal/content"
	"reports/internal/domain"
)

// ReportStore implements domain.ReportStore over any supported SQL dialect.
type ReportStore struct {
	db *DB
}

func NewReportStore(db *DB) *ReportStore {
	return &ReportStore{db: db}
}

var _ domain.ReportStore = (*ReportStore)(nil)

func (s *ReportStore) LoadReport(ctx context.Context, id string) (*domain.Report, error) {
	var (
		r         domain.Report
		treeJSON  string
		lastSaved sql.NullTime
	)
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT id, title, tree_json, created_at, updated_at, last_saved_at FROM reports WHERE id = ?`), id,
	).Scan(&r.ID, &r.Title, &treeJSON, &r.CreatedAt, &r.UpdatedAt, &lastSaved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load report %s: %w", id, domain.ErrReportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if err := json.Unmarshal([]byte(treeJSON), &r.Tree); err != nil {
		return nil, fmt.Errorf("decode report tree: %w", err)
	}
	if lastSaved.Valid {
		t := lastSaved.Time
		r.LastSavedAt = &t
	}
	return &r, nil
}

// SaveReport writes the live copy of r, inserting it on first save.
func (s *ReportStore) SaveReport(ctx context.Context, r *domain.Report) error {
	if err := content.Validate(r.Tree); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	treeJSON, err := json.Marshal(r.Tree)
	if err != nil {
		return fmt.Errorf("encode report tree: %w", err)
	}
	var lastSaved any
	if r.LastSavedAt != nil {
		lastSaved = r.LastSavedAt.UTC()
	}
	_, err = s.db.conn.ExecContext(ctx, s.db.rebind(s.upsertReportSQL()),
		r.ID, r.Title, string(treeJSON), r.CreatedAt.UTC(), r.UpdatedAt.UTC(), lastSaved,
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *ReportStore) upsertReportSQL() string {
	const insert = `INSERT INTO reports (id, title, tree_json, created_at, updated_at, last_saved_at) VALUES (?, ?, ?, ?, ?, ?)`
	if s.db.dialect == DialectMySQL {
		return insert + ` ON DUPLICATE KEY UPDATE title = VALUES(title), tree_json = VALUES(tree_json),
			updated_at = VALUES(updated_at), last_saved_at = VALUES(last_saved_at)`
	}
	return insert + ` ON CONFLICT (id) DO UPDATE SET title = excluded.title, tree_json = excluded.tree_json,
		updated_at = excluded.updated_at, last_saved_at = excluded.last_saved_at`
}

// ListReports returns report summaries, most recently updated first.
func (s *ReportStore) ListReports(ctx context.Context) ([]domain.ReportSummary, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at, last_saved_at FROM reports ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []domain.ReportSummary
	for rows.Next() {
		var (
			r         domain.ReportSummary
			lastSaved sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.CreatedAt, &r.UpdatedAt, &lastSaved); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if lastSaved.Valid {
			t := lastSaved.Time
			r.LastSavedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteReport removes a report together with its version log.
func (s *ReportStore) DeleteReport(ctx context.Context, id string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM report_versions WHERE report_id = ?`), id); err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM reports WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete report %s: %w", id, domain.ErrReportNotFound)
	}
	return tx.Commit()
}

func (s *ReportStore) AppendVersion(ctx context.Context, v *domain.Version) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	treeJSON, err := json.Marshal(v.Tree)
	if err != nil {
		return fmt.Errorf("encode version tree: %w", err)
	}
	_, err = s.db.conn.ExecContext(ctx, s.db.rebind(
		`INSERT INTO report_versions (id, report_id, label, tree_json, created_at) VALUES (?, ?, ?, ?, ?)`),
		v.ID, v.ReportID, v.Label, string(treeJSON), v.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append version: %w", err)
	}
	return nil
}

// ListVersions returns the version log of a report, oldest first.
func (s *ReportStore) ListVersions(ctx context.Context, reportID string) ([]domain.Version, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id, report_id, label, tree_json, created_at
		 FROM report_versions WHERE report_id = ? ORDER BY seq ASC`), reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []domain.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *ReportStore) GetVersion(ctx context.Context, versionID string) (*domain.Version, error) {
	row := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT id, report_id, label, tree_json, created_at FROM report_versions WHERE id = ?`), versionID,
	)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get version %s: %w", versionID, domain.ErrVersionNotFound)
	}
	return v, err
}

// PruneVersions keeps every labeled version and the newest keep unlabeled
// ones, deleting older unlabeled versions.
func (s *ReportStore) PruneVersions(ctx context.Context, reportID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id FROM report_versions WHERE report_id = ? AND label = '' ORDER BY seq DESC`), reportID,
	)
	if err != nil {
		return fmt.Errorf("prune versions: %w", err)
	}

	// Collect IDs past the retention window first, then delete.
	var toDelete []string
	n := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan version id: %w", err)
		}
		n++
		if n > keep {
			toDelete = append(toDelete, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if len(toDelete) == 0 {
		return nil
	}
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, s.db.rebind(`DELETE FROM report_versions WHERE id = ?`))
	if err != nil {
		return fmt.Errorf("prepare prune: %w", err)
	}
	defer stmt.Close()
	for _, id := range toDelete {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("prune version %s: %w", id, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*domain.Version, error) {
	var (
		v        domain.Version
		treeJSON string
	)
	if err := row.Scan(&v.ID, &v.ReportID, &v.Label, &treeJSON, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan version: %w", err)
	}
	if err := json.Unmarshal([]byte(treeJSON), &v.Tree); err != nil {
		return nil, fmt.Errorf("decode version tree: %w", err)
	}
	return &v, nil
}
