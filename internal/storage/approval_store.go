package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reports/internal/domain"
)

// ApprovalStore keeps agent approvals in mcp_approvals so a standalone MCP
// process and the HTTP server can hand them over through the database.
type ApprovalStore struct {
	db *DB
}

var _ domain.ApprovalStore = (*ApprovalStore)(nil)

func NewApprovalStore(db *DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

func (s *ApprovalStore) CreateApproval(ctx context.Context, a domain.PendingAction) error {
	meta := a.Metadata
	if meta == "" {
		meta = "{}"
	}
	_, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		a.ID, a.Tool, a.Description, string(domain.ApprovalPending), meta, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

func (s *ApprovalStore) ApprovalStatus(ctx context.Context, id string) (domain.ApprovalStatus, error) {
	var status string
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(`SELECT status FROM mcp_approvals WHERE id = ?`), id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &domain.NotFoundError{Kind: "approval", ID: id}
	}
	if err != nil {
		return "", fmt.Errorf("get approval %s: %w", id, err)
	}
	return domain.ApprovalStatus(status), nil
}

// ResolveApproval answers a pending approval. Answered or unknown ids are
// reported as not found.
func (s *ApprovalStore) ResolveApproval(ctx context.Context, id string, approved bool) error {
	status := domain.ApprovalRejected
	if approved {
		status = domain.ApprovalApproved
	}
	res, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = ?`),
		string(status), id, string(domain.ApprovalPending),
	)
	if err != nil {
		return fmt.Errorf("resolve approval %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "approval", ID: id}
	}
	return nil
}

func (s *ApprovalStore) DeleteApproval(ctx context.Context, id string) error {
	if _, err := s.db.conn.ExecContext(ctx, s.db.rebind(`DELETE FROM mcp_approvals WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete approval %s: %w", id, err)
	}
	return nil
}

func (s *ApprovalStore) ListPendingApprovals(ctx context.Context) ([]domain.PendingAction, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id, tool, description, metadata, created_at FROM mcp_approvals WHERE status = ? ORDER BY created_at, id`),
		string(domain.ApprovalPending),
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingAction
	for rows.Next() {
		var a domain.PendingAction
		if err := rows.Scan(&a.ID, &a.Tool, &a.Description, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
