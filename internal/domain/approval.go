package domain

import (
	"context"
	"time"
)

// ApprovalStatus is the state of a destructive agent action awaiting a human.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// PendingAction is a destructive operation an agent asked to run.
type PendingAction struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool"`
	Description string    `json:"description"`
	Metadata    string    `json:"metadata"` // JSON with the ids the action touches
	CreatedAt   time.Time `json:"createdAt"`
}

// ApprovalStore shares pending actions between an agent process and the
// process a human answers from.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, a PendingAction) error
	ApprovalStatus(ctx context.Context, id string) (ApprovalStatus, error)
	ResolveApproval(ctx context.Context, id string, approved bool) error
	DeleteApproval(ctx context.Context, id string) error
	ListPendingApprovals(ctx context.Context) ([]PendingAction, error)
}
