package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"reports/internal/domain"
	"reports/internal/service"
)

// Approval events emitted to the host UI in in-process mode.
const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

const (
	defaultApprovalTimeout = 120 * time.Second
	defaultPollInterval    = 500 * time.Millisecond
)

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool calls.
// It supports two modes:
//   - In-process (HTTP server hosting MCP): channels plus approval events
//   - Store-based (standalone stdio MCP): writes to mcp_approvals, polls for the answer
//
// Either way a human answers through Resolve, usually from the HTTP API.
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan bool
	actions map[string]domain.PendingAction

	ctx     context.Context
	emitter service.EventEmitter
	clock   clockwork.Clock
	timeout time.Duration
	poll    time.Duration

	store       domain.ApprovalStore
	remote      bool
	autoApprove bool
}

type ApprovalOption func(*ApprovalQueue)

// WithApprovalStore lets the queue list and answer approvals that other
// processes wrote to store.
func WithApprovalStore(store domain.ApprovalStore) ApprovalOption {
	return func(q *ApprovalQueue) { q.store = store }
}

// WithRemoteRequests sends this queue's own requests through the store, for
// a process that has no UI of its own.
func WithRemoteRequests() ApprovalOption {
	return func(q *ApprovalQueue) { q.remote = true }
}

// WithAutoApprove approves every request without asking.
func WithAutoApprove(on bool) ApprovalOption {
	return func(q *ApprovalQueue) { q.autoApprove = on }
}

func WithApprovalTimeout(d time.Duration) ApprovalOption {
	return func(q *ApprovalQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithApprovalClock(c clockwork.Clock) ApprovalOption {
	return func(q *ApprovalQueue) { q.clock = c }
}

func NewApprovalQueue(ctx context.Context, emitter service.EventEmitter, opts ...ApprovalOption) *ApprovalQueue {
	q := &ApprovalQueue{
		pending: make(map[string]chan bool),
		actions: make(map[string]domain.PendingAction),
		ctx:     ctx,
		emitter: emitter,
		clock:   clockwork.NewRealClock(),
		timeout: defaultApprovalTimeout,
		poll:    defaultPollInterval,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.emitter == nil {
		q.emitter = service.LogEmitter{Log: zerolog.Nop()}
	}
	return q
}

// Request asks for approval and blocks until it is approved, rejected or
// timed out. metadata is optional JSON with the ids the action touches.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description string, metadata ...string) (bool, error) {
	if q.autoApprove {
		return true, nil
	}
	action := domain.PendingAction{
		ID:          uuid.New().String(),
		Tool:        tool,
		Description: description,
		Metadata:    "{}",
		CreatedAt:   q.clock.Now().UTC(),
	}
	if len(metadata) > 0 && metadata[0] != "" {
		action.Metadata = metadata[0]
	}

	if q.remote && q.store != nil {
		return q.requestViaStore(ctx, action)
	}
	return q.requestViaChannel(ctx, action)
}

// requestViaStore writes a pending approval and polls until it is answered.
func (q *ApprovalQueue) requestViaStore(ctx context.Context, a domain.PendingAction) (bool, error) {
	if err := q.store.CreateApproval(ctx, a); err != nil {
		return false, err
	}
	// Rows are removed with a fresh context so a cancelled request still cleans up.
	defer q.store.DeleteApproval(context.WithoutCancel(ctx), a.ID)

	deadline := q.clock.After(q.timeout)
	ticker := q.clock.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			status, err := q.store.ApprovalStatus(ctx, a.ID)
			if err != nil {
				continue
			}
			switch status {
			case domain.ApprovalApproved:
				return true, nil
			case domain.ApprovalRejected:
				return false, fmt.Errorf("action rejected by user: %s", a.Tool)
			}
		case <-deadline:
			return false, fmt.Errorf("action timed out after %s: %s", q.timeout, a.Tool)
		case <-ctx.Done():
			return false, ctx.Err()
		case <-q.ctx.Done():
			return false, fmt.Errorf("context cancelled")
		}
	}
}

func (q *ApprovalQueue) requestViaChannel(ctx context.Context, a domain.PendingAction) (bool, error) {
	ch := make(chan bool, 1)

	q.mu.Lock()
	q.pending[a.ID] = ch
	q.actions[a.ID] = a
	q.mu.Unlock()
	defer q.cleanup(a.ID)

	q.emitter.Emit(q.ctx, EventApprovalRequired, a)

	select {
	case approved := <-ch:
		if !approved {
			return false, fmt.Errorf("action rejected by user: %s", a.Tool)
		}
		return true, nil
	case <-q.clock.After(q.timeout):
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": a.ID})
		return false, fmt.Errorf("action timed out after %s: %s", q.timeout, a.Tool)
	case <-ctx.Done():
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": a.ID})
		return false, ctx.Err()
	}
}

// Pending lists the actions waiting for an answer, oldest first.
func (q *ApprovalQueue) Pending(ctx context.Context) ([]domain.PendingAction, error) {
	q.mu.Lock()
	out := make([]domain.PendingAction, 0, len(q.actions))
	for _, a := range q.actions {
		out = append(out, a)
	}
	q.mu.Unlock()

	if q.store != nil {
		stored, err := q.store.ListPendingApprovals(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, stored...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Resolve answers a pending action, local or stored.
func (q *ApprovalQueue) Resolve(ctx context.Context, actionID string, approved bool) error {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	if ok {
		delete(q.pending, actionID)
		delete(q.actions, actionID)
	}
	q.mu.Unlock()
	if ok {
		ch <- approved
		return nil
	}
	if q.store != nil {
		return q.store.ResolveApproval(ctx, actionID, approved)
	}
	return &domain.NotFoundError{Kind: "approval", ID: actionID}
}

// Approve marks a pending action as approved.
func (q *ApprovalQueue) Approve(ctx context.Context, actionID string) error {
	return q.Resolve(ctx, actionID, true)
}

// Reject marks a pending action as rejected.
func (q *ApprovalQueue) Reject(ctx context.Context, actionID string) error {
	return q.Resolve(ctx, actionID, false)
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	delete(q.actions, id)
	q.mu.Unlock()
}
