package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/domain"
)

func TestApprovalStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewApprovalStore(openTestDB(t))

	require.NoError(t, store.CreateApproval(ctx, domain.PendingAction{
		ID: "a1", Tool: "delete_section", Description: "Delete section Summary", CreatedAt: testTime,
	}))
	require.NoError(t, store.CreateApproval(ctx, domain.PendingAction{
		ID: "a2", Tool: "delete_block", Metadata: `{"blockId":"b1"}`, CreatedAt: testTime.Add(1),
	}))

	pending, err := store.ListPendingApprovals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a1", pending[0].ID)
	assert.Equal(t, "{}", pending[0].Metadata)
	assert.Equal(t, `{"blockId":"b1"}`, pending[1].Metadata)

	status, err := store.ApprovalStatus(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, status)

	require.NoError(t, store.ResolveApproval(ctx, "a1", true))
	status, err = store.ApprovalStatus(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, status)

	err = store.ResolveApproval(ctx, "a1", false)
	assert.ErrorIs(t, err, domain.ErrNotFound, "answered approvals cannot be answered again")

	pending, err = store.ListPendingApprovals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a2", pending[0].ID)

	require.NoError(t, store.DeleteApproval(ctx, "a2"))
	_, err = store.ApprovalStatus(ctx, "a2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
