package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/domain"
	"reports/internal/service"
	"reports/internal/storage"
)

type requestResult struct {
	approved bool
	err      error
}

func requestAsync(q *ApprovalQueue, tool string) <-chan requestResult {
	done := make(chan requestResult, 1)
	go func() {
		ok, err := q.Request(context.Background(), tool, "test action", `{"sectionId":"s1"}`)
		done <- requestResult{ok, err}
	}()
	return done
}

func TestApprovalQueue_ChannelApprove(t *testing.T) {
	ctx := context.Background()
	emitter := &service.MockEmitter{}
	q := NewApprovalQueue(ctx, emitter)

	done := requestAsync(q, "delete_section")

	var pending []domain.PendingAction
	require.Eventually(t, func() bool {
		pending, _ = q.Pending(ctx)
		return len(pending) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, `{"sectionId":"s1"}`, pending[0].Metadata)

	require.NoError(t, q.Approve(ctx, pending[0].ID))
	got := <-done
	require.NoError(t, got.err)
	assert.True(t, got.approved)
	assert.Equal(t, 1, emitter.Count(EventApprovalRequired))

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApprovalQueue_ResolveUnknown(t *testing.T) {
	q := NewApprovalQueue(context.Background(), nil)
	err := q.Approve(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApprovalQueue_ChannelTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock := clockwork.NewFakeClock()
	emitter := &service.MockEmitter{}
	q := NewApprovalQueue(ctx, emitter, WithApprovalClock(clock), WithApprovalTimeout(time.Minute))

	done := requestAsync(q, "delete_block")
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	got := <-done
	assert.False(t, got.approved)
	assert.ErrorContains(t, got.err, "timed out")
	_, dismissed := emitter.Last(EventApprovalDismissed)
	assert.True(t, dismissed)
}

func TestApprovalQueue_AutoApprove(t *testing.T) {
	q := NewApprovalQueue(context.Background(), nil, WithAutoApprove(true))
	ok, err := q.Request(context.Background(), "delete_report", "drop it")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApprovalQueue_AcrossProcessesThroughStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store := storage.NewApprovalStore(openTestDB(t))
	// host is the process serving the UI, agent the stdio process.
	host := NewApprovalQueue(ctx, nil, WithApprovalStore(store))

	for _, approve := range []bool{true, false} {
		clock := clockwork.NewFakeClock()
		agent := NewApprovalQueue(ctx, nil, WithApprovalStore(store), WithRemoteRequests(), WithApprovalClock(clock))

		done := requestAsync(agent, "delete_section")
		// deadline timer plus poll ticker
		require.NoError(t, clock.BlockUntilContext(ctx, 2))

		pending, err := host.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "delete_section", pending[0].Tool)

		require.NoError(t, host.Resolve(ctx, pending[0].ID, approve))
		clock.Advance(defaultPollInterval)

		got := <-done
		assert.Equal(t, approve, got.approved)
		if approve {
			assert.NoError(t, got.err)
		} else {
			assert.ErrorContains(t, got.err, "rejected")
		}

		pending, err = host.Pending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending, "answered rows are removed")
	}
}
