package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drover-io/drover/internal/engine"
	"github.com/drover-io/drover/pkg/api"
)

func TestProcessTimeoutsFailsExpiredFlow(t *testing.T) {
	eng, clock := newTestEngine(t)
	ctx := context.Background()

	flow := mustCreate(t, eng, "agent-1", time.Millisecond)
	clock.Advance(10 * time.Millisecond)

	count, err := eng.ProcessTimeouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := eng.GetFlow(ctx, "agent-1", flow.ID)
	require.NoError(t, err)
	assert.Equal(t, api.FlowFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Contains(t, got.FailureReason.Reason, "timed out")
	assert.Equal(t, engine.SweeperActor, got.FailureReason.FailedBy)
}

func TestProcessTimeoutsIsIdempotent(t *testing.T) {
	eng, clock := newTestEngine(t)
	ctx := context.Background()

	flow := mustCreate(t, eng, "agent-1", time.Millisecond)
	clock.Advance(10 * time.Millisecond)

	count, err := eng.ProcessTimeouts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	before, err := eng.GetFlow(ctx, "agent-1", flow.ID)
	require.NoError(t, err)

	count, err = eng.ProcessTimeouts(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	after, err := eng.GetFlow(ctx, "agent-1", flow.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.UpdatedAt.UnixMilli(), after.UpdatedAt.UnixMilli())
}

func TestProcessTimeoutsZeroDuration(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	// Explicit zero timeout means the deadline is already due
	flow := mustCreate(t, eng, "agent-1", 0)

	count, err := eng.ProcessTimeouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := eng.GetFlow(ctx, "agent-1", flow.ID)
	require.NoError(t, err)
	assert.Equal(t, api.FlowFailed, got.Status)
}

func TestProcessTimeoutsSkipsUnexpired(t *testing.T) {
	eng, clock := newTestEngine(t)
	ctx := context.Background()

	expired := mustCreate(t, eng, "agent-1", time.Minute)
	healthy := mustCreate(t, eng, "agent-2", time.Hour)
	clock.Advance(2 * time.Minute)

	count, err := eng.ProcessTimeouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := eng.GetFlow(ctx, "agent-1", expired.ID)
	require.NoError(t, err)
	assert.Equal(t, api.FlowFailed, got.Status)

	got, err = eng.GetFlow(ctx, "agent-2", healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, api.FlowActive, got.Status)
}

func TestProcessTimeoutsSweepsWaitingFlows(t *testing.T) {
	eng, clock := newTestEngine(t)
	ctx := context.Background()

	flow := mustCreate(t, eng, "agent-1", time.Minute)
	_, err := eng.MarkWaiting(ctx, "agent-1", flow.ID)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	count, err := eng.ProcessTimeouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcessTimeoutsSkipsCompletedFlow(t *testing.T) {
	eng, clock := newTestEngine(t)
	ctx := context.Background()

	flow := mustCreate(t, eng, "agent-1", time.Minute)
	_, err := eng.CompleteFlow(ctx, "agent-1", flow.ID, "beat the clock")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	// The sweep never un-completes a finished flow
	count, err := eng.ProcessTimeouts(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := eng.GetFlow(ctx, "agent-1", flow.ID)
	require.NoError(t, err)
	assert.Equal(t, api.FlowCompleted, got.Status)
}

func TestExtendTimeout(t *testing.T) {
	eng, clock := newTestEngine(t)
	ctx := context.Background()

	flow := mustCreate(t, eng, "agent-1", time.Minute)
	extended, err := eng.ExtendTimeout(
		ctx, "agent-1", flow.ID, time.Hour,
	)
	require.NoError(t, err)
	expected := flow.TimeoutAt.Add(time.Hour)
	assert.True(t, extended.TimeoutAt.Equal(expected))

	// The extended flow survives a sweep past the original deadline
	clock.Advance(2 * time.Minute)
	count, err := eng.ProcessTimeouts(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExtendTimeoutOnTerminalFlow(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	flow := mustCreate(t, eng, "agent-1", time.Hour)
	_, err := eng.CompleteFlow(ctx, "agent-1", flow.ID, "done")
	require.NoError(t, err)

	_, err = eng.ExtendTimeout(ctx, "agent-1", flow.ID, time.Hour)
	assert.ErrorIs(t, err, engine.ErrInvalidState)

	got, err := eng.GetFlow(ctx, "agent-1", flow.ID)
	require.NoError(t, err)
	assert.True(t, got.TimeoutAt.Equal(flow.TimeoutAt))
}

func TestExtendTimeoutValidation(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	flow := mustCreate(t, eng, "agent-1", time.Hour)

	_, err := eng.ExtendTimeout(ctx, "agent-1", flow.ID, 0)
	assert.ErrorIs(t, err, engine.ErrValidation)

	_, err = eng.ExtendTimeout(ctx, "agent-1", "missing", time.Hour)
	assert.ErrorIs(t, err, engine.ErrFlowNotFound)
}
