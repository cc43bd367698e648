package engine_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drover-io/drover/internal/engine"
	"github.com/drover-io/drover/pkg/api"
)

func TestGetFlowScopedToAgent(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	flow := mustCreate(t, eng, "agent-1", time.Hour)

	got, err := eng.GetFlow(ctx, "agent-1", flow.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.ID, got.ID)

	_, err = eng.GetFlow(ctx, "agent-2", flow.ID)
	assert.ErrorIs(t, err, engine.ErrFlowNotFound)
}

func TestListAgentFlowsStatusFilter(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	a := mustCreate(t, eng, "agent-1", time.Hour)
	_, err := eng.CompleteFlow(ctx, "agent-1", a.ID, "done")
	require.NoError(t, err)

	mustCreate(t, eng, "agent-1", time.Hour)
	mustCreate(t, eng, "agent-2", time.Hour)

	flows, err := eng.ListAgentFlows(ctx, "agent-1", engine.ListOptions{
		Statuses: []api.FlowStatus{api.FlowCompleted},
	})
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, a.ID, flows[0].ID)
	assert.Equal(t, api.FlowCompleted, flows[0].Status)
	assert.Equal(t, api.AgentID("agent-1"), flows[0].AgentID)
}

func TestListAgentFlowsMostRecentFirst(t *testing.T) {
	eng, clock := newTestEngine(t)
	ctx := context.Background()

	first := mustCreate(t, eng, "agent-1", time.Hour)
	clock.Advance(time.Minute)
	second := mustCreate(t, eng, "agent-1", time.Hour)

	flows, err := eng.ListAgentFlows(ctx, "agent-1", engine.ListOptions{})
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, second.ID, flows[0].ID)
	assert.Equal(t, first.ID, flows[1].ID)
}

func TestListAgentFlowsLimit(t *testing.T) {
	eng, clock := newTestEngine(t)
	ctx := context.Background()

	for range 5 {
		mustCreate(t, eng, "agent-1", time.Hour)
		clock.Advance(time.Second)
	}

	flows, err := eng.ListAgentFlows(ctx, "agent-1", engine.ListOptions{
		Limit: 3,
	})
	require.NoError(t, err)
	assert.Len(t, flows, 3)
}

func TestListAgentFlowsRejectsBadStatus(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.ListAgentFlows(
		context.Background(), "agent-1", engine.ListOptions{
			Statuses: []api.FlowStatus{"paused"},
		},
	)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestListAgentFlowsRequiresAgent(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.ListAgentFlows(
		context.Background(), "", engine.ListOptions{},
	)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestQueryFlowsPayloadMatch(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	email, err := eng.CreateFlow(ctx, "agent-1",
		json.RawMessage(`{"task":{"kind":"email","to":"a@b.c"}}`),
		time.Hour)
	require.NoError(t, err)

	_, err = eng.CreateFlow(ctx, "agent-1",
		json.RawMessage(`{"task":{"kind":"calendar"}}`), time.Hour)
	require.NoError(t, err)

	flows, err := eng.QueryFlows(ctx, &api.QueryFlowsRequest{
		AgentID: "agent-1",
		PayloadMatch: &api.PayloadMatch{
			Path:  "task.kind",
			Value: "email",
		},
	})
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, email.ID, flows[0].ID)
}

func TestQueryFlowsPathPresence(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateFlow(ctx, "agent-1",
		json.RawMessage(`{"thread_id":"t-1"}`), time.Hour)
	require.NoError(t, err)

	mustCreate(t, eng, "agent-1", time.Hour)

	flows, err := eng.QueryFlows(ctx, &api.QueryFlowsRequest{
		AgentID:      "agent-1",
		PayloadMatch: &api.PayloadMatch{Path: "thread_id"},
	})
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}

func TestQueryFlowsRequiresMatchPath(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.QueryFlows(context.Background(), &api.QueryFlowsRequest{
		AgentID:      "agent-1",
		PayloadMatch: &api.PayloadMatch{},
	})
	assert.ErrorIs(t, err, engine.ErrValidation)
}
