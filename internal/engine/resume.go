package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/drover-io/drover/internal/events"
	"github.com/drover-io/drover/pkg/api"
	"github.com/drover-io/drover/pkg/log"
)

// ResumeFlow delivers an opaque resume input to a flow and moves it back
// to active processing. Accepted from both waiting and active: input may
// arrive before the task marks itself waiting, and the event is recorded
// either way
func (e *Engine) ResumeFlow(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
	input json.RawMessage,
) (*api.Flow, error) {
	flow, err := e.applyTransition(
		ctx, agentID, flowID, api.FlowActive, events.TypeFlowResumed,
		func(f *api.Flow) (*api.Flow, error) {
			return f.AppendResume(&api.ResumeEvent{
				Input:      input,
				ReceivedAt: f.UpdatedAt,
				Actor:      agentID,
			}), nil
		},
	)
	if err != nil {
		return nil, err
	}

	slog.Info("Flow resumed",
		log.FlowID(flowID),
		log.AgentID(agentID),
		slog.Int("resume_count", len(flow.ResumeHistory)))
	return flow, nil
}

// MarkWaiting signals that the flow's task logic needs external input.
// Only legal from the active state
func (e *Engine) MarkWaiting(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
) (*api.Flow, error) {
	flow, err := e.applyTransition(
		ctx, agentID, flowID, api.FlowWaiting, events.TypeFlowWaiting, nil,
	)
	if err != nil {
		return nil, err
	}

	slog.Debug("Flow waiting for input",
		log.FlowID(flowID),
		log.AgentID(agentID))
	return flow, nil
}
