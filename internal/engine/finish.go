package engine

import (
	"context"
	"log/slog"

	"github.com/drover-io/drover/internal/events"
	"github.com/drover-io/drover/pkg/api"
	"github.com/drover-io/drover/pkg/log"
)

// CompleteFlow records the final response and moves the flow to the
// completed terminal state. A second completion attempt observes the
// terminal status and fails, so racing callers can detect the loss
func (e *Engine) CompleteFlow(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
	finalResponse string,
) (*api.Flow, error) {
	flow, err := e.applyTransition(
		ctx, agentID, flowID, api.FlowCompleted, events.TypeFlowCompleted,
		func(f *api.Flow) (*api.Flow, error) {
			return f.SetResult(&api.FlowResult{
				FinalResponse: finalResponse,
				CompletedBy:   agentID,
			}), nil
		},
	)
	if err != nil {
		return nil, err
	}

	slog.Info("Flow completed",
		log.FlowID(flowID),
		log.AgentID(agentID),
		log.Status(flow.Status))
	return flow, nil
}

// FailFlow records a failure reason and moves the flow to the failed
// terminal state, attributed to the calling agent
func (e *Engine) FailFlow(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
	reason string,
) (*api.Flow, error) {
	return e.failFlowAs(ctx, agentID, flowID, reason, agentID)
}

// failFlowAs is the shared fail transition. The sweeper reuses it verbatim
// so a timed-out flow is indistinguishable in shape from an explicitly
// failed one, differing only in the failure reason and actor
func (e *Engine) failFlowAs(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
	reason string, actor api.AgentID,
) (*api.Flow, error) {
	flow, err := e.applyTransition(
		ctx, agentID, flowID, api.FlowFailed, events.TypeFlowFailed,
		func(f *api.Flow) (*api.Flow, error) {
			return f.SetFailureReason(&api.FlowFailure{
				Reason:   reason,
				FailedBy: actor,
			}), nil
		},
	)
	if err != nil {
		return nil, err
	}

	slog.Info("Flow failed",
		log.FlowID(flowID),
		log.AgentID(agentID),
		log.Status(flow.Status),
		slog.String("reason", reason))
	return flow, nil
}
