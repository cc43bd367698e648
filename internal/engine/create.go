package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/drover-io/drover/internal/events"
	"github.com/drover-io/drover/pkg/api"
	"github.com/drover-io/drover/pkg/log"
)

// CreateFlow allocates a new flow for the agent and persists it in the
// active state. Pass UseDefaultTimeout to apply the configured default
// deadline; an explicit zero duration creates a flow that is already due,
// which the next sweep reclaims
func (e *Engine) CreateFlow(
	ctx context.Context, agentID api.AgentID, payload json.RawMessage,
	timeout time.Duration,
) (*api.Flow, error) {
	if err := requireAgentID(agentID); err != nil {
		return nil, err
	}
	if timeout == UseDefaultTimeout {
		timeout = e.config.DefaultFlowTimeout
	}
	if timeout < 0 {
		return nil, fmt.Errorf(
			"%w: timeout must not be negative", ErrValidation)
	}
	if timeout > e.config.MaxFlowTimeout {
		return nil, fmt.Errorf("%w: timeout %s exceeds maximum %s",
			ErrValidation, timeout, e.config.MaxFlowTimeout)
	}

	now := e.clock()
	flow := &api.Flow{
		ID:        api.FlowID(uuid.NewString()),
		AgentID:   agentID,
		Status:    api.FlowActive,
		CreatedAt: now,
		UpdatedAt: now,
		TimeoutAt: now.Add(timeout),
		Payload:   payload,
	}

	if err := e.store.Put(ctx, flow); err != nil {
		return nil, err
	}

	slog.Info("Flow created",
		log.FlowID(flow.ID),
		log.AgentID(agentID))
	e.publish(events.TypeFlowCreated, flow)
	return flow, nil
}
