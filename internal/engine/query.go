package engine

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/drover-io/drover/internal/config"
	"github.com/drover-io/drover/internal/util"
	"github.com/drover-io/drover/pkg/api"
)

// ListOptions narrows a flow listing. A zero Limit applies the configured
// default; anything above the hard cap is clamped
type ListOptions struct {
	Statuses []api.FlowStatus
	Limit    int
}

// GetFlow retrieves a flow scoped to the owning agent. A flow belonging to
// a different agent is reported as not found, never as a permission error
func (e *Engine) GetFlow(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
) (*api.Flow, error) {
	if err := requireIDs(agentID, flowID); err != nil {
		return nil, err
	}
	return e.fetch(ctx, agentID, flowID)
}

// ListAgentFlows returns the agent's flows, most recent first, optionally
// filtered by status
func (e *Engine) ListAgentFlows(
	ctx context.Context, agentID api.AgentID, opts ListOptions,
) ([]*api.Flow, error) {
	if err := requireAgentID(agentID); err != nil {
		return nil, err
	}
	filter, err := statusFilter(opts.Statuses)
	if err != nil {
		return nil, err
	}

	flows, err := e.store.List(ctx, agentID)
	if err != nil {
		return nil, err
	}

	limit := clampLimit(opts.Limit)
	res := make([]*api.Flow, 0, min(limit, len(flows)))
	for _, f := range flows {
		if filter != nil && !filter.Contains(f.Status) {
			continue
		}
		res = append(res, f)
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

// QueryFlows filters an agent's flows by status and by a JSON path match
// against the opaque payload. The payload is never interpreted beyond the
// requested path lookup
func (e *Engine) QueryFlows(
	ctx context.Context, req *api.QueryFlowsRequest,
) ([]*api.Flow, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrValidation)
	}
	if req.PayloadMatch != nil && req.PayloadMatch.Path == "" {
		return nil, fmt.Errorf(
			"%w: payload match path is required", ErrValidation)
	}

	flows, err := e.ListAgentFlows(ctx, req.AgentID, ListOptions{
		Statuses: req.Statuses,
		Limit:    config.MaxListLimit,
	})
	if err != nil {
		return nil, err
	}

	limit := clampLimit(req.Limit)
	res := make([]*api.Flow, 0, min(limit, len(flows)))
	for _, f := range flows {
		if !matchPayload(f, req.PayloadMatch) {
			continue
		}
		res = append(res, f)
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

func matchPayload(f *api.Flow, m *api.PayloadMatch) bool {
	if m == nil {
		return true
	}
	if len(f.Payload) == 0 {
		return false
	}
	value := gjson.GetBytes(f.Payload, m.Path)
	if !value.Exists() {
		return false
	}
	return m.Value == "" || value.String() == m.Value
}

func statusFilter(
	statuses []api.FlowStatus,
) (util.Set[api.FlowStatus], error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	filter := make(util.Set[api.FlowStatus], len(statuses))
	for _, s := range statuses {
		if !s.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q",
				ErrValidation, s)
		}
		filter.Add(s)
	}
	return filter, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return config.DefaultListLimit
	case limit > config.MaxListLimit:
		return config.MaxListLimit
	default:
		return limit
	}
}
