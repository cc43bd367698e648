package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drover-io/drover/internal/events"
	"github.com/drover-io/drover/pkg/api"
	"github.com/drover-io/drover/pkg/log"
)

const (
	// SweeperActor is the identity recorded on sweep-triggered failures
	SweeperActor api.AgentID = "drover-sweeper"

	// TimeoutReason is the failure reason recorded on timed-out flows
	TimeoutReason = "flow timed out"
)

// ProcessTimeouts scans all non-terminal flows and fails every one whose
// deadline has passed, reusing the normal fail transition. A flow that
// another operation moved to a terminal state between the scan and the
// transition is skipped as already handled; one flow's conflict never
// blocks reclamation of the rest. Returns the number of flows failed
func (e *Engine) ProcessTimeouts(ctx context.Context) (int, error) {
	flows, err := e.store.ListNonTerminal(ctx)
	if err != nil {
		return 0, err
	}

	now := e.clock()
	count := 0
	for _, f := range flows {
		if f.TimeoutAt.After(now) {
			continue
		}

		_, err := e.failFlowAs(
			ctx, f.AgentID, f.ID, TimeoutReason, SweeperActor,
		)
		if err != nil {
			if errors.Is(err, ErrInvalidState) ||
				errors.Is(err, ErrFlowNotFound) {
				slog.Debug("Flow already handled, skipping",
					log.FlowID(f.ID),
					log.Error(err))
				continue
			}
			slog.Warn("Failed to time out flow",
				log.FlowID(f.ID),
				log.AgentID(f.AgentID),
				log.Error(err))
			continue
		}
		count++
	}

	if count > 0 {
		slog.Info("Timeout sweep reclaimed flows",
			slog.Int("count", count))
	}
	return count, nil
}

// ExtendTimeout raises a non-terminal flow's deadline by the given
// duration. The deadline only ever moves forward
func (e *Engine) ExtendTimeout(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
	additional time.Duration,
) (*api.Flow, error) {
	if err := requireIDs(agentID, flowID); err != nil {
		return nil, err
	}
	if additional <= 0 {
		return nil, fmt.Errorf(
			"%w: additional duration must be positive", ErrValidation)
	}

	unlock := e.lockFlow(flowID)
	defer unlock()

	flow, err := e.fetch(ctx, agentID, flowID)
	if err != nil {
		return nil, err
	}
	if flow.Status.Terminal() {
		return nil, &StateError{FlowID: flowID, Current: flow.Status}
	}

	next := flow.
		SetTimeoutAt(flow.TimeoutAt.Add(additional)).
		SetUpdatedAt(e.clock())
	if err := e.store.Put(ctx, next); err != nil {
		return nil, err
	}

	slog.Info("Flow timeout extended",
		log.FlowID(flowID),
		log.AgentID(agentID),
		slog.Duration("additional", additional))
	e.publish(events.TypeFlowTimeoutExtended, next)
	return next, nil
}
