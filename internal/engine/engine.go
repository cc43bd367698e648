package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/drover-io/drover/internal/archive"
	"github.com/drover-io/drover/internal/config"
	"github.com/drover-io/drover/internal/events"
	"github.com/drover-io/drover/internal/store"
	"github.com/drover-io/drover/pkg/api"
	"github.com/drover-io/drover/pkg/log"
)

type (
	// Engine is the sole authority for flow state transitions. It is
	// constructed once at process start and passed explicitly to every
	// caller (HTTP adapter, sweeper)
	Engine struct {
		store    store.Store
		hub      *events.Hub
		archiver archive.Archiver
		config   *config.Config
		clock    Clock
		locks    sync.Map // map[api.FlowID]*sync.Mutex
	}

	// Dependencies are the collaborators wired into a new Engine. Hub and
	// Archiver are optional; Clock defaults to the system clock
	Dependencies struct {
		Store    store.Store
		Hub      *events.Hub
		Archiver archive.Archiver
		Clock    Clock
	}

	// Clock provides the current time for deadline decisions
	Clock func() time.Time

	// StateError reports a transition rejected because the flow's current
	// status is not in the operation's required source-state set
	StateError struct {
		FlowID  api.FlowID
		Current api.FlowStatus
	}

	mutateFunc func(*api.Flow) (*api.Flow, error)
)

var (
	// ErrValidation indicates a required identifier or field is missing
	// or malformed; the caller must fix the request
	ErrValidation = errors.New("validation failed")

	// ErrFlowNotFound indicates the flow does not exist for the agent
	ErrFlowNotFound = errors.New("flow not found")

	// ErrInvalidState indicates the flow's current status rejected the
	// requested transition
	ErrInvalidState = errors.New("invalid flow state")
)

// UseDefaultTimeout requests the configured default flow timeout at
// creation. An explicit zero duration is honored as an already-due deadline
const UseDefaultTimeout = time.Duration(-1)

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: flow %s is %s",
		ErrInvalidState, e.FlowID, e.Current)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// New creates a flow engine with the provided configuration and
// collaborators
func New(cfg *config.Config, deps Dependencies) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		store:    deps.Store,
		hub:      deps.Hub,
		archiver: deps.Archiver,
		config:   cfg,
		clock:    clock,
	}
}

// Now returns the current wall time from the engine's configured clock
func (e *Engine) Now() time.Time {
	return e.clock()
}

// applyTransition performs the precondition-checked read-modify-write that
// backs every status change: re-read, verify the current status permits the
// target, apply the mutation, persist, then publish
func (e *Engine) applyTransition(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
	target api.FlowStatus, evType events.Type, fn mutateFunc,
) (*api.Flow, error) {
	if err := requireIDs(agentID, flowID); err != nil {
		return nil, err
	}

	unlock := e.lockFlow(flowID)
	defer unlock()

	flow, err := e.fetch(ctx, agentID, flowID)
	if err != nil {
		return nil, err
	}

	if !flowTransitions.CanTransition(flow.Status, target) {
		return nil, &StateError{FlowID: flowID, Current: flow.Status}
	}

	next := flow.SetStatus(target).SetUpdatedAt(e.clock())
	if fn != nil {
		next, err = fn(next)
		if err != nil {
			return nil, err
		}
	}

	if err := e.store.Put(ctx, next); err != nil {
		return nil, err
	}

	e.publish(evType, next)
	e.archiveTerminal(ctx, next)
	return next, nil
}

// lockFlow serializes transitions per flow so that two concurrent attempts
// cannot both pass the precondition check before either write lands
func (e *Engine) lockFlow(flowID api.FlowID) func() {
	v, _ := e.locks.LoadOrStore(flowID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) fetch(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
) (*api.Flow, error) {
	flow, err := e.store.Get(ctx, agentID, flowID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
		}
		return nil, err
	}
	return flow, nil
}

func (e *Engine) publish(evType events.Type, flow *api.Flow) {
	if e.hub == nil {
		return
	}
	e.hub.Publish(&events.FlowEvent{
		Type:       evType,
		AgentID:    flow.AgentID,
		FlowID:     flow.ID,
		Status:     flow.Status,
		OccurredAt: e.clock(),
	})
}

// archiveTerminal copies terminal records to the archive bucket. Best
// effort: the store copy is authoritative and a failed archive write never
// fails the transition
func (e *Engine) archiveTerminal(ctx context.Context, flow *api.Flow) {
	if e.archiver == nil || !flow.Status.Terminal() {
		return
	}
	if err := e.archiver.Put(ctx, flow); err != nil {
		slog.Warn("Failed to archive terminal flow",
			log.FlowID(flow.ID),
			log.AgentID(flow.AgentID),
			log.Error(err))
	}
}

// requireAgentID rejects empty or malformed agent IDs. IDs containing
// characters outside the sanitized alphabet would make the store's
// separator-based keys ambiguous
func requireAgentID(agentID api.AgentID) error {
	if agentID == "" {
		return fmt.Errorf("%w: agent ID is required", ErrValidation)
	}
	if api.InvalidIDChars.MatchString(string(agentID)) {
		return fmt.Errorf("%w: agent ID %q contains invalid characters",
			ErrValidation, agentID)
	}
	return nil
}

func requireIDs(agentID api.AgentID, flowID api.FlowID) error {
	if err := requireAgentID(agentID); err != nil {
		return err
	}
	if flowID == "" {
		return fmt.Errorf("%w: flow ID is required", ErrValidation)
	}
	if api.InvalidIDChars.MatchString(string(flowID)) {
		return fmt.Errorf("%w: flow ID %q contains invalid characters",
			ErrValidation, flowID)
	}
	return nil
}
