// Package store persists flow records in a key-value document store. The
// store is pure CRUD; all business rules live in the engine. Writes are
// full-document overwrites with last-writer-wins semantics
package store

import (
	"context"
	"errors"

	"github.com/drover-io/drover/pkg/api"
)

// Store is the persistence contract required by the flow engine. Records
// are addressed by the (agent, flow) pair; a flow belonging to a different
// agent is indistinguishable from a missing one
type Store interface {
	// Get retrieves a flow record scoped to the owning agent
	Get(ctx context.Context, agentID api.AgentID, flowID api.FlowID) (
		*api.Flow, error)

	// Put persists a flow record, overwriting any previous version
	Put(ctx context.Context, flow *api.Flow) error

	// List returns all flow records for an agent, most recent first
	List(ctx context.Context, agentID api.AgentID) ([]*api.Flow, error)

	// ListNonTerminal returns all non-terminal flow records across agents.
	// Used only by the timeout sweep
	ListNonTerminal(ctx context.Context) ([]*api.Flow, error)

	// Close releases the store's underlying resources
	Close() error
}

var (
	// ErrNotFound is returned when a flow does not exist for an agent
	ErrNotFound = errors.New("flow record not found")

	// ErrStorage wraps underlying persistence failures
	ErrStorage = errors.New("flow storage failure")
)
