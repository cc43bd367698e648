// Package events publishes flow lifecycle events to in-process consumers,
// primarily the websocket streaming layer
package events

import (
	"time"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/topic"

	"github.com/drover-io/drover/pkg/api"
)

type (
	// Type identifies a flow lifecycle event
	Type string

	// FlowEvent is the envelope published for every successful flow
	// transition
	FlowEvent struct {
		OccurredAt time.Time      `json:"occurred_at"`
		Type       Type           `json:"type"`
		AgentID    api.AgentID    `json:"agent_id"`
		FlowID     api.FlowID     `json:"flow_id"`
		Status     api.FlowStatus `json:"status"`
	}

	// Hub fans flow events out to any number of consumers
	Hub struct {
		topic topic.Topic[*FlowEvent]
		prod  topic.Producer[*FlowEvent]
	}

	// Consumer receives flow events from the hub
	Consumer = topic.Consumer[*FlowEvent]
)

const (
	TypeFlowCreated         Type = "flow_created"
	TypeFlowWaiting         Type = "flow_waiting"
	TypeFlowResumed         Type = "flow_resumed"
	TypeFlowCompleted       Type = "flow_completed"
	TypeFlowFailed          Type = "flow_failed"
	TypeFlowTimeoutExtended Type = "flow_timeout_extended"
)

// NewHub creates a flow event hub
func NewHub() *Hub {
	t := caravan.NewTopic[*FlowEvent]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish delivers an event to all current consumers
func (h *Hub) Publish(ev *FlowEvent) {
	h.prod.Send() <- ev
}

// NewConsumer registers a new consumer on the hub
func (h *Hub) NewConsumer() Consumer {
	return h.topic.NewConsumer()
}

// Close shuts down the hub's producer
func (h *Hub) Close() {
	h.prod.Close()
}
