package api

import (
	"encoding/json"
	"slices"
	"time"
)

type (
	// FlowStatus represents the current state of a flow
	FlowStatus string

	// Flow is one durable unit of agent work. The record is stored as a
	// single document addressed by (AgentID, ID) and mutated in place by
	// the engine on every transition
	Flow struct {
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
		TimeoutAt     time.Time       `json:"timeout_at"`
		Payload       json.RawMessage `json:"payload,omitempty"`
		Result        *FlowResult     `json:"result,omitempty"`
		FailureReason *FlowFailure    `json:"failure_reason,omitempty"`
		ResumeHistory []*ResumeEvent  `json:"resume_history,omitempty"`
		ID            FlowID          `json:"id"`
		AgentID       AgentID         `json:"agent_id"`
		Status        FlowStatus      `json:"status"`
	}

	// FlowResult holds the final output of a completed flow
	FlowResult struct {
		FinalResponse string  `json:"final_response"`
		CompletedBy   AgentID `json:"completed_by"`
	}

	// FlowFailure holds the cause of a failed flow and the actor that
	// triggered the failure (an agent, or the timeout sweeper)
	FlowFailure struct {
		Reason   string  `json:"reason"`
		FailedBy AgentID `json:"failed_by"`
	}

	// ResumeEvent records one resume input delivered to a flow
	ResumeEvent struct {
		ReceivedAt time.Time       `json:"received_at"`
		Input      json.RawMessage `json:"input,omitempty"`
		Actor      AgentID         `json:"actor"`
	}
)

const (
	FlowActive    FlowStatus = "active"
	FlowWaiting   FlowStatus = "waiting"
	FlowCompleted FlowStatus = "completed"
	FlowFailed    FlowStatus = "failed"
)

// FlowStatuses lists every valid flow status
var FlowStatuses = []FlowStatus{
	FlowActive, FlowWaiting, FlowCompleted, FlowFailed,
}

// Valid returns whether the status is one of the known flow statuses
func (s FlowStatus) Valid() bool {
	return slices.Contains(FlowStatuses, s)
}

// Terminal returns true for statuses that permit no further transitions
func (s FlowStatus) Terminal() bool {
	return s == FlowCompleted || s == FlowFailed
}

// SetStatus returns a new Flow with the updated status
func (f *Flow) SetStatus(s FlowStatus) *Flow {
	res := *f
	res.Status = s
	return &res
}

// SetUpdatedAt returns a new Flow with the last updated timestamp set
func (f *Flow) SetUpdatedAt(t time.Time) *Flow {
	res := *f
	res.UpdatedAt = t
	return &res
}

// SetTimeoutAt returns a new Flow with the deadline set
func (f *Flow) SetTimeoutAt(t time.Time) *Flow {
	res := *f
	res.TimeoutAt = t
	return &res
}

// SetPayload returns a new Flow with the opaque task payload set
func (f *Flow) SetPayload(p json.RawMessage) *Flow {
	res := *f
	res.Payload = p
	return &res
}

// SetResult returns a new Flow with the final result set
func (f *Flow) SetResult(r *FlowResult) *Flow {
	res := *f
	res.Result = r
	return &res
}

// SetFailureReason returns a new Flow with the failure reason set
func (f *Flow) SetFailureReason(r *FlowFailure) *Flow {
	res := *f
	res.FailureReason = r
	return &res
}

// AppendResume returns a new Flow with the resume event appended. The
// history slice is cloned so stored snapshots are never aliased
func (f *Flow) AppendResume(ev *ResumeEvent) *Flow {
	res := *f
	res.ResumeHistory = append(
		slices.Clone(f.ResumeHistory), ev,
	)
	return &res
}
