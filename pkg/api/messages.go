package api

import "encoding/json"

type (
	// CreateFlowRequest contains parameters for starting a new flow. A nil
	// TimeoutMS selects the configured default; an explicit zero creates a
	// flow whose deadline is already due
	CreateFlowRequest struct {
		Payload   json.RawMessage `json:"payload,omitempty"`
		TimeoutMS *int64          `json:"timeout_ms,omitempty"`
		AgentID   AgentID         `json:"agent_id"`
	}

	// ResumeFlowRequest delivers an opaque resume input to a flow
	ResumeFlowRequest struct {
		Input   json.RawMessage `json:"input,omitempty"`
		AgentID AgentID         `json:"agent_id"`
	}

	// CompleteFlowRequest records the final response for a flow
	CompleteFlowRequest struct {
		AgentID       AgentID `json:"agent_id"`
		FinalResponse string  `json:"final_response"`
	}

	// FailFlowRequest records a failure reason for a flow
	FailFlowRequest struct {
		AgentID AgentID `json:"agent_id"`
		Reason  string  `json:"reason"`
	}

	// ExtendTimeoutRequest raises a flow's deadline by a duration
	ExtendTimeoutRequest struct {
		AgentID      AgentID `json:"agent_id"`
		AdditionalMS int64   `json:"additional_ms"`
	}

	// PayloadMatch selects flows whose payload matches a JSON path. When
	// Value is empty, any flow where the path resolves is a match
	PayloadMatch struct {
		Path  string `json:"path"`
		Value string `json:"value,omitempty"`
	}

	// QueryFlowsRequest filters an agent's flows by status and payload
	QueryFlowsRequest struct {
		PayloadMatch *PayloadMatch `json:"payload_match,omitempty"`
		AgentID      AgentID       `json:"agent_id"`
		Statuses     []FlowStatus  `json:"statuses,omitempty"`
		Limit        int           `json:"limit,omitempty"`
	}

	// FlowsListResponse contains a list of flows, most recent first
	FlowsListResponse struct {
		Flows []*Flow `json:"flows"`
		Count int     `json:"count"`
	}

	// SweepResponse reports the outcome of one timeout sweep
	SweepResponse struct {
		TimedOut int `json:"timed_out"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Status  string `json:"status"`
		Error   string `json:"error,omitempty"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error      string     `json:"error"`
		FlowStatus FlowStatus `json:"flow_status,omitempty"`
		Status     int        `json:"status,omitempty"`
	}
)
