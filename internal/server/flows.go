package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/drover-io/drover/internal/engine"
	"github.com/drover-io/drover/pkg/api"
)

var (
	ErrInvalidJSON = errors.New("invalid JSON in request")
	ErrListFlows   = errors.New("failed to list flows")
	ErrQueryFlows  = errors.New("failed to query flows")
	ErrSweepFlows  = errors.New("failed to sweep flows")
)

func (s *Server) createFlow(c *gin.Context) {
	var req api.CreateFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	agentID := api.SanitizeID(req.AgentID)
	if agentID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "Valid agent ID is required",
			Status: http.StatusBadRequest,
		})
		return
	}

	timeout := engine.UseDefaultTimeout
	if req.TimeoutMS != nil {
		timeout = time.Duration(*req.TimeoutMS) * time.Millisecond
	}

	flow, err := s.engine.CreateFlow(
		c.Request.Context(), agentID, req.Payload, timeout,
	)
	if err != nil {
		s.flowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flow)
}

func (s *Server) getFlow(c *gin.Context) {
	flowID := api.FlowID(c.Param("flowID"))
	agentID := api.SanitizeID(api.AgentID(c.Query("agent_id")))

	flow, err := s.engine.GetFlow(c.Request.Context(), agentID, flowID)
	if err != nil {
		s.flowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (s *Server) listFlows(c *gin.Context) {
	agentID := api.SanitizeID(api.AgentID(c.Query("agent_id")))

	opts := engine.ListOptions{}
	for _, status := range c.QueryArray("status") {
		opts.Statuses = append(opts.Statuses, api.FlowStatus(status))
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Error:  fmt.Sprintf("Invalid limit: %s", raw),
				Status: http.StatusBadRequest,
			})
			return
		}
		opts.Limit = limit
	}

	flows, err := s.engine.ListAgentFlows(c.Request.Context(), agentID, opts)
	if err != nil {
		s.flowError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FlowsListResponse{
		Flows: flows,
		Count: len(flows),
	})
}

func (s *Server) queryFlows(c *gin.Context) {
	var req api.QueryFlowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	req.AgentID = api.SanitizeID(req.AgentID)
	flows, err := s.engine.QueryFlows(c.Request.Context(), &req)
	if err != nil {
		s.flowError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FlowsListResponse{
		Flows: flows,
		Count: len(flows),
	})
}

func (s *Server) resumeFlow(c *gin.Context) {
	var req api.ResumeFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	flow, err := s.engine.ResumeFlow(
		c.Request.Context(), api.SanitizeID(req.AgentID),
		api.FlowID(c.Param("flowID")), req.Input,
	)
	if err != nil {
		s.flowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (s *Server) completeFlow(c *gin.Context) {
	var req api.CompleteFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	flow, err := s.engine.CompleteFlow(
		c.Request.Context(), api.SanitizeID(req.AgentID),
		api.FlowID(c.Param("flowID")), req.FinalResponse,
	)
	if err != nil {
		s.flowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (s *Server) failFlow(c *gin.Context) {
	var req api.FailFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	flow, err := s.engine.FailFlow(
		c.Request.Context(), api.SanitizeID(req.AgentID),
		api.FlowID(c.Param("flowID")), req.Reason,
	)
	if err != nil {
		s.flowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (s *Server) extendTimeout(c *gin.Context) {
	var req api.ExtendTimeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	flow, err := s.engine.ExtendTimeout(
		c.Request.Context(), api.SanitizeID(req.AgentID),
		api.FlowID(c.Param("flowID")),
		time.Duration(req.AdditionalMS)*time.Millisecond,
	)
	if err != nil {
		s.flowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (s *Server) sweepNow(c *gin.Context) {
	count, err := s.engine.ProcessTimeouts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrSweepFlows, err),
			Status: http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, api.SweepResponse{
		TimedOut: count,
	})
}

// flowError maps engine errors onto HTTP responses. A rejected transition
// reports the flow's current status so the caller can reconcile
func (s *Server) flowError(c *gin.Context, err error) {
	var stateErr *engine.StateError
	switch {
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:      err.Error(),
			FlowStatus: stateErr.Current,
			Status:     http.StatusConflict,
		})
	case errors.Is(err, engine.ErrValidation):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
	case errors.Is(err, engine.ErrFlowNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusInternalServerError,
		})
	}
}
