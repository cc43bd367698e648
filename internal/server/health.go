package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/drover-io/drover"
	"github.com/drover-io/drover/pkg/api"
)

const (
	healthOK       = "healthy"
	healthDegraded = "degraded"
)

func (s *Server) handleHealth(c *gin.Context) {
	res := api.HealthResponse{
		Service: app.Name,
		Status:  healthOK,
	}

	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request.Context()); err != nil {
			res.Status = healthDegraded
			res.Error = err.Error()
			c.JSON(http.StatusServiceUnavailable, res)
			return
		}
	}

	c.JSON(http.StatusOK, res)
}
