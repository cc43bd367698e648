package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/drover-io/drover/internal/engine"
	"github.com/drover-io/drover/internal/events"
	"github.com/drover-io/drover/internal/util"
)

// Pinger reports storage connectivity for health checks
type Pinger interface {
	Ping(context.Context) error
}

// Server implements the HTTP API for the flow engine
type Server struct {
	engine  *engine.Engine
	hub     *events.Hub
	pinger  Pinger
	sockets util.Set[*Client]
	mu      sync.Mutex
}

// NewServer creates a new HTTP API server
func NewServer(eng *engine.Engine, hub *events.Hub, pinger Pinger) *Server {
	return &Server{
		engine:  eng,
		hub:     hub,
		pinger:  pinger,
		sockets: util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	// Engine endpoints
	eng := router.Group("/engine")
	{
		// Flow endpoints
		eng.GET("/flow", s.listFlows)
		eng.POST("/flow", s.createFlow)
		eng.POST("/flow/query", s.queryFlows)
		eng.GET("/flow/:flowID", s.getFlow)
		eng.POST("/flow/:flowID/resume", s.resumeFlow)
		eng.POST("/flow/:flowID/complete", s.completeFlow)
		eng.POST("/flow/:flowID/fail", s.failFlow)
		eng.POST("/flow/:flowID/extend", s.extendTimeout)

		// Manual timeout sweep
		eng.POST("/sweep", s.sweepNow)

		// WebSocket
		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
