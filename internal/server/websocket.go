package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/drover-io/drover/internal/events"
	"github.com/drover-io/drover/pkg/api"
	"github.com/drover-io/drover/pkg/log"
)

// Client represents a WebSocket client connection for event streaming.
// A client with a non-empty agentID only receives that agent's events
type Client struct {
	server   *Server
	conn     *websocket.Conn
	consumer events.Consumer
	agentID  api.AgentID
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	wsBufferSize   = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	client := &Client{
		server:   s,
		conn:     conn,
		consumer: s.hub.NewConsumer(),
		agentID:  api.AgentID(c.Query("agent_id")),
	}
	s.registerWebSocket(client)

	go client.run()
}

// Close terminates the client connection, unblocking its run loop
func (c *Client) Close() {
	_ = c.conn.Close()
}

func (c *Client) run() {
	defer func() {
		c.server.unregisterWebSocket(c)
		c.consumer.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	closed := make(chan struct{})
	go c.readUntilClosed(closed)

	for {
		select {
		case <-closed:
			return

		case event, ok := <-c.consumer.Receive():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.sendEventIfMatched(event) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

// readUntilClosed drains incoming frames so pong handling works and the
// run loop learns when the peer goes away
func (c *Client) readUntilClosed(closed chan struct{}) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			close(closed)
			return
		}
	}
}

func (c *Client) sendEventIfMatched(ev *events.FlowEvent) bool {
	if c.agentID != "" && ev.AgentID != c.agentID {
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(ev); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}
