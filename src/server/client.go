package server

import (
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"candle-relay/src/interfaces"
	"candle-relay/src/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	errSendBufferFull  = errors.New("send buffer full")
	errHeartbeatMissed = errors.New("missed heartbeats")
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	ID   string
	hub  *Hub
	conn interfaces.IWSConn
	send chan *models.MOutbound
	ping chan struct{}

	missedBeats atomic.Int32

	// sub is the interest set as last requested by this connection. Only
	// readPump touches it; the hub keeps its own copy.
	sub Subscription
}

// -----------------------------------------------------------------------------

// NewClient wraps a connection. Call Serve to attach it to the hub.
func NewClient(hub *Hub, conn interfaces.IWSConn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan *models.MOutbound, hub.opts.SendBuffer),
		ping: make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------

// Serve registers the client with a wildcard subscription and starts the
// pumps. It returns immediately.
func (c *Client) Serve() {
	c.hub.Attach(c, c.sub)
	go c.writePump()
	go c.readPump()
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c)
		c.conn.Close()
		c.hub.Logger.Info("Client %s disconnected", c.ID)
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageBytes)
	c.conn.SetPongHandler(func(string) error {
		c.missedBeats.Store(0)
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			return
		}
		c.missedBeats.Store(0)
		c.handleMessage(message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Write error for client %s: %v", c.ID, err)
				return
			}

		case <-c.ping:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (c *Client) handleMessage(message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.hub.Logger.Debug("Ignoring malformed command from %s: %v", c.ID, err)
		return
	}

	switch strings.ToLower(cmd.Type) {
	case models.CommandSubscribe:
		c.sub = NewSubscription(cmd.Symbols)
		c.hub.Resubscribe(c, c.sub)

	case models.CommandUnsubscribe:
		c.sub = c.sub.Without(cmd.Symbols)
		c.hub.Resubscribe(c, c.sub)

	case models.CommandGetCandles, models.CommandHistoryRequest:
		limit := cmd.Limit
		if limit == 0 {
			limit = c.hub.opts.DefaultHistoryLimit
		}
		if err := c.hub.SendHistory(c, cmd.Symbol, cmd.Timeframe, limit); err != nil {
			c.hub.Logger.Debug("History request from %s rejected: %v", c.ID, err)
		}

	default:
		c.hub.Logger.Debug("Ignoring unknown command %q from %s", cmd.Type, c.ID)
	}
}
