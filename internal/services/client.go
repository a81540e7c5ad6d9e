package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Anand101094/buzz-app-server/internal/config"
	"github.com/Anand101094/buzz-app-server/internal/models"
)

// Client represents a single WebSocket connection with its own send goroutine
type Client struct {
	conn         *websocket.Conn
	send         chan []byte
	hub          *Hub
	connectionID string

	// roomID is the broadcast group this connection currently hears.
	// Mutated only under the hub's mutex.
	roomID string

	// Rate limiting
	messageCount int
	rateLimitMu  sync.Mutex
	lastReset    time.Time

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	closeMu sync.Mutex
}

// NewClient creates a new client instance
func NewClient(conn *websocket.Conn, hub *Hub, connectionID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		conn:         conn,
		send:         make(chan []byte, config.ClientSendBufferSize),
		hub:          hub,
		connectionID: connectionID,
		lastReset:    time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// ConnectionID returns the transport-assigned connection identifier.
func (c *Client) ConnectionID() string {
	return c.connectionID
}

// Start begins the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// writePump handles outgoing messages to the WebSocket connection. Close
// shuts the send channel rather than the socket, so queued messages (a
// kicked_out notification in particular) are flushed before the connection
// actually drops.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
		c.cancel()
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Channel closed and drained, connection is done
				return
			}

			writeCtx, cancel := context.WithTimeout(context.Background(), config.WriteTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()

			if err != nil {
				log.Printf("write error (conn=%s): %v", c.connectionID, err)
				c.hub.metrics.IncrementBroadcastErrors()
				return
			}
			c.hub.metrics.IncrementMessagesSent()

		case <-ticker.C:
			// Send ping to keep connection alive
			pingCtx, cancel := context.WithTimeout(context.Background(), config.WriteTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()

			if err != nil {
				log.Printf("ping error (conn=%s): %v", c.connectionID, err)
				return
			}
		}
	}
}

// readPump handles incoming messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	for {
		readCtx, cancel := context.WithTimeout(c.ctx, config.PongTimeout)
		_, message, err := c.conn.Read(readCtx)
		cancel()

		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.Printf("read error (conn=%s): %v", c.connectionID, err)
				c.hub.metrics.IncrementConnectionErrors()
			}
			return
		}

		// Rate limiting check
		if !c.checkRateLimit() {
			log.Printf("rate limit exceeded (conn=%s)", c.connectionID)
			c.hub.metrics.IncrementRateLimitViolations()

			errMsg := &models.WSMessage{
				Type: "error",
				Payload: map[string]string{
					"message": "Rate limit exceeded. Please slow down.",
				},
			}
			if data, err := json.Marshal(errMsg); err == nil {
				c.Send(data)
			}
			continue
		}

		// Forward message to hub for processing
		c.hub.inbound <- &ClientMessage{
			Client: c,
			Data:   message,
		}
	}
}

// checkRateLimit verifies the client hasn't exceeded message rate limits
func (c *Client) checkRateLimit() bool {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	now := time.Now()
	if now.Sub(c.lastReset) > config.RateLimitWindow {
		c.messageCount = 0
		c.lastReset = now
	}

	c.messageCount++
	return c.messageCount <= config.MaxMessagesPerSecond
}

// Send queues a message for sending to the client
func (c *Client) Send(message []byte) bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		// Channel full, client is too slow
		log.Printf("send buffer full, closing slow client (conn=%s)", c.connectionID)
		c.hub.metrics.IncrementBroadcastErrors()
		go c.Close()
		return false
	}
}

// Close stops accepting new messages and lets the write pump drain what is
// already queued before it drops the socket.
func (c *Client) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
}
