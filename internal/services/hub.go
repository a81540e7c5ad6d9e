package services

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/Anand101094/buzz-app-server/internal/config"
	"github.com/Anand101094/buzz-app-server/internal/models"
)

// EventHandler consumes decoded transport events. The hub's run loop invokes
// it from a single goroutine, so every inbound event and disconnect is
// processed one at a time: "first processed" is a total order.
type EventHandler interface {
	HandleMessage(connectionID string, data []byte)
	HandleDisconnect(connectionID string)
}

// Hub owns the live connections and the per-room broadcast groups. Room
// membership of a connection (which channel it hears) is tracked here;
// game-level membership lives in the Registry.
type Hub struct {
	// Room connections: roomId -> set of clients
	rooms map[string]map[*Client]bool

	// Connection ID to client mapping
	byConn map[string]*Client

	// Unregister connection (disconnect path)
	unregister chan *Client

	// Inbound client messages, drained by the run loop
	inbound chan *ClientMessage

	handler EventHandler
	metrics *Metrics

	mu sync.RWMutex
}

// ClientMessage represents a message received from a client
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub(metrics *Metrics) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		byConn:     make(map[string]*Client),
		unregister: make(chan *Client, config.HubUnregisterBufferSize),
		inbound:    make(chan *ClientMessage, config.HubInboundBufferSize),
		metrics:    metrics,
	}
}

// SetHandler wires the event handler. Must be called before Run.
func (h *Hub) SetHandler(handler EventHandler) {
	h.handler = handler
}

// Run drains inbound messages and disconnects on one goroutine.
func (h *Hub) Run() {
	for {
		select {
		case msg := <-h.inbound:
			h.metrics.IncrementMessagesReceived()
			h.handler.HandleMessage(msg.Client.connectionID, msg.Data)

		case client := <-h.unregister:
			if h.removeClient(client) {
				h.handler.HandleDisconnect(client.connectionID)
			}
		}
	}
}

// Register tracks a freshly accepted connection. Called synchronously from
// the HTTP handler before the client's pumps start, so the connection is
// addressable by the time its first message reaches the run loop.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.byConn[client.connectionID] = client
	h.metrics.IncrementConnections()
	log.Printf("connection registered: %s (total: %d)", client.connectionID, len(h.byConn))
}

// Unregister queues a disconnect for the run loop.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// removeClient drops the client from every room group and the connection map.
// Returns false if the client was already gone (duplicate unregister).
func (h *Hub) removeClient(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.byConn[client.connectionID]; !ok {
		return false
	}
	delete(h.byConn, client.connectionID)

	// roomID only remembers the latest subscription, and a rejected join or
	// a room switch can leave the client in an older group with roomID
	// already cleared. Sweep every group so a dead client never lingers in
	// a broadcast set.
	for roomID, clients := range h.rooms {
		if clients[client] {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	client.roomID = ""

	client.Close()
	h.metrics.DecrementConnections()
	return true
}

// Join subscribes a connection to a room's broadcast group.
func (h *Hub) Join(roomID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.byConn[connectionID]
	if !ok {
		return
	}

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.roomID = roomID
}

// Leave unsubscribes a connection from a room's broadcast group.
func (h *Hub) Leave(roomID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.byConn[connectionID]
	if !ok {
		return
	}

	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	client.roomID = ""
}

// BroadcastToRoom delivers a message to every connection subscribed to the
// room. Fan-out goes through each client's buffered send channel, so a slow
// client never blocks the caller.
func (h *Hub) BroadcastToRoom(roomID string, msg *models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling message: %v", err)
		h.metrics.IncrementBroadcastErrors()
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.Send(data)
	}
}

// SendToConnection delivers a message to a single connection.
func (h *Hub) SendToConnection(connectionID string, msg *models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	client, ok := h.byConn[connectionID]
	h.mu.RUnlock()

	if ok {
		client.Send(data)
	}
}

// CloseConnection forcibly drops a connection (kick).
func (h *Hub) CloseConnection(connectionID string) {
	h.mu.RLock()
	client, ok := h.byConn[connectionID]
	h.mu.RUnlock()

	if ok {
		client.Close()
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byConn)
}
