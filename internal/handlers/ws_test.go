package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anand101094/buzz-app-server/internal/handlers"
	"github.com/Anand101094/buzz-app-server/internal/models"
	"github.com/Anand101094/buzz-app-server/internal/services"
)

// newGameServer wires the full stack the way main does and serves it from an
// httptest server.
func newGameServer(t *testing.T) *httptest.Server {
	t.Helper()

	metrics := services.NewMetrics()
	hub := services.NewHub(metrics)
	registry := services.NewRegistry(hub, metrics)
	index := services.NewConnIndex()
	dispatcher := services.NewDispatcher(registry, index, hub)
	hub.SetHandler(dispatcher)
	go hub.Run()

	wsHandler := handlers.NewWSHandler(hub, []string{"*"})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// wsClient is a test WebSocket client that records everything the server
// sends.
type wsClient struct {
	conn     *websocket.Conn
	socketID string

	mu       sync.RWMutex
	messages []models.WSMessage
}

func dialClient(t *testing.T, server *httptest.Server) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)

	c := &wsClient{conn: conn}
	go c.receive()
	t.Cleanup(c.close)

	// Every connection starts with its identifier ack.
	ack := c.waitForType(t, models.MsgTypeConnected, 2*time.Second)
	require.NotNil(t, ack, "no connected ack received")
	payload, ok := ack.Payload.(map[string]interface{})
	require.True(t, ok)
	c.socketID, _ = payload["socketId"].(string)
	require.NotEmpty(t, c.socketID)

	return c
}

func (c *wsClient) receive() {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, data, err := c.conn.Read(ctx)
		cancel()
		if err != nil {
			return
		}

		var msg models.WSMessage
		if err := json.Unmarshal(data, &msg); err == nil {
			c.mu.Lock()
			c.messages = append(c.messages, msg)
			c.mu.Unlock()
		}
	}
}

func (c *wsClient) send(t *testing.T, msgType string, payload map[string]any) {
	t.Helper()

	data, err := json.Marshal(map[string]any{"type": msgType, "payload": payload})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.conn.Write(ctx, websocket.MessageText, data))
}

// waitForType polls for the first recorded message of the given type.
func (c *wsClient) waitForType(t *testing.T, msgType string, timeout time.Duration) *models.WSMessage {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mu.RLock()
		for i := range c.messages {
			if c.messages[i].Type == msgType {
				msg := c.messages[i]
				c.mu.RUnlock()
				return &msg
			}
		}
		c.mu.RUnlock()
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (c *wsClient) countType(msgType string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for i := range c.messages {
		if c.messages[i].Type == msgType {
			n++
		}
	}
	return n
}

func (c *wsClient) clear() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}

func (c *wsClient) close() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// memberIDs extracts the userId column from a broadcast member list payload.
func memberIDs(t *testing.T, msg *models.WSMessage) []string {
	t.Helper()

	list, ok := msg.Payload.([]interface{})
	require.True(t, ok, "payload is not a member list")

	ids := make([]string, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]interface{})
		require.True(t, ok)
		id, _ := m["userId"].(string)
		ids = append(ids, id)
	}
	return ids
}

func TestWebSocket_JoinFlow(t *testing.T) {
	server := newGameServer(t)

	host := dialClient(t, server)
	host.send(t, models.MsgTypeCreateRoom, map[string]any{
		"roomId":   "100",
		"userData": map[string]any{"userName": "Hannah"},
	})

	alice := dialClient(t, server)
	alice.send(t, models.MsgTypeJoinRoom, map[string]any{
		"roomId":   "100",
		"userData": map[string]any{"userName": "Alice"},
	})

	require.NotNil(t, alice.waitForType(t, models.MsgTypeRoomJoined, 2*time.Second))

	joined := host.waitForType(t, models.MsgTypeNewUserConnection, 2*time.Second)
	require.NotNil(t, joined)
	assert.Equal(t, []string{host.socketID, alice.socketID}, memberIDs(t, joined))

	t.Run("strict join of unknown room is rejected", func(t *testing.T) {
		stranger := dialClient(t, server)
		stranger.send(t, models.MsgTypeJoinRoom, map[string]any{
			"roomId":   "77777",
			"userData": map[string]any{"userName": "Strider"},
		})

		require.NotNil(t, stranger.waitForType(t, models.MsgTypeInvalidRoom, 2*time.Second))
		assert.Nil(t, stranger.waitForType(t, models.MsgTypeRoomJoined, 200*time.Millisecond))
	})
}

func TestWebSocket_BuzzArbitration(t *testing.T) {
	server := newGameServer(t)

	host := dialClient(t, server)
	host.send(t, models.MsgTypeCreateRoom, map[string]any{
		"roomId":   "200",
		"userData": map[string]any{"userName": "Hannah"},
	})

	alice := dialClient(t, server)
	alice.send(t, models.MsgTypeJoinRoom, map[string]any{
		"roomId":   "200",
		"userData": map[string]any{"userName": "Alice"},
	})
	require.NotNil(t, alice.waitForType(t, models.MsgTypeRoomJoined, 2*time.Second))

	bob := dialClient(t, server)
	bob.send(t, models.MsgTypeJoinRoom, map[string]any{
		"roomId":   "200",
		"userData": map[string]any{"userName": "Bob"},
	})
	require.NotNil(t, bob.waitForType(t, models.MsgTypeRoomJoined, 2*time.Second))

	host.send(t, models.MsgTypeFirstBuzzActivate, map[string]any{"roomId": "200"})
	// Arming is silent (no ack), and the activate and the buzz travel on
	// different sockets, so give the server a moment to process the activate
	// before the buzz arrives. On a single-CPU host the buzz otherwise wins
	// the race every time.
	time.Sleep(100 * time.Millisecond)

	alice.send(t, models.MsgTypeSendBuzzer, map[string]any{
		"roomId":   "200",
		"userData": map[string]any{"userName": "Alice", "timeStamp": 1700000000111},
	})

	locked := host.waitForType(t, models.MsgTypeBuzzerLockedBy, 2*time.Second)
	require.NotNil(t, locked)
	payload, ok := locked.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, alice.socketID, payload["socketId"])

	require.NotNil(t, host.waitForType(t, models.MsgTypeBuzzerClicked, 2*time.Second))
	require.NotNil(t, bob.waitForType(t, models.MsgTypeBuzzerClicked, 2*time.Second))

	// The room is locked: Bob's buzz changes nothing.
	host.clear()
	bob.send(t, models.MsgTypeSendBuzzer, map[string]any{
		"roomId":   "200",
		"userData": map[string]any{"userName": "Bob", "timeStamp": 1700000000222},
	})
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, host.countType(models.MsgTypeBuzzerClicked))
	assert.Zero(t, host.countType(models.MsgTypeBuzzerLockedBy))

	// Reset re-arms the room.
	host.send(t, models.MsgTypeResetBuzzers, map[string]any{"roomId": "200"})
	require.NotNil(t, alice.waitForType(t, models.MsgTypeBuzzerReset, 2*time.Second))
	require.NotNil(t, alice.waitForType(t, models.MsgTypeBuzzerUnlocked, 2*time.Second))

	host.clear()
	bob.send(t, models.MsgTypeSendBuzzer, map[string]any{
		"roomId":   "200",
		"userData": map[string]any{"userName": "Bob", "timeStamp": 1700000000333},
	})
	locked = host.waitForType(t, models.MsgTypeBuzzerLockedBy, 2*time.Second)
	require.NotNil(t, locked)
	payload, ok = locked.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, bob.socketID, payload["socketId"])
}

func TestWebSocket_KickPlayer(t *testing.T) {
	server := newGameServer(t)

	host := dialClient(t, server)
	host.send(t, models.MsgTypeCreateRoom, map[string]any{
		"roomId":   "300",
		"userData": map[string]any{"userName": "Hannah"},
	})

	alice := dialClient(t, server)
	alice.send(t, models.MsgTypeJoinRoom, map[string]any{
		"roomId":   "300",
		"userData": map[string]any{"userName": "Alice"},
	})
	require.NotNil(t, alice.waitForType(t, models.MsgTypeRoomJoined, 2*time.Second))

	host.send(t, models.MsgTypeKickPlayer, map[string]any{
		"roomId":   "300",
		"socketId": alice.socketID,
	})

	kicked := alice.waitForType(t, models.MsgTypeKickedOut, 2*time.Second)
	require.NotNil(t, kicked)
	payload, ok := kicked.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, alice.socketID, payload["socketId"])
}

func TestWebSocket_HostDisconnect(t *testing.T) {
	server := newGameServer(t)

	host := dialClient(t, server)
	host.send(t, models.MsgTypeCreateRoom, map[string]any{
		"roomId":   "400",
		"userData": map[string]any{"userName": "Hannah"},
	})

	alice := dialClient(t, server)
	alice.send(t, models.MsgTypeJoinRoom, map[string]any{
		"roomId":   "400",
		"userData": map[string]any{"userName": "Alice"},
	})
	require.NotNil(t, alice.waitForType(t, models.MsgTypeRoomJoined, 2*time.Second))

	host.close()

	require.NotNil(t, alice.waitForType(t, models.MsgTypeHostDisconnected, 2*time.Second))

	// The room is gone: a strict join must be rejected now.
	carol := dialClient(t, server)
	carol.send(t, models.MsgTypeJoinRoom, map[string]any{
		"roomId":   "400",
		"userData": map[string]any{"userName": "Carol"},
	})
	require.NotNil(t, carol.waitForType(t, models.MsgTypeInvalidRoom, 2*time.Second))
}

func TestWebSocket_UserDisconnect(t *testing.T) {
	server := newGameServer(t)

	host := dialClient(t, server)
	host.send(t, models.MsgTypeCreateRoom, map[string]any{
		"roomId":   "500",
		"userData": map[string]any{"userName": "Hannah"},
	})

	alice := dialClient(t, server)
	alice.send(t, models.MsgTypeJoinRoom, map[string]any{
		"roomId":   "500",
		"userData": map[string]any{"userName": "Alice"},
	})
	require.NotNil(t, host.waitForType(t, models.MsgTypeNewUserConnection, 2*time.Second))

	host.clear()
	alice.close()

	left := host.waitForType(t, models.MsgTypeUserDisconnected, 2*time.Second)
	require.NotNil(t, left)
	assert.Equal(t, []string{host.socketID}, memberIDs(t, left))
}
