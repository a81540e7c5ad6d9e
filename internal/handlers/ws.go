package handlers

import (
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Anand101094/buzz-app-server/internal/models"
	"github.com/Anand101094/buzz-app-server/internal/services"
)

type WSHandler struct {
	hub           *services.Hub
	acceptOptions *websocket.AcceptOptions
}

func NewWSHandler(hub *services.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub: hub,
		acceptOptions: &websocket.AcceptOptions{
			OriginPatterns: allowedOrigins,
		},
	}
}

// HandleWebSocket upgrades the connection, assigns it an identifier, and
// hands it to the hub. The client learns its connection ID from the connected
// ack; join/buzz/reset events then arrive as messages on this socket.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.acceptOptions)
	if err != nil {
		log.Printf("websocket accept failed: %v", err)
		return
	}

	connectionID := uuid.New().String()
	client := services.NewClient(conn, h.hub, connectionID)

	h.hub.Register(client)
	client.Start()

	h.hub.SendToConnection(connectionID, &models.WSMessage{
		Type:    models.MsgTypeConnected,
		Payload: models.SocketPayload{SocketID: connectionID},
	})
}
