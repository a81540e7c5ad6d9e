package services

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/Anand101094/buzz-app-server/internal/models"
	"github.com/Anand101094/buzz-app-server/internal/security"
)

// Dispatcher decodes inbound envelopes into typed payloads, validates them,
// and drives the Registry and ConnIndex. Malformed or out-of-order events are
// dropped with a log line; nothing a client sends can take the room down.
type Dispatcher struct {
	registry *Registry
	index    *ConnIndex
	hub      *Hub
	validate *validator.Validate
}

func NewDispatcher(registry *Registry, index *ConnIndex, hub *Hub) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		index:    index,
		hub:      hub,
		validate: validator.New(),
	}
}

// HandleMessage routes one inbound event. Called from the hub's run loop, one
// event at a time.
func (d *Dispatcher) HandleMessage(connectionID string, data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("dropping malformed message (conn=%s): %v", connectionID, err)
		return
	}

	switch env.Type {
	case models.MsgTypeCreateRoom:
		d.handleCreateRoom(connectionID, env.Payload)
	case models.MsgTypeJoinRoom:
		d.handleJoinRoom(connectionID, env.Payload)
	case models.MsgTypeSendBuzzer:
		d.handleSendBuzzer(connectionID, env.Payload)
	case models.MsgTypeResetBuzzers:
		d.handleResetBuzzers(connectionID, env.Payload)
	case models.MsgTypeKickPlayer:
		d.handleKickPlayer(connectionID, env.Payload)
	case models.MsgTypeFirstBuzzActivate:
		d.handleFirstBuzz(connectionID, env.Payload, true)
	case models.MsgTypeFirstBuzzDeactivate:
		d.handleFirstBuzz(connectionID, env.Payload, false)
	default:
		log.Printf("unknown message type %q (conn=%s)", env.Type, connectionID)
	}
}

// HandleDisconnect resolves which room the dropped connection belonged to and
// removes the member. A host disconnect tears the whole room down.
func (d *Dispatcher) HandleDisconnect(connectionID string) {
	participant, ok := d.index.ResolveAndForget(connectionID)
	if !ok {
		// Connection never joined a room, or was already kicked.
		return
	}

	err := d.registry.RemoveConnection(participant.JoinedRoom, connectionID)
	if err != nil && !errors.Is(err, ErrRoomNotFound) && !errors.Is(err, ErrMemberNotFound) {
		log.Printf("disconnect cleanup failed (conn=%s): %v", connectionID, err)
	}
}

// decode unmarshals a payload into v and validates it.
func (d *Dispatcher) decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	return d.validate.Struct(v)
}

func (d *Dispatcher) handleCreateRoom(connectionID string, raw json.RawMessage) {
	var payload models.JoinPayload
	if err := d.decode(raw, &payload); err != nil {
		log.Printf("invalid create_room payload (conn=%s): %v", connectionID, err)
		return
	}

	name, roomID, err := d.sanitize(payload.UserData.Name, payload.RoomID)
	if err != nil {
		log.Printf("rejected create_room (conn=%s): %v", connectionID, err)
		return
	}

	participant := models.NewParticipant(connectionID, name, roomID)
	d.index.Register(connectionID, participant)
	d.hub.Join(roomID, connectionID)
	d.registry.CreateRoom(roomID, participant)
}

func (d *Dispatcher) handleJoinRoom(connectionID string, raw json.RawMessage) {
	var payload models.JoinPayload
	if err := d.decode(raw, &payload); err != nil {
		log.Printf("invalid join_room payload (conn=%s): %v", connectionID, err)
		return
	}

	name, roomID, err := d.sanitize(payload.UserData.Name, payload.RoomID)
	if err != nil {
		log.Printf("rejected join_room (conn=%s): %v", connectionID, err)
		return
	}

	participant := models.NewParticipant(connectionID, name, roomID)

	// Subscribe before the registry broadcasts the member list, so the
	// joining connection sees its own join.
	d.hub.Join(roomID, connectionID)

	if err := d.registry.JoinRoom(roomID, participant); err != nil {
		d.hub.Leave(roomID, connectionID)
		d.hub.SendToConnection(connectionID, &models.WSMessage{
			Type: models.MsgTypeInvalidRoom,
		})
		return
	}

	d.index.Register(connectionID, participant)
}

func (d *Dispatcher) handleSendBuzzer(connectionID string, raw json.RawMessage) {
	var payload models.BuzzPayload
	if err := d.decode(raw, &payload); err != nil {
		log.Printf("invalid send_buzzer payload (conn=%s): %v", connectionID, err)
		return
	}

	snapshot := payload.UserData
	d.registry.RecordBuzz(payload.RoomID, connectionID, &snapshot)
}

func (d *Dispatcher) handleResetBuzzers(connectionID string, raw json.RawMessage) {
	var payload models.RoomPayload
	if err := d.decode(raw, &payload); err != nil {
		log.Printf("invalid reset_buzzers payload (conn=%s): %v", connectionID, err)
		return
	}

	if err := d.registry.ResetBuzzers(payload.RoomID); err != nil {
		log.Printf("reset_buzzers ignored (room=%s): %v", payload.RoomID, err)
	}
}

func (d *Dispatcher) handleKickPlayer(connectionID string, raw json.RawMessage) {
	var payload models.KickPayload
	if err := d.decode(raw, &payload); err != nil {
		log.Printf("invalid kick_player payload (conn=%s): %v", connectionID, err)
		return
	}

	if err := d.registry.KickMember(payload.RoomID, payload.SocketID); err != nil {
		log.Printf("kick_player ignored (room=%s, target=%s): %v", payload.RoomID, payload.SocketID, err)
		return
	}

	// Member is out of the room; now drop the connection itself.
	d.index.Forget(payload.SocketID)
	d.hub.Leave(payload.RoomID, payload.SocketID)
	d.hub.CloseConnection(payload.SocketID)
}

func (d *Dispatcher) handleFirstBuzz(connectionID string, raw json.RawMessage, activate bool) {
	var payload models.RoomPayload
	if err := d.decode(raw, &payload); err != nil {
		log.Printf("invalid first_buzz payload (conn=%s): %v", connectionID, err)
		return
	}

	var err error
	if activate {
		err = d.registry.ArmFirstBuzz(payload.RoomID)
	} else {
		err = d.registry.DisarmFirstBuzz(payload.RoomID)
	}
	if err != nil {
		log.Printf("first_buzz toggle ignored (room=%s): %v", payload.RoomID, err)
	}
}

func (d *Dispatcher) sanitize(name, roomID string) (string, string, error) {
	cleanName, err := security.ValidateParticipantName(name)
	if err != nil {
		return "", "", err
	}
	if err := security.ValidateRoomID(roomID); err != nil {
		return "", "", err
	}
	return cleanName, roomID, nil
}
