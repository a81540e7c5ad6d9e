package models

import "encoding/json"

// WSMessage is the outbound envelope written to clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Envelope is the inbound envelope. Payload stays raw until the dispatcher
// knows which typed payload struct to decode it into.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client → Server message types
const (
	MsgTypeCreateRoom          = "create_room"
	MsgTypeJoinRoom            = "join_room"
	MsgTypeSendBuzzer          = "send_buzzer"
	MsgTypeResetBuzzers        = "reset_buzzers"
	MsgTypeKickPlayer          = "kick_player"
	MsgTypeFirstBuzzActivate   = "first_buzz_activate"
	MsgTypeFirstBuzzDeactivate = "first_buzz_deactivate"
)

// Server → Client message types. The two misspelled names are part of the
// wire protocol the deployed web client expects; do not fix them.
const (
	MsgTypeConnected         = "connected"
	MsgTypeRoomJoined        = "room_joined"
	MsgTypeInvalidRoom       = "invalid_room"
	MsgTypeNewUserConnection = "new_user_connection"
	MsgTypeBuzzerClicked     = "buzzer_clicked"
	MsgTypeBuzzerLockedBy    = "buzzer_locked_by"
	MsgTypeBuzzerReset       = "buzzer_reset"
	MsgTypeBuzzerUnlocked    = "buzzer_unlocked"
	MsgTypeHostDisconnected  = "host_disconected"
	MsgTypeUserDisconnected  = "user_disconected"
	MsgTypeKickedOut         = "kicked_out"
)

// RoomPayload covers inbound events that only reference a room.
type RoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

// JoinPayload is the create_room / join_room payload.
type JoinPayload struct {
	RoomID   string      `json:"roomId" validate:"required"`
	UserData Participant `json:"userData"`
}

// BuzzPayload is the send_buzzer payload. UserData carries the buzzing
// participant's snapshot including the client-side timestamp.
type BuzzPayload struct {
	RoomID   string      `json:"roomId" validate:"required"`
	UserData Participant `json:"userData"`
}

// KickPayload names the connection to remove from a room.
type KickPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	SocketID string `json:"socketId" validate:"required"`
}

// SocketPayload is used for messages addressed about a single connection
// (connected ack, buzzer_locked_by, kicked_out).
type SocketPayload struct {
	SocketID string `json:"socketId"`
}
