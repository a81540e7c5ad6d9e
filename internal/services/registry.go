package services

import (
	"log"
	"sync"
	"time"

	"github.com/Anand101094/buzz-app-server/internal/models"
)

// Broadcaster is the registry's outbound port: room-wide broadcasts and
// single-connection sends. The hub implements it; tests substitute a
// recording fake.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msg *models.WSMessage)
	SendToConnection(connectionID string, msg *models.WSMessage)
}

// Registry owns every room in the process. All mutating operations take the
// registry lock for their full duration, so each operation is atomic with
// respect to the others and the broadcasts it emits are enqueued in
// processing order. That processing order is what decides buzz ties.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*models.Room
	broadcaster Broadcaster
	metrics     *Metrics
}

func NewRegistry(broadcaster Broadcaster, metrics *Metrics) *Registry {
	return &Registry{
		rooms:       make(map[string]*models.Room),
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

// CreateRoom creates a room with the given participant as its sole member and
// host. If the room already exists the call degrades to a join, so a creator
// racing a stale room ID never fails. Creation itself is silent; the creator
// learns the member list like everyone else, on the first join broadcast.
func (r *Registry) CreateRoom(roomID string, participant *models.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		participant.Host = true
		r.rooms[roomID] = models.NewRoom(roomID, participant)
		r.metrics.IncrementRooms()
		log.Printf("room %s created by %s (%s)", roomID, participant.Name, participant.ConnectionID)
		return
	}

	room.AddMember(participant)
	r.broadcaster.BroadcastToRoom(roomID, &models.WSMessage{
		Type:    models.MsgTypeNewUserConnection,
		Payload: room.MemberSnapshot(),
	})
}

// JoinRoom adds a participant to an existing room and broadcasts the updated
// member list. Joining an unknown room returns ErrRoomNotFound and changes
// nothing; the caller alone is told via invalid_room. A re-join with the same
// connection ID replaces the stale record instead of duplicating it.
func (r *Registry) JoinRoom(roomID string, participant *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	room.AddMember(participant)
	r.broadcaster.SendToConnection(participant.ConnectionID, &models.WSMessage{
		Type: models.MsgTypeRoomJoined,
	})
	r.broadcaster.BroadcastToRoom(roomID, &models.WSMessage{
		Type:    models.MsgTypeNewUserConnection,
		Payload: room.MemberSnapshot(),
	})
	return nil
}

// RecordBuzz applies a buzz from the given connection. Buzzes against a
// missing room, a locked room, or from a non-member are ignored. The first
// buzz processed while the room is armed takes the lock and is announced as
// the winner; ordering is decided by lock acquisition here, never by the
// client-supplied timestamp.
func (r *Registry) RecordBuzz(roomID, connectionID string, snapshot *models.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || room.Locked {
		return
	}

	idx := room.MemberIndex(connectionID)
	if idx == -1 {
		return
	}

	if room.FirstBuzz {
		room.Locked = true
		r.broadcaster.BroadcastToRoom(roomID, &models.WSMessage{
			Type:    models.MsgTypeBuzzerLockedBy,
			Payload: models.SocketPayload{SocketID: connectionID},
		})
	}

	snapshot.ConnectionID = connectionID
	snapshot.JoinedRoom = roomID
	snapshot.Host = room.Members[idx].Host
	if snapshot.BuzzedAt == nil {
		now := time.Now().UnixMilli()
		snapshot.BuzzedAt = &now
	}
	room.Members[idx] = snapshot

	r.broadcaster.BroadcastToRoom(roomID, &models.WSMessage{
		Type:    models.MsgTypeBuzzerClicked,
		Payload: room.MemberSnapshot(),
	})
}

// ResetBuzzers clears every member's buzz timestamp and releases the lock.
// Arming state survives, so the next buzz after a reset locks again.
// Idempotent: resetting an already clear room re-broadcasts the same state.
func (r *Registry) ResetBuzzers(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	room.ClearBuzzes()
	r.broadcaster.BroadcastToRoom(roomID, &models.WSMessage{
		Type:    models.MsgTypeBuzzerReset,
		Payload: room.MemberSnapshot(),
	})
	if room.FirstBuzz {
		r.broadcaster.BroadcastToRoom(roomID, &models.WSMessage{
			Type: models.MsgTypeBuzzerUnlocked,
		})
	}
	return nil
}

// ArmFirstBuzz turns on first-buzz arbitration. Silent state change: the host
// UI flips locally and other members only notice through lock notifications.
func (r *Registry) ArmFirstBuzz(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	room.FirstBuzz = true
	return nil
}

// DisarmFirstBuzz turns arbitration off and releases any lock it held.
func (r *Registry) DisarmFirstBuzz(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	room.FirstBuzz = false
	room.Locked = false
	r.broadcaster.BroadcastToRoom(roomID, &models.WSMessage{
		Type: models.MsgTypeBuzzerUnlocked,
	})
	return nil
}

// KickMember removes a member and tells that connection alone it was kicked.
// The transport is responsible for actually dropping the connection
// afterwards. Kicking a connection that already left is a no-op signalled by
// ErrMemberNotFound.
func (r *Registry) KickMember(roomID, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	if removed := room.RemoveMember(connectionID); removed == nil {
		return ErrMemberNotFound
	}

	r.broadcaster.SendToConnection(connectionID, &models.WSMessage{
		Type:    models.MsgTypeKickedOut,
		Payload: models.SocketPayload{SocketID: connectionID},
	})
	log.Printf("kicked %s from room %s", connectionID, roomID)
	return nil
}

// RemoveConnection applies a disconnect to a room. A departing host destroys
// the room atomically with this call: remaining members get host_disconected
// and the room ID becomes unknown to the registry. A departing non-host just
// shrinks the member list.
func (r *Registry) RemoveConnection(roomID, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	removed := room.RemoveMember(connectionID)
	if removed == nil {
		return ErrMemberNotFound
	}

	if removed.Host {
		r.broadcaster.BroadcastToRoom(roomID, &models.WSMessage{
			Type: models.MsgTypeHostDisconnected,
		})
		delete(r.rooms, roomID)
		r.metrics.DecrementRooms()
		log.Printf("host left, room %s destroyed", roomID)
		return nil
	}

	r.broadcaster.BroadcastToRoom(roomID, &models.WSMessage{
		Type:    models.MsgTypeUserDisconnected,
		Payload: room.MemberSnapshot(),
	})
	return nil
}

// HasRoom reports whether a room currently exists.
func (r *Registry) HasRoom(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Members returns a snapshot of a room's member list in join order.
func (r *Registry) Members(roomID string) ([]models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.MemberSnapshot(), nil
}

// RoomState returns the arbitration flags for a room.
func (r *Registry) RoomState(roomID string) (armed, locked bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false, false, ErrRoomNotFound
	}
	return room.FirstBuzz, room.Locked, nil
}
