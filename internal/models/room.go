package models

import (
	"github.com/samber/lo"
)

// Room is a single game session: an ordered member list plus the buzz
// arbitration state. Members keeps join order, which is also the order the
// client renders. All mutation happens under the registry's lock; Room itself
// carries no synchronization.
type Room struct {
	ID      string
	Members []*Participant

	// FirstBuzz arms arbitration: while true, the first buzz locks the room.
	FirstBuzz bool
	// Locked is only ever true while FirstBuzz is true. While locked, buzzes
	// are ignored until the next reset or disarm.
	Locked bool
}

func NewRoom(id string, creator *Participant) *Room {
	return &Room{
		ID:      id,
		Members: []*Participant{creator},
	}
}

// MemberIndex returns the position of the member with the given connection
// ID, or -1 if absent.
func (r *Room) MemberIndex(connectionID string) int {
	_, idx, _ := lo.FindIndexOf(r.Members, func(p *Participant) bool {
		return p.ConnectionID == connectionID
	})
	return idx
}

// Member returns the member with the given connection ID, or nil.
func (r *Room) Member(connectionID string) *Participant {
	if idx := r.MemberIndex(connectionID); idx != -1 {
		return r.Members[idx]
	}
	return nil
}

// AddMember appends a participant, preserving join order. A re-join with a
// connection ID already present replaces the existing record in place instead
// of producing a duplicate.
func (r *Room) AddMember(p *Participant) {
	if idx := r.MemberIndex(p.ConnectionID); idx != -1 {
		r.Members[idx] = p
		return
	}
	r.Members = append(r.Members, p)
}

// RemoveMember removes the member with the given connection ID and returns
// the removed record, or nil if the member was not present.
func (r *Room) RemoveMember(connectionID string) *Participant {
	idx := r.MemberIndex(connectionID)
	if idx == -1 {
		return nil
	}
	removed := r.Members[idx]
	r.Members = append(r.Members[:idx], r.Members[idx+1:]...)
	return removed
}

// HostMember returns the member flagged as host, or nil. At most one member
// holds the flag: it is set server-side when the room is created.
func (r *Room) HostMember() *Participant {
	host, _ := lo.Find(r.Members, func(p *Participant) bool {
		return p.Host
	})
	return host
}

// ClearBuzzes drops every member's pending buzz timestamp and releases the
// lock. Arming state is untouched.
func (r *Room) ClearBuzzes() {
	for _, p := range r.Members {
		p.ClearBuzz()
	}
	r.Locked = false
}

// MemberSnapshot returns a value copy of the member list, safe to hand to the
// hub for broadcasting after the registry lock is released.
func (r *Room) MemberSnapshot() []Participant {
	return lo.Map(r.Members, func(p *Participant, _ int) Participant {
		return *p
	})
}
