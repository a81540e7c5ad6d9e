package models

// Participant is one connected client's identity and buzz state within a
// room. The JSON shape matches what the web client sends as userData, so the
// same struct travels both directions on the wire.
type Participant struct {
	ConnectionID string `json:"userId"`
	Name         string `json:"userName"`
	JoinedRoom   string `json:"joinedRoom"`
	// BuzzedAt is set while a buzz is pending (epoch millis) and cleared on
	// reset. A nil pointer is omitted from the wire entirely.
	BuzzedAt *int64 `json:"timeStamp,omitempty"`
	Host     bool   `json:"host,omitempty"`
}

func NewParticipant(connectionID, name, roomID string) *Participant {
	return &Participant{
		ConnectionID: connectionID,
		Name:         name,
		JoinedRoom:   roomID,
	}
}

// ClearBuzz removes any pending buzz timestamp.
func (p *Participant) ClearBuzz() {
	p.BuzzedAt = nil
}

// HasBuzzed reports whether the participant has buzzed since the last reset.
func (p *Participant) HasBuzzed() bool {
	return p.BuzzedAt != nil
}
