package services

import (
	"sync"

	"github.com/Anand101094/buzz-app-server/internal/models"
)

// ConnIndex maps live connection IDs to the participant record of their last
// join. Disconnect events carry only the connection ID, so this is the one
// place the server can recover which room a dropped connection belonged to.
// At most one entry exists per connection ID.
type ConnIndex struct {
	mu           sync.Mutex
	participants map[string]*models.Participant
}

func NewConnIndex() *ConnIndex {
	return &ConnIndex{
		participants: make(map[string]*models.Participant),
	}
}

// Register records the participant for a connection, silently overwriting any
// previous entry (a re-join through the same connection).
func (ci *ConnIndex) Register(connectionID string, participant *models.Participant) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.participants[connectionID] = participant
}

// ResolveAndForget returns the participant last registered for the connection
// and removes the entry. Called exactly once per disconnect.
func (ci *ConnIndex) ResolveAndForget(connectionID string) (*models.Participant, bool) {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	p, ok := ci.participants[connectionID]
	if ok {
		delete(ci.participants, connectionID)
	}
	return p, ok
}

// Forget drops the entry for a connection without returning it. Used on kick,
// where the room mutation already happened.
func (ci *ConnIndex) Forget(connectionID string) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	delete(ci.participants, connectionID)
}

// Len returns the number of tracked connections.
func (ci *ConnIndex) Len() int {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return len(ci.participants)
}
