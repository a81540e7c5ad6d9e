package handlers

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/Anand101094/buzz-app-server/internal/config"
)

// HandleHostRoom mints a random numeric room identifier for a new host. The
// endpoint is stateless: the room itself only comes into existence when the
// host's create_room event arrives over the socket.
func HandleHostRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := rand.IntN(config.RoomNumberSpan) + config.MinRoomNumber

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"roomId": strconv.Itoa(roomID),
		})
	}
}
