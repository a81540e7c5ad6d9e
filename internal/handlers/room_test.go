package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anand101094/buzz-app-server/internal/handlers"
)

func TestHandleHostRoom(t *testing.T) {
	t.Run("returns a five digit room id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/host", nil)
		rec := httptest.NewRecorder()

		handlers.HandleHostRoom()(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		roomID, err := strconv.Atoi(body["roomId"])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, roomID, 10000)
		assert.Less(t, roomID, 100000)
	})

	t.Run("is stateless across calls", func(t *testing.T) {
		handler := handlers.HandleHostRoom()
		seen := make(map[string]bool)

		for range 20 {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/host", nil))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			seen[body["roomId"]] = true
		}

		// 20 draws from a 90000-value range should not all collide.
		assert.Greater(t, len(seen), 1)
	})
}

func TestWithCORS(t *testing.T) {
	t.Run("adds CORS headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handlers.WithCORS(handlers.HandleHostRoom())(rec, httptest.NewRequest(http.MethodGet, "/host", nil))

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("answers preflight without invoking the handler", func(t *testing.T) {
		called := false
		handler := handlers.WithCORS(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodOptions, "/host", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, called)
	})
}
