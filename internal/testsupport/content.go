package testsupport

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

// WireItem builds a backend content row as the REST API returns it.
func WireItem(id, status string) map[string]any {
	return map[string]any{
		"id":              id,
		"title":           "Episode " + id,
		"description":     "generated episode",
		"topic":           "grace",
		"status":          status,
		"created_at":      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05.000Z07:00"),
		"duration":        10,
		"character_count": 7500,
	}
}

// WriteJSON encodes payload as the response body with the given status code.
func WriteJSON(t testing.TB, w http.ResponseWriter, status int, payload any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}
