// Package api implements the HTTP surface of the race daemon: REST commands,
// the SSE stream and the WebSocket live connection.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/trackside/racectl/internal/models"
)

// Engine is the interface the handlers use to drive the race.
type Engine interface {
	Snapshot() models.Snapshot
	Start() *models.AppError
	Stop() *models.AppError
	Reset() *models.AppError
}

// EventBus is the interface for registering viewer sessions.
type EventBus interface {
	Subscribe(id string) <-chan models.Event
	Unsubscribe(id string)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	engine Engine
	events EventBus
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}
