package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trackside/racectl/internal/models"
)

// getSnapshot returns the full current race state.
func (h *Handlers) getSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// getInfo returns daemon information.
func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, http.StatusOK, models.Info{
		Version: models.Version,
		Tracks:  len(snap.Tracks),
	})
}

// raceCommand executes start/stop/reset. A command that is invalid for the
// current phase returns 409 and leaves state unchanged.
func (h *Handlers) raceCommand(w http.ResponseWriter, r *http.Request) {
	var appErr *models.AppError
	switch cmd := chi.URLParam(r, "cmd"); cmd {
	case "start":
		appErr = h.engine.Start()
	case "stop":
		appErr = h.engine.Stop()
	case "reset":
		appErr = h.engine.Reset()
	default:
		writeError(w, models.ErrNotFound("unknown race command "+cmd))
		return
	}
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}
