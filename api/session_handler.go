package api

import (
	"net/http"

	"github.com/google/uuid"
)

// SessionHandler hands out configuration session IDs. A session pins the
// descriptors resolved while a step is being configured.
type SessionHandler struct {
	sessions SessionInvalidator
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionInvalidator) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusCreated, map[string]string{"id": uuid.NewString()})
}

// Delete handles DELETE /api/v1/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if h.sessions != nil {
		if err := h.sessions.Invalidate(r.Context(), id.String()); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to end session")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
