package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/workflow-plugin-soap/store"
)

// InvocationHandler serves the invocation audit log.
type InvocationHandler struct {
	invocations store.InvocationStore
}

// NewInvocationHandler creates a new InvocationHandler.
func NewInvocationHandler(invocations store.InvocationStore) *InvocationHandler {
	return &InvocationHandler{invocations: invocations}
}

// List handles GET /api/v1/invocations.
func (h *InvocationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.InvocationFilter{
		Piece:      q.Get("piece"),
		Operation:  q.Get("operation"),
		Status:     store.InvocationStatus(q.Get("status")),
		Pagination: store.DefaultPagination(),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		filter.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			WriteError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		filter.Pagination.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Pagination.Offset = n
	}

	recs, err := h.invocations.List(r.Context(), filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list invocations")
		return
	}
	WritePaginated(w, recs, len(recs), filter.Pagination.Offset, filter.Pagination.Limit)
}

// Get handles GET /api/v1/invocations/{id}.
func (h *InvocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid invocation id")
		return
	}
	rec, err := h.invocations.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "invocation not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to get invocation")
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}
