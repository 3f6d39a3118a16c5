package handlers

import (
	"net/http"
	"strconv"

	"claimwatch/internal/domain"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

type EventHandler struct {
	db domain.DB
}

func NewEventHandler(db domain.DB) *EventHandler {
	return &EventHandler{db: db}
}

func (h *EventHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	events, err := h.db.Repos().Events.RecentAgentEvents(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "event lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}
