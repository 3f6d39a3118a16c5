package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"claimwatch/internal/domain"
	"claimwatch/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ClaimHandler struct {
	db       domain.DB
	embedder domain.EmbeddingClient
}

func NewClaimHandler(db domain.DB, embedder domain.EmbeddingClient) *ClaimHandler {
	return &ClaimHandler{db: db, embedder: embedder}
}

func (h *ClaimHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	claim, err := h.db.Repos().Claims.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "claim not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	media, err := h.db.Repos().Media.RefsByClaim(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"claim":        claim,
		"linked_media": media,
	})
}

func (h *ClaimHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	k := 10
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			writeError(w, http.StatusBadRequest, "invalid k")
			return
		}
		k = parsed
	}

	embedding, err := h.embedder.Embed(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadGateway, "embedding failed")
		return
	}

	matches, err := h.db.Repos().Claims.FindNearest(r.Context(), embedding, k)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": matches})
}
