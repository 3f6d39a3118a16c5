package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"claimwatch/internal/domain"
	"claimwatch/internal/service"
	"claimwatch/internal/store"
	"github.com/go-chi/chi/v5"
)

type AgentHandler struct {
	orchestrator *service.Orchestrator
	db           domain.DB
}

func NewAgentHandler(orchestrator *service.Orchestrator, db domain.DB) *AgentHandler {
	return &AgentHandler{orchestrator: orchestrator, db: db}
}

type runAgentRequest struct {
	SourceIDs     []string `json:"source_ids,omitempty"`
	ForceFullScan bool     `json:"force_full_scan,omitempty"`
	RunDecay      bool     `json:"run_decay,omitempty"`
}

func (h *AgentHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runAgentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	summary, err := h.orchestrator.RunIncrementalOrFull(r.Context(), service.RunOptions{
		SourceIDs:     req.SourceIDs,
		ForceFullScan: req.ForceFullScan,
		RunDecay:      req.RunDecay,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "agent run failed")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *AgentHandler) Decay(w http.ResponseWriter, r *http.Request) {
	updated, err := h.orchestrator.RunDecayJob(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "decay run failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"claims_updated": updated})
}

func (h *AgentHandler) Progress(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	progress, err := h.db.Repos().Progress.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no progress recorded for agent")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, progress)
}
