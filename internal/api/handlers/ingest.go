package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"claimwatch/internal/domain"
	"claimwatch/internal/service"
)

type IngestHandler struct {
	svc *service.IngestService
}

func NewIngestHandler(svc *service.IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type ingestTextRequest struct {
	SourceID        string   `json:"source_id,omitempty"`
	SourceType      string   `json:"source_type,omitempty"`
	Title           string   `json:"title,omitempty"`
	URL             string   `json:"url,omitempty"`
	Text            string   `json:"text"`
	Claims          []string `json:"claims"`
	CredibilityTier string   `json:"credibility_tier,omitempty"`
}

func (h *IngestHandler) Text(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.IngestText(r.Context(), service.TextIngest{
		SourceID:        req.SourceID,
		SourceType:      req.SourceType,
		Title:           req.Title,
		URL:             req.URL,
		Text:            req.Text,
		Claims:          req.Claims,
		CredibilityTier: domain.CredibilityTier(req.CredibilityTier),
	})
	if err != nil {
		if errors.Is(err, service.ErrNoClaims) || errors.Is(err, service.ErrNoText) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type ingestMemeRequest struct {
	SourceID string   `json:"source_id,omitempty"`
	Phash    string   `json:"phash,omitempty"`
	OCRText  string   `json:"ocr_text,omitempty"`
	Claims   []string `json:"claims"`
}

func (h *IngestHandler) Meme(w http.ResponseWriter, r *http.Request) {
	var req ingestMemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.IngestMeme(r.Context(), service.MemeIngest{
		SourceID: req.SourceID,
		Phash:    req.Phash,
		OCRText:  req.OCRText,
		Claims:   req.Claims,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoClaims) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
