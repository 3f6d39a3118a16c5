package domain

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceSnippet is one chunk of source text tied to a claim. Stance is
// classified lazily: an empty value means "not yet classified" and the
// evolution agent fills it in on first use.
type EvidenceSnippet struct {
	ID              uuid.UUID       `json:"id"`
	ClaimID         uuid.UUID       `json:"claim_id"`
	SnippetText     string          `json:"snippet_text"`
	Embedding       []float32       `json:"-"`
	Stance          Stance          `json:"stance,omitempty"`
	SourceID        string          `json:"source_id"`
	SourceType      string          `json:"source_type"`
	Timestamp       time.Time       `json:"timestamp"`
	URL             string          `json:"url,omitempty"`
	CredibilityTier CredibilityTier `json:"credibility_tier"`
}

// MediaVariant is one meme instance. Distinct perceptual hashes linked to the
// same claim count as distinct variants; a variant with no hash counts as its
// own variant via the media id.
type MediaVariant struct {
	ID        uuid.UUID `json:"id"`
	SourceID  string    `json:"source_id"`
	Phash     string    `json:"phash"`
	OCRText   string    `json:"ocr_text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MediaRef is a claim's view of a linked media variant. Phash is empty when
// the variant has no perceptual hash or the media row is gone.
type MediaRef struct {
	ID    string `json:"id"`
	Phash string `json:"phash,omitempty"`
}

// Source is one ingested document: an article, a meme image, etc. SourceID is
// an opaque external key (path, URL, upload id).
type Source struct {
	SourceID   string    `json:"source_id"`
	SourceType string    `json:"source_type"`
	Title      string    `json:"title,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	URL        string    `json:"url,omitempty"`
	TextHash   string    `json:"text_hash,omitempty"`
}
