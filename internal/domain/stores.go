package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ClaimMatch struct {
	Claim
	Score float64 `json:"score"`
}

type ClaimStore interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	// FindNearest runs a cosine k-NN search over claim embeddings, best first.
	FindNearest(ctx context.Context, embedding []float32, k int) ([]ClaimMatch, error)
	// RecordMention applies a merge: mention_count+1, source_types union,
	// last_seen_ts bump.
	RecordMention(ctx context.Context, id uuid.UUID, sourceType string, seenAt time.Time) error
	// ApplyEvidence sets the new confidence and bumps the lifetime
	// support/contradict tallies.
	ApplyEvidence(ctx context.Context, id uuid.UUID, confidence float64, supportDelta, contradictDelta int) error
	UpdateConfidence(ctx context.Context, id uuid.UUID, confidence float64) error
	UpdateDerived(ctx context.Context, id uuid.UUID, m DerivedMetrics) error
	MarkDisputed(ctx context.Context, id uuid.UUID) error
	// ScrollStale pages through claims whose last_seen_ts is before cutoff,
	// keyset-ordered by id. Pass uuid.Nil to start from the beginning.
	ScrollStale(ctx context.Context, cutoff time.Time, afterID uuid.UUID, limit int) ([]Claim, error)
}

type EvidenceStore interface {
	Create(ctx context.Context, e *EvidenceSnippet) error
	// ScrollByClaim pages through a claim's evidence, keyset-ordered by id.
	ScrollByClaim(ctx context.Context, claimID uuid.UUID, afterID uuid.UUID, limit int) ([]EvidenceSnippet, error)
	// SetStance caches a lazily computed stance. Idempotent.
	SetStance(ctx context.Context, id uuid.UUID, stance Stance) error
}

type MediaStore interface {
	Create(ctx context.Context, m *MediaVariant) error
	LinkClaim(ctx context.Context, mediaID uuid.UUID, claimID uuid.UUID) error
	// RefsByClaim returns every media link for a claim, including dangling
	// links whose media row is missing (empty phash).
	RefsByClaim(ctx context.Context, claimID uuid.UUID) ([]MediaRef, error)
}

type SourceStore interface {
	Upsert(ctx context.Context, s *Source) error
	// ListIDsSince returns source ids with timestamp strictly after since,
	// ascending; nil since means all sources.
	ListIDsSince(ctx context.Context, since *time.Time) ([]string, error)
	LinkClaim(ctx context.Context, sourceID string, claimID uuid.UUID) error
	// ClaimIDsForSources resolves the deduplicated claim working set for a
	// batch of source ids.
	ClaimIDsForSources(ctx context.Context, sourceIDs []string) ([]uuid.UUID, error)
	// AllLinkedClaimIDs is the full-scan working set: every claim ever linked
	// to any source.
	AllLinkedClaimIDs(ctx context.Context) ([]uuid.UUID, error)
	// TrendCounts returns, per claim, the number of distinct sources linked
	// to it with source timestamp at or after since.
	TrendCounts(ctx context.Context, claimIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error)
}

type EventStore interface {
	Append(ctx context.Context, e *Event) error
	// CountConfidenceEvents counts confidence and decay events for a claim
	// at or after since.
	CountConfidenceEvents(ctx context.Context, claimID string, since time.Time) (int, error)
	// RecentAgentEvents is the operator feed of automated actions.
	RecentAgentEvents(ctx context.Context, limit int) ([]Event, error)
}

type ProgressStore interface {
	Get(ctx context.Context, agentName string) (*AgentProgress, error)
	Upsert(ctx context.Context, p *AgentProgress) error
}

// Repos bundles every store over one backing connection or transaction.
type Repos struct {
	Claims   ClaimStore
	Evidence EvidenceStore
	Media    MediaStore
	Sources  SourceStore
	Events   EventStore
	Progress ProgressStore
}

// DB hands out the shared repos and runs functions inside a transaction, so
// a claim update and the ledger event explaining it land atomically.
type DB interface {
	Repos() *Repos
	InTx(ctx context.Context, fn func(r *Repos) error) error
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type StanceClassifier interface {
	Classify(ctx context.Context, snippetText, claimText string) (Stance, error)
}
