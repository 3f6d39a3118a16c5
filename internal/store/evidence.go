package store

import (
	"context"
	"fmt"

	"claimwatch/internal/domain"
	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
)

type EvidenceStore struct {
	db Querier
}

func NewEvidenceStore(db Querier) *EvidenceStore {
	return &EvidenceStore{db: db}
}

func (s *EvidenceStore) Create(ctx context.Context, e *domain.EvidenceSnippet) error {
	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO evidence (id, claim_id, snippet_text, embedding, stance, source_id, source_type, timestamp, url, credibility_tier)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.ClaimID, e.SnippetText, embedding, nullIfEmpty(string(e.Stance)),
		e.SourceID, e.SourceType, e.Timestamp, nullIfEmpty(e.URL), e.CredibilityTier,
	)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

func (s *EvidenceStore) ScrollByClaim(ctx context.Context, claimID uuid.UUID, afterID uuid.UUID, limit int) ([]domain.EvidenceSnippet, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, claim_id, snippet_text, COALESCE(stance, ''), source_id, source_type, timestamp, COALESCE(url, ''), credibility_tier
		 FROM evidence
		 WHERE claim_id = $1 AND id > $2
		 ORDER BY id
		 LIMIT $3`,
		claimID, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("evidence scroll query: %w", err)
	}
	defer rows.Close()

	var snippets []domain.EvidenceSnippet
	for rows.Next() {
		var e domain.EvidenceSnippet
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.SnippetText, &e.Stance, &e.SourceID, &e.SourceType, &e.Timestamp, &e.URL, &e.CredibilityTier); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		snippets = append(snippets, e)
	}
	return snippets, rows.Err()
}

func (s *EvidenceStore) SetStance(ctx context.Context, id uuid.UUID, stance domain.Stance) error {
	_, err := s.db.Exec(ctx,
		`UPDATE evidence SET stance = $2 WHERE id = $1`,
		id, stance,
	)
	return err
}
