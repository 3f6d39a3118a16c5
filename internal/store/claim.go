package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"claimwatch/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
)

type ClaimStore struct {
	db Querier
}

func NewClaimStore(db Querier) *ClaimStore {
	return &ClaimStore{db: db}
}

const claimColumns = `id, claim_text, first_seen_ts, last_seen_ts, mention_count, source_types,
	support_count, contradict_count, confidence, status,
	trend_score, contradiction_ratio, meme_variant_count, volatility_score, alert_level, last_agent_update_ts`

func scanClaim(row pgx.Row, c *domain.Claim) error {
	return row.Scan(
		&c.ID, &c.ClaimText, &c.FirstSeenTS, &c.LastSeenTS, &c.MentionCount, &c.SourceTypes,
		&c.SupportCount, &c.ContradictCount, &c.Confidence, &c.Status,
		&c.TrendScore, &c.ContradictionRatio, &c.MemeVariantCount, &c.VolatilityScore, &c.AlertLevel, &c.LastAgentUpdateTS,
	)
}

func (s *ClaimStore) Create(ctx context.Context, c *domain.Claim) error {
	var embedding *pgvector.Vector
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		embedding = &v
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO claims (id, claim_text, embedding, first_seen_ts, last_seen_ts, mention_count, source_types,
		                     support_count, contradict_count, confidence, status,
		                     trend_score, contradiction_ratio, meme_variant_count, volatility_score, alert_level)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		c.ID, c.ClaimText, embedding, c.FirstSeenTS, c.LastSeenTS, c.MentionCount, c.SourceTypes,
		c.SupportCount, c.ContradictCount, c.Confidence, c.Status,
		c.TrendScore, c.ContradictionRatio, c.MemeVariantCount, c.VolatilityScore, c.AlertLevel,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *ClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	c := &domain.Claim{}
	err := scanClaim(s.db.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, id,
	), c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ClaimStore) FindNearest(ctx context.Context, embedding []float32, k int) ([]domain.ClaimMatch, error) {
	if k <= 0 {
		k = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT `+claimColumns+`, 1 - (embedding <=> $1) AS score
		 FROM claims
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest claims query: %w", err)
	}
	defer rows.Close()

	var matches []domain.ClaimMatch
	for rows.Next() {
		var m domain.ClaimMatch
		if err := rows.Scan(
			&m.ID, &m.ClaimText, &m.FirstSeenTS, &m.LastSeenTS, &m.MentionCount, &m.SourceTypes,
			&m.SupportCount, &m.ContradictCount, &m.Confidence, &m.Status,
			&m.TrendScore, &m.ContradictionRatio, &m.MemeVariantCount, &m.VolatilityScore, &m.AlertLevel, &m.LastAgentUpdateTS,
			&m.Score,
		); err != nil {
			return nil, fmt.Errorf("scan claim match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *ClaimStore) RecordMention(ctx context.Context, id uuid.UUID, sourceType string, seenAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE claims SET
			mention_count = mention_count + 1,
			last_seen_ts = $2,
			source_types = CASE WHEN $3 = ANY(source_types) THEN source_types ELSE array_append(source_types, $3) END
		 WHERE id = $1`,
		id, seenAt, sourceType,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ClaimStore) ApplyEvidence(ctx context.Context, id uuid.UUID, confidence float64, supportDelta, contradictDelta int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE claims SET
			confidence = $2,
			support_count = support_count + $3,
			contradict_count = contradict_count + $4
		 WHERE id = $1`,
		id, confidence, supportDelta, contradictDelta,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ClaimStore) UpdateConfidence(ctx context.Context, id uuid.UUID, confidence float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE claims SET confidence = $2 WHERE id = $1`,
		id, confidence,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ClaimStore) UpdateDerived(ctx context.Context, id uuid.UUID, m domain.DerivedMetrics) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE claims SET
			trend_score = $2,
			contradiction_ratio = $3,
			meme_variant_count = $4,
			volatility_score = $5,
			alert_level = $6,
			last_agent_update_ts = $7
		 WHERE id = $1`,
		id, m.TrendScore, m.ContradictionRatio, m.MemeVariantCount, m.VolatilityScore, m.AlertLevel, m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDisputed is one-way: it only ever moves a claim off unverified.
func (s *ClaimStore) MarkDisputed(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE claims SET status = $2 WHERE id = $1 AND status = $3`,
		id, domain.StatusDisputed, domain.StatusUnverified,
	)
	return err
}

func (s *ClaimStore) ScrollStale(ctx context.Context, cutoff time.Time, afterID uuid.UUID, limit int) ([]domain.Claim, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+claimColumns+`
		 FROM claims
		 WHERE last_seen_ts < $1 AND id > $2
		 ORDER BY id
		 LIMIT $3`,
		cutoff, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("stale claims query: %w", err)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(
			&c.ID, &c.ClaimText, &c.FirstSeenTS, &c.LastSeenTS, &c.MentionCount, &c.SourceTypes,
			&c.SupportCount, &c.ContradictCount, &c.Confidence, &c.Status,
			&c.TrendScore, &c.ContradictionRatio, &c.MemeVariantCount, &c.VolatilityScore, &c.AlertLevel, &c.LastAgentUpdateTS,
		); err != nil {
			return nil, fmt.Errorf("scan stale claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
