package service

import (
	"context"
	"time"

	"claimwatch/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultSimilarityThreshold = 0.85
	DefaultCanonicalizeTopK    = 5
)

// Canonicalizer resolves a new claim mention to a canonical claim id: merge
// into the nearest existing claim above the similarity threshold, or create
// a fresh one. It owns claim creation and merge.
type Canonicalizer struct {
	db     domain.DB
	locks  *ClaimLocks
	logger *zap.Logger

	SimilarityThreshold float64
	TopK                int
}

func NewCanonicalizer(db domain.DB, locks *ClaimLocks, logger *zap.Logger) *Canonicalizer {
	return &Canonicalizer{
		db:                  db,
		locks:               locks,
		logger:              logger,
		SimilarityThreshold: DefaultSimilarityThreshold,
		TopK:                DefaultCanonicalizeTopK,
	}
}

// Canonicalize returns the claim id the mention resolved to and whether it
// was merged into an existing claim.
func (s *Canonicalizer) Canonicalize(ctx context.Context, claimText string, embedding []float32, sourceType string) (uuid.UUID, bool, error) {
	matches, err := s.db.Repos().Claims.FindNearest(ctx, embedding, s.TopK)
	if err != nil {
		return uuid.Nil, false, err
	}

	now := time.Now().UTC()

	if len(matches) > 0 && matches[0].Score >= s.SimilarityThreshold {
		id := matches[0].ID
		unlock := s.locks.Lock(id)
		defer unlock()

		err := s.db.InTx(ctx, func(r *domain.Repos) error {
			if err := r.Claims.RecordMention(ctx, id, sourceType, now); err != nil {
				return err
			}
			return r.Events.Append(ctx, &domain.Event{
				Timestamp: now,
				ClaimID:   id.String(),
				EventType: domain.EventMerge,
				Reason:    "claim merged",
			})
		})
		if err != nil {
			return uuid.Nil, false, err
		}

		s.logger.Debug("claim merged",
			zap.String("claim_id", id.String()),
			zap.Float64("score", matches[0].Score))
		return id, true, nil
	}

	claim := domain.NewClaim(claimText, embedding, sourceType, now)
	err = s.db.InTx(ctx, func(r *domain.Repos) error {
		if err := r.Claims.Create(ctx, claim); err != nil {
			return err
		}
		return r.Events.Append(ctx, &domain.Event{
			Timestamp: now,
			ClaimID:   claim.ID.String(),
			EventType: domain.EventCreate,
			Reason:    "new canonical claim",
		})
	})
	if err != nil {
		return uuid.Nil, false, err
	}

	s.logger.Debug("claim created", zap.String("claim_id", claim.ID.String()))
	return claim.ID, false, nil
}
