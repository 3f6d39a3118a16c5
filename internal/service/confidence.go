package service

import (
	"context"
	"fmt"

	"claimwatch/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Per-snippet confidence nudges. A top-tier source doubles the effect of
	// its stance.
	StanceBaseDelta = 0.05
	TierABonusDelta = 0.10
)

// UpdateConfidence computes a claim's next confidence after one evidence
// snippet. Pure: returns the clamped new value and the exact delta applied.
func UpdateConfidence(current float64, stance domain.Stance, tier domain.CredibilityTier) (float64, float64) {
	var delta float64
	switch stance {
	case domain.StanceSupport:
		delta = StanceBaseDelta
		if tier == domain.TierA {
			delta += TierABonusDelta
		}
	case domain.StanceContradict:
		delta = -StanceBaseDelta
		if tier == domain.TierA {
			delta -= TierABonusDelta
		}
	}

	next := clamp01(current + delta)
	return next, delta
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ConfidenceService owns confidence, support_count and contradict_count
// mutation. Called once per classified evidence snippet at ingestion time.
type ConfidenceService struct {
	db     domain.DB
	locks  *ClaimLocks
	logger *zap.Logger
}

func NewConfidenceService(db domain.DB, locks *ClaimLocks, logger *zap.Logger) *ConfidenceService {
	return &ConfidenceService{db: db, locks: locks, logger: logger}
}

// Apply updates the claim for one snippet's stance and records the
// confidence event carrying the exact delta, atomically.
func (s *ConfidenceService) Apply(ctx context.Context, claimID uuid.UUID, stance domain.Stance, tier domain.CredibilityTier, sourceID string) (float64, error) {
	unlock := s.locks.Lock(claimID)
	defer unlock()

	claim, err := s.db.Repos().Claims.GetByID(ctx, claimID)
	if err != nil {
		return 0, err
	}

	newConf, delta := UpdateConfidence(claim.Confidence, stance, tier)

	supportDelta, contradictDelta := 0, 0
	switch stance {
	case domain.StanceSupport:
		supportDelta = 1
	case domain.StanceContradict:
		contradictDelta = 1
	}

	err = s.db.InTx(ctx, func(r *domain.Repos) error {
		if err := r.Claims.ApplyEvidence(ctx, claimID, newConf, supportDelta, contradictDelta); err != nil {
			return err
		}
		return r.Events.Append(ctx, &domain.Event{
			ClaimID:   claimID.String(),
			EventType: domain.EventConfidence,
			Delta:     delta,
			Reason:    fmt.Sprintf("stance %s", stance),
			SourceID:  sourceID,
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("confidence updated",
		zap.String("claim_id", claimID.String()),
		zap.String("stance", string(stance)),
		zap.Float64("old_confidence", claim.Confidence),
		zap.Float64("new_confidence", newConf))
	return newConf, nil
}
