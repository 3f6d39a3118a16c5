package service

import (
	"context"
	"time"

	"claimwatch/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultDecayAfterDays = 30
	// DecayFactor relaxes confidence 10% of the distance toward neutral per
	// sweep: exponential relaxation, not a hard reset.
	DecayFactor = 0.1

	decayPageSize = 50
)

// DecayService relaxes quiet claims toward the neutral prior, so a stale
// burst of old evidence cannot hold an extreme confidence forever. The sweep
// is idempotent: a claim already at 0.5 yields a zero delta and stays put.
type DecayService struct {
	db     domain.DB
	locks  *ClaimLocks
	logger *zap.Logger

	DecayAfterDays int
}

func NewDecayService(db domain.DB, locks *ClaimLocks, logger *zap.Logger) *DecayService {
	return &DecayService{
		db:             db,
		locks:          locks,
		logger:         logger,
		DecayAfterDays: DefaultDecayAfterDays,
	}
}

// Sweep scans all claims unseen for DecayAfterDays and relaxes each toward
// 0.5, logging a decay event with the signed delta. Returns how many claims
// were updated. Decay never touches status or the evidence tallies.
func (s *DecayService) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.DecayAfterDays)
	updated := 0

	afterID := uuid.Nil
	for {
		claims, err := s.db.Repos().Claims.ScrollStale(ctx, cutoff, afterID, decayPageSize)
		if err != nil {
			return updated, err
		}
		if len(claims) == 0 {
			break
		}

		for i := range claims {
			claim := claims[i]
			if err := s.decayClaim(ctx, &claim); err != nil {
				return updated, err
			}
			updated++
		}
		afterID = claims[len(claims)-1].ID
	}

	if updated > 0 {
		s.logger.Info("decay sweep complete", zap.Int("claims_updated", updated))
	}
	return updated, nil
}

func (s *DecayService) decayClaim(ctx context.Context, claim *domain.Claim) error {
	unlock := s.locks.Lock(claim.ID)
	defer unlock()

	newConf := claim.Confidence + (0.5-claim.Confidence)*DecayFactor

	return s.db.InTx(ctx, func(r *domain.Repos) error {
		if err := r.Claims.UpdateConfidence(ctx, claim.ID, newConf); err != nil {
			return err
		}
		return r.Events.Append(ctx, &domain.Event{
			ClaimID:   claim.ID.String(),
			EventType: domain.EventDecay,
			Delta:     newConf - claim.Confidence,
			Reason:    "decay toward neutral",
		})
	})
}
