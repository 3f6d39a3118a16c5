package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"claimwatch/internal/domain"
	"claimwatch/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AgentName identifies the evolution agent in the ledger and the progress
// table.
const AgentName = "claim_evolution"

const (
	// An old/new contradiction-ratio gap at or above this is worth a ledger
	// entry.
	contradictShiftMin = 0.1

	evidencePageSize = 100
)

// RunOptions selects the working set for one agent pass. With neither
// SourceIDs nor ForceFullScan the agent does nothing: scope selection belongs
// to the orchestrator, never inferred here.
type RunOptions struct {
	SourceIDs     []string `json:"source_ids,omitempty"`
	ForceFullScan bool     `json:"force_full_scan,omitempty"`
	RunDecay      bool     `json:"run_decay,omitempty"`
}

// EvolutionAgent is the periodic reconciliation job. For each claim in scope
// it recomputes trend, contradiction ratio, meme-variant count and
// volatility, derives the alert level, persists the update, and appends a
// ledger event for every materially significant transition, judged against
// the claim's previous persisted values.
type EvolutionAgent struct {
	db         domain.DB
	classifier domain.StanceClassifier
	decay      *DecayService
	locks      *ClaimLocks
	logger     *zap.Logger

	TrendWindowDays         int
	ContradictionWindowDays int
	VolatilityWindowDays    int
}

func NewEvolutionAgent(db domain.DB, classifier domain.StanceClassifier, decay *DecayService, locks *ClaimLocks, logger *zap.Logger) *EvolutionAgent {
	return &EvolutionAgent{
		db:                      db,
		classifier:              classifier,
		decay:                   decay,
		locks:                   locks,
		logger:                  logger,
		TrendWindowDays:         domain.TrendWindowDays,
		ContradictionWindowDays: domain.ContradictionWindowDays,
		VolatilityWindowDays:    domain.VolatilityWindowDays,
	}
}

// Run executes one reconciliation pass and reports what it did. A transient
// store failure aborts the pass; per-claim updates already committed stay
// valid. A claim that vanished from the index is skipped, not fatal.
func (a *EvolutionAgent) Run(ctx context.Context, opts RunOptions) (domain.RunSummary, error) {
	var summary domain.RunSummary

	if opts.RunDecay {
		updated, err := a.decay.Sweep(ctx)
		if err != nil {
			return summary, fmt.Errorf("decay sweep: %w", err)
		}
		err = a.db.Repos().Events.Append(ctx, &domain.Event{
			ClaimID:   domain.SystemClaimID,
			EventType: domain.EventAgentDecayRun,
			Delta:     float64(updated),
			Reason:    fmt.Sprintf("decay applied to %d claims", updated),
			AgentName: AgentName,
		})
		if err != nil {
			return summary, err
		}
	}

	claimIDs, err := a.workingSet(ctx, opts)
	if err != nil {
		return summary, err
	}
	if len(claimIDs) == 0 {
		return summary, nil
	}

	trendCutoff := time.Now().UTC().AddDate(0, 0, -a.TrendWindowDays)
	trendCounts, err := a.db.Repos().Sources.TrendCounts(ctx, claimIDs, trendCutoff)
	if err != nil {
		return summary, fmt.Errorf("trend counts: %w", err)
	}

	for _, claimID := range claimIDs {
		if err := a.reconcileClaim(ctx, claimID, trendCounts[claimID], &summary); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				a.logger.Warn("claim missing from index, skipping", zap.String("claim_id", claimID.String()))
				continue
			}
			return summary, err
		}
	}

	a.logger.Info("evolution run complete",
		zap.Int("claims_processed", summary.ClaimsProcessed),
		zap.Int("claims_disputed", summary.ClaimsDisputed),
		zap.Int("high_alerts", summary.HighAlerts),
		zap.Int("medium_alerts", summary.MediumAlerts))
	return summary, nil
}

func (a *EvolutionAgent) workingSet(ctx context.Context, opts RunOptions) ([]uuid.UUID, error) {
	if opts.ForceFullScan {
		return a.db.Repos().Sources.AllLinkedClaimIDs(ctx)
	}
	if len(opts.SourceIDs) == 0 {
		return nil, nil
	}
	return a.db.Repos().Sources.ClaimIDsForSources(ctx, opts.SourceIDs)
}

func (a *EvolutionAgent) reconcileClaim(ctx context.Context, claimID uuid.UUID, trendCount int, summary *domain.RunSummary) error {
	unlock := a.locks.Lock(claimID)
	defer unlock()

	claim, err := a.db.Repos().Claims.GetByID(ctx, claimID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	trendScore := float64(trendCount)

	supportRecent, contradictRecent, err := a.evidenceStanceCounts(ctx, claim)
	if err != nil {
		return err
	}
	ratio := domain.ContradictionRatio(supportRecent, contradictRecent)

	memeVariants, err := a.memeVariantCount(ctx, claimID)
	if err != nil {
		return err
	}

	volCutoff := now.AddDate(0, 0, -a.VolatilityWindowDays)
	volEvents, err := a.db.Repos().Events.CountConfidenceEvents(ctx, claimID.String(), volCutoff)
	if err != nil {
		return err
	}
	volScore := domain.VolatilityScore(volEvents)

	alertLevel := domain.DeriveAlertLevel(trendScore, ratio, volScore)

	disputing := ratio >= domain.ContradictionThreshold && claim.Status != domain.StatusDisputed
	volatilityFlag := volScore >= domain.VolatilityAlertThreshold && claim.VolatilityScore < domain.VolatilityAlertThreshold

	err = a.db.InTx(ctx, func(r *domain.Repos) error {
		if err := r.Claims.UpdateDerived(ctx, claimID, domain.DerivedMetrics{
			TrendScore:         trendScore,
			ContradictionRatio: ratio,
			MemeVariantCount:   memeVariants,
			VolatilityScore:    volScore,
			AlertLevel:         alertLevel,
			UpdatedAt:          now,
		}); err != nil {
			return err
		}

		// Each emission check compares against the previous persisted values;
		// all can fire independently in the same pass.
		if trendScore > claim.TrendScore {
			if err := a.appendAgentEvent(ctx, r, claimID, domain.EventAgentReinforce,
				trendScore-claim.TrendScore,
				fmt.Sprintf("trend window mentions=%g", trendScore)); err != nil {
				return err
			}
		}

		if math.Abs(ratio-claim.ContradictionRatio) >= contradictShiftMin {
			if err := a.appendAgentEvent(ctx, r, claimID, domain.EventAgentContradictShift,
				ratio-claim.ContradictionRatio,
				fmt.Sprintf("support=%d contradict=%d", supportRecent, contradictRecent)); err != nil {
				return err
			}
		}

		if disputing {
			if err := r.Claims.MarkDisputed(ctx, claimID); err != nil {
				return err
			}
			if err := a.appendAgentEvent(ctx, r, claimID, domain.EventAgentStatusUpdate,
				1.0, "status set to disputed by contradiction ratio"); err != nil {
				return err
			}
		}

		if alertLevel != claim.AlertLevel && alertLevel != domain.AlertLow {
			if err := a.appendAgentEvent(ctx, r, claimID, domain.EventAgentTrendAlert,
				0, fmt.Sprintf("alert level=%s trend=%g ratio=%.3f", alertLevel, trendScore, ratio)); err != nil {
				return err
			}
		}

		if volatilityFlag {
			if err := a.appendAgentEvent(ctx, r, claimID, domain.EventAgentVolatility,
				volScore-claim.VolatilityScore,
				fmt.Sprintf("confidence events=%d", volEvents)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	summary.ClaimsProcessed++
	summary.ClaimsUpdated++
	if disputing {
		summary.ClaimsDisputed++
	}
	if volatilityFlag {
		summary.VolatilityFlags++
	}
	switch alertLevel {
	case domain.AlertHigh:
		summary.HighAlerts++
	case domain.AlertMedium:
		summary.MediumAlerts++
	}
	return nil
}

func (a *EvolutionAgent) appendAgentEvent(ctx context.Context, r *domain.Repos, claimID uuid.UUID, eventType domain.EventType, delta float64, reason string) error {
	return r.Events.Append(ctx, &domain.Event{
		ClaimID:   claimID.String(),
		EventType: eventType,
		Delta:     delta,
		Reason:    reason,
		AgentName: AgentName,
	})
}

// evidenceStanceCounts tallies recent support/contradict evidence for a
// claim, classifying unlabeled snippets on demand. The stance cache write is
// best-effort: a failed write logs a warning and the snippet is simply
// reclassified next pass.
func (a *EvolutionAgent) evidenceStanceCounts(ctx context.Context, claim *domain.Claim) (int, int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.ContradictionWindowDays)
	support, contradict := 0, 0

	repos := a.db.Repos()
	afterID := uuid.Nil
	for {
		snippets, err := repos.Evidence.ScrollByClaim(ctx, claim.ID, afterID, evidencePageSize)
		if err != nil {
			return 0, 0, err
		}
		if len(snippets) == 0 {
			break
		}

		for _, snippet := range snippets {
			if snippet.Timestamp.Before(cutoff) {
				continue
			}

			stance := snippet.Stance
			if stance == "" && claim.ClaimText != "" {
				stance, err = a.classifier.Classify(ctx, snippet.SnippetText, claim.ClaimText)
				if err != nil {
					return 0, 0, err
				}
				if err := repos.Evidence.SetStance(ctx, snippet.ID, stance); err != nil {
					a.logger.Warn("stance cache write failed",
						zap.String("evidence_id", snippet.ID.String()),
						zap.Error(err))
				}
			}

			switch stance {
			case domain.StanceSupport:
				support++
			case domain.StanceContradict:
				contradict++
			}
		}
		afterID = snippets[len(snippets)-1].ID
	}
	return support, contradict, nil
}

// memeVariantCount counts distinct perceptual hashes among the claim's
// linked media. A variant without a hash, or a dangling link, counts as its
// own variant via the media id so nothing drops out silently.
func (a *EvolutionAgent) memeVariantCount(ctx context.Context, claimID uuid.UUID) (int, error) {
	refs, err := a.db.Repos().Media.RefsByClaim(ctx, claimID)
	if err != nil {
		return 0, err
	}

	hashes := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref.Phash != "" {
			hashes[ref.Phash] = true
		} else {
			hashes[ref.ID] = true
		}
	}
	return len(hashes), nil
}
