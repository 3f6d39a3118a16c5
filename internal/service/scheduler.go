package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"claimwatch/internal/domain"
	"claimwatch/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultReconcileInterval = 10 * time.Minute
	DefaultDecayInterval     = 24 * time.Hour

	runTimeout = 15 * time.Minute
)

// Orchestrator decides the agent's scope for each run (incremental since the
// last watermark, or full scan) and advances the watermark afterwards. Also
// owns the two background cadences: reconciliation and the daily decay sweep.
type Orchestrator struct {
	db     domain.DB
	agent  *EvolutionAgent
	decay  *DecayService
	logger *zap.Logger

	ReconcileInterval time.Duration
	DecayInterval     time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewOrchestrator(db domain.DB, agent *EvolutionAgent, decay *DecayService, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		db:                db,
		agent:             agent,
		decay:             decay,
		logger:            logger,
		ReconcileInterval: DefaultReconcileInterval,
		DecayInterval:     DefaultDecayInterval,
		stopCh:            make(chan struct{}),
	}
}

// RunIncrementalOrFull resolves the source scope from the agent's progress
// row, runs the agent, and on success persists the new watermark plus the run
// summary, even for runs that processed nothing, so empty windows are never
// re-scanned. On agent failure the watermark stays put and the next run
// retries the same window.
func (o *Orchestrator) RunIncrementalOrFull(ctx context.Context, opts RunOptions) (domain.RunSummary, error) {
	repos := o.db.Repos()

	var lastRun *time.Time
	progress, err := repos.Progress.Get(ctx, AgentName)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.RunSummary{}, fmt.Errorf("read agent progress: %w", err)
	}
	if progress != nil {
		ts := progress.LastRunTS
		lastRun = &ts
	}

	if opts.ForceFullScan {
		opts.SourceIDs, err = repos.Sources.ListIDsSince(ctx, nil)
	} else if opts.SourceIDs == nil {
		opts.SourceIDs, err = repos.Sources.ListIDsSince(ctx, lastRun)
	}
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("resolve source scope: %w", err)
	}

	summary, err := o.agent.Run(ctx, opts)
	if err != nil {
		return summary, err
	}

	extra, err := json.Marshal(summary)
	if err != nil {
		return summary, fmt.Errorf("marshal run summary: %w", err)
	}
	err = repos.Progress.Upsert(ctx, &domain.AgentProgress{
		AgentName: AgentName,
		LastRunTS: time.Now().UTC(),
		Extra:     extra,
	})
	if err != nil {
		return summary, fmt.Errorf("advance watermark: %w", err)
	}
	return summary, nil
}

// RunDecayJob runs the daily decay sweep and records it as a system-scoped
// ledger entry.
func (o *Orchestrator) RunDecayJob(ctx context.Context) (int, error) {
	updated, err := o.decay.Sweep(ctx)
	if err != nil {
		return updated, err
	}
	err = o.db.Repos().Events.Append(ctx, &domain.Event{
		ClaimID:   domain.SystemClaimID,
		EventType: domain.EventAgentDecayRun,
		Delta:     float64(updated),
		Reason:    fmt.Sprintf("decay applied to %d claims", updated),
		AgentName: AgentName,
	})
	return updated, err
}

// Start launches the reconciliation and decay workers.
func (o *Orchestrator) Start() {
	o.wg.Add(2)

	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.ReconcileInterval)
		defer ticker.Stop()

		o.logger.Info("reconciliation worker started", zap.Duration("interval", o.ReconcileInterval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
				if _, err := o.RunIncrementalOrFull(ctx, RunOptions{}); err != nil {
					o.logger.Error("reconciliation run failed", zap.Error(err))
				}
				cancel()
			case <-o.stopCh:
				o.logger.Info("reconciliation worker stopped")
				return
			}
		}
	}()

	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.DecayInterval)
		defer ticker.Stop()

		o.logger.Info("decay worker started", zap.Duration("interval", o.DecayInterval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
				if _, err := o.RunDecayJob(ctx); err != nil {
					o.logger.Error("decay job failed", zap.Error(err))
				}
				cancel()
			case <-o.stopCh:
				o.logger.Info("decay worker stopped")
				return
			}
		}
	}()
}

// Stop halts both workers.
func (o *Orchestrator) Stop() {
	close(o.stopCh)
	o.wg.Wait()
}
