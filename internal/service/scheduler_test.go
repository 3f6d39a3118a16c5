package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"claimwatch/internal/domain"
	"claimwatch/internal/store"
)

func newTestOrchestrator(db *memDB) *Orchestrator {
	locks := NewClaimLocks()
	decay := NewDecayService(db, locks, testLogger())
	agent := NewEvolutionAgent(db, newMockClassifier(), decay, locks, testLogger())
	return NewOrchestrator(db, agent, decay, testLogger())
}

func TestOrchestrator_FirstRunScansAllSources(t *testing.T) {
	db := newMemDB()
	orch := newTestOrchestrator(db)
	now := time.Now().UTC()
	ctx := context.Background()

	claim := domain.NewClaim("first run claim", []float32{1, 0, 0}, "article", now)
	db.addClaim(claim)
	linkSource(t, db, "s1", claim.ID, now)

	// No progress row yet: the whole source list is in scope.
	summary, err := orch.RunIncrementalOrFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.ClaimsProcessed != 1 {
		t.Fatalf("expected 1 claim processed on first run, got %+v", summary)
	}

	progress, err := db.Repos().Progress.Get(ctx, AgentName)
	if err != nil {
		t.Fatalf("expected progress row after first run, got %v", err)
	}
	if progress.LastRunTS.IsZero() {
		t.Fatal("expected watermark to be set")
	}

	var stored domain.RunSummary
	if err := json.Unmarshal(progress.Extra, &stored); err != nil {
		t.Fatalf("expected summary in extra blob, got %v", err)
	}
	if stored != summary {
		t.Fatalf("stored summary %+v != returned %+v", stored, summary)
	}
}

func TestOrchestrator_IncrementalSkipsSeenSources(t *testing.T) {
	db := newMemDB()
	orch := newTestOrchestrator(db)
	now := time.Now().UTC()
	ctx := context.Background()

	claim := domain.NewClaim("already reconciled claim", []float32{1, 0, 0}, "article", now.Add(-time.Hour))
	db.addClaim(claim)
	linkSource(t, db, "s1", claim.ID, now.Add(-time.Hour))

	if _, err := orch.RunIncrementalOrFull(ctx, RunOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Nothing new since the watermark: the second run processes nothing.
	summary, err := orch.RunIncrementalOrFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.ClaimsProcessed != 0 {
		t.Fatalf("expected empty incremental run, got %+v", summary)
	}
}

func TestOrchestrator_EmptyRunAdvancesWatermark(t *testing.T) {
	db := newMemDB()
	orch := newTestOrchestrator(db)
	ctx := context.Background()

	if _, err := orch.RunIncrementalOrFull(ctx, RunOptions{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	first, err := db.Repos().Progress.Get(ctx, AgentName)
	if err != nil {
		t.Fatalf("expected progress after empty run, got %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := orch.RunIncrementalOrFull(ctx, RunOptions{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	second, err := db.Repos().Progress.Get(ctx, AgentName)
	if err != nil {
		t.Fatalf("expected progress, got %v", err)
	}
	if !second.LastRunTS.After(first.LastRunTS) {
		t.Fatal("expected the watermark to advance on an empty run")
	}
}

func TestOrchestrator_AgentFailureLeavesWatermark(t *testing.T) {
	db := newMemDB()
	orch := newTestOrchestrator(db)
	now := time.Now().UTC()
	ctx := context.Background()

	claim := domain.NewClaim("claim behind a failing store", []float32{1, 0, 0}, "article", now.Add(-time.Hour))
	db.addClaim(claim)
	linkSource(t, db, "s1", claim.ID, now.Add(-time.Hour))

	// Establish a watermark, then make the agent fail.
	if _, err := orch.RunIncrementalOrFull(ctx, RunOptions{}); err != nil {
		t.Fatalf("setup run: %v", err)
	}
	before, _ := db.Repos().Progress.Get(ctx, AgentName)

	linkSource(t, db, "s2", claim.ID, now.Add(time.Hour))
	db.state.trendCountsErr = errors.New("store unavailable")

	if _, err := orch.RunIncrementalOrFull(ctx, RunOptions{}); err == nil {
		t.Fatal("expected the run to fail")
	}

	after, err := db.Repos().Progress.Get(ctx, AgentName)
	if err != nil {
		t.Fatalf("expected progress to survive, got %v", err)
	}
	if !after.LastRunTS.Equal(before.LastRunTS) {
		t.Fatal("failed run must not advance the watermark")
	}

	// Recovery: the same window is retried and succeeds.
	db.state.trendCountsErr = nil
	summary, err := orch.RunIncrementalOrFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("recovery run: %v", err)
	}
	if summary.ClaimsProcessed != 1 {
		t.Fatalf("expected the retried window to process the claim, got %+v", summary)
	}
}

func TestOrchestrator_ForceFullScanIgnoresWatermark(t *testing.T) {
	db := newMemDB()
	orch := newTestOrchestrator(db)
	now := time.Now().UTC()
	ctx := context.Background()

	claim := domain.NewClaim("rescanned claim", []float32{1, 0, 0}, "article", now.Add(-time.Hour))
	db.addClaim(claim)
	linkSource(t, db, "s1", claim.ID, now.Add(-time.Hour))

	if _, err := orch.RunIncrementalOrFull(ctx, RunOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	summary, err := orch.RunIncrementalOrFull(ctx, RunOptions{ForceFullScan: true})
	if err != nil {
		t.Fatalf("full scan: %v", err)
	}
	if summary.ClaimsProcessed != 1 {
		t.Fatalf("expected full scan to revisit the claim, got %+v", summary)
	}
}

func TestOrchestrator_RunDecayJob(t *testing.T) {
	db := newMemDB()
	orch := newTestOrchestrator(db)

	db.addClaim(staleClaim("stale claim", 0.9, 40))
	db.addClaim(staleClaim("another stale claim", 0.1, 50))

	updated, err := orch.RunDecayJob(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 claims decayed, got %d", updated)
	}

	events := db.eventsOfType(domain.EventAgentDecayRun)
	if len(events) != 1 {
		t.Fatalf("expected 1 system decay event, got %d", len(events))
	}
	if events[0].ClaimID != domain.SystemClaimID || events[0].Delta != 2 {
		t.Fatalf("unexpected decay run event %+v", events[0])
	}
}

func TestOrchestrator_StartStop(t *testing.T) {
	db := newMemDB()
	orch := newTestOrchestrator(db)
	orch.ReconcileInterval = time.Hour
	orch.DecayInterval = time.Hour

	orch.Start()
	done := make(chan struct{})
	go func() {
		orch.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestOrchestrator_WatermarkWriteFailureSurfaces(t *testing.T) {
	db := newMemDB()
	orch := newTestOrchestrator(db)
	db.state.progressErr = errors.New("disk full")

	if _, err := orch.RunIncrementalOrFull(context.Background(), RunOptions{}); err == nil {
		t.Fatal("expected watermark write failure to surface")
	}
}

func TestOrchestrator_ProgressReadFailureIsFatal(t *testing.T) {
	// A missing row is fine; any other progress error aborts the run before
	// the agent touches anything.
	db := newMemDB()
	orch := newTestOrchestrator(db)

	if _, err := db.Repos().Progress.Get(context.Background(), AgentName); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing progress, got %v", err)
	}
	if _, err := orch.RunIncrementalOrFull(context.Background(), RunOptions{}); err != nil {
		t.Fatalf("missing progress row must not fail the run, got %v", err)
	}
}
