package service

import (
	"context"
	"math"
	"testing"
	"time"

	"claimwatch/internal/domain"
)

func staleClaim(text string, confidence float64, lastSeenDaysAgo int) *domain.Claim {
	now := time.Now().UTC()
	c := domain.NewClaim(text, []float32{1, 0, 0}, "article", now.AddDate(0, 0, -lastSeenDaysAgo))
	c.Confidence = confidence
	return c
}

func TestDecayService_Sweep_RelaxesTowardNeutral(t *testing.T) {
	db := newMemDB()
	svc := NewDecayService(db, NewClaimLocks(), testLogger())

	high := staleClaim("old high-confidence claim", 0.9, 40)
	low := staleClaim("old low-confidence claim", 0.2, 40)
	db.addClaim(high)
	db.addClaim(low)

	updated, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 claims updated, got %d", updated)
	}

	if got := db.getClaim(high.ID).Confidence; math.Abs(got-0.86) > 1e-9 {
		t.Fatalf("expected 0.9 -> 0.86, got %v", got)
	}
	if got := db.getClaim(low.ID).Confidence; math.Abs(got-0.23) > 1e-9 {
		t.Fatalf("expected 0.2 -> 0.23, got %v", got)
	}

	events := db.eventsOfType(domain.EventDecay)
	if len(events) != 2 {
		t.Fatalf("expected 2 decay events, got %d", len(events))
	}
	for _, e := range events {
		if e.Reason != "decay toward neutral" {
			t.Fatalf("unexpected decay reason %q", e.Reason)
		}
	}
}

func TestDecayService_Sweep_SkipsFreshClaims(t *testing.T) {
	db := newMemDB()
	svc := NewDecayService(db, NewClaimLocks(), testLogger())

	fresh := staleClaim("recently seen claim", 0.9, 5)
	db.addClaim(fresh)

	updated, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected no claims updated, got %d", updated)
	}
	if got := db.getClaim(fresh.ID).Confidence; got != 0.9 {
		t.Fatalf("expected untouched confidence 0.9, got %v", got)
	}
}

func TestDecayService_Sweep_NeutralClaimIsFixedPoint(t *testing.T) {
	db := newMemDB()
	svc := NewDecayService(db, NewClaimLocks(), testLogger())

	neutral := staleClaim("neutral claim", 0.5, 40)
	db.addClaim(neutral)

	updated, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// Stale-and-neutral still counts as swept; the event just carries delta 0.
	if updated != 1 {
		t.Fatalf("expected 1 claim swept, got %d", updated)
	}
	if got := db.getClaim(neutral.ID).Confidence; got != 0.5 {
		t.Fatalf("expected confidence to stay 0.5, got %v", got)
	}

	events := db.eventsOfType(domain.EventDecay)
	if len(events) != 1 || events[0].Delta != 0 {
		t.Fatalf("expected one zero-delta decay event, got %+v", events)
	}
}

func TestDecayService_Sweep_NeverTouchesStatusOrTallies(t *testing.T) {
	db := newMemDB()
	svc := NewDecayService(db, NewClaimLocks(), testLogger())

	c := staleClaim("disputed stale claim", 0.8, 60)
	c.Status = domain.StatusDisputed
	c.SupportCount = 3
	c.ContradictCount = 7
	db.addClaim(c)

	if _, err := svc.Sweep(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	updated := db.getClaim(c.ID)
	if updated.Status != domain.StatusDisputed {
		t.Fatalf("decay must not change status, got %s", updated.Status)
	}
	if updated.SupportCount != 3 || updated.ContradictCount != 7 {
		t.Fatal("decay must not change evidence tallies")
	}
}

func TestDecayService_Sweep_PagesThroughAllStale(t *testing.T) {
	db := newMemDB()
	svc := NewDecayService(db, NewClaimLocks(), testLogger())

	total := decayPageSize*2 + 7
	for i := 0; i < total; i++ {
		db.addClaim(staleClaim("stale claim", 0.9, 40))
	}

	updated, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated != total {
		t.Fatalf("expected %d claims updated across pages, got %d", total, updated)
	}
}
