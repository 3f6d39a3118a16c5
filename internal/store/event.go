package store

import (
	"context"
	"fmt"
	"time"

	"claimwatch/internal/domain"
)

// EventStore is the append-only ledger. No update or delete is exposed; the
// two reads below are the only consumers the system itself has.
type EventStore struct {
	db Querier
}

func NewEventStore(db Querier) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, e *domain.Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO events (timestamp, claim_id, event_type, delta, reason, source_id, agent_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.Timestamp, e.ClaimID, e.EventType, e.Delta, e.Reason,
		nullIfEmpty(e.SourceID), nullIfEmpty(e.AgentName),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *EventStore) CountConfidenceEvents(ctx context.Context, claimID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM events
		 WHERE claim_id = $1 AND event_type IN ($2, $3) AND timestamp >= $4`,
		claimID, domain.EventConfidence, domain.EventDecay, since,
	).Scan(&count)
	return count, err
}

func (s *EventStore) RecentAgentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, timestamp, claim_id, event_type, delta, reason, COALESCE(source_id, ''), COALESCE(agent_name, '')
		 FROM events
		 WHERE agent_name IS NOT NULL OR event_type LIKE 'agent_%'
		 ORDER BY timestamp DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent agent events query: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ClaimID, &e.EventType, &e.Delta, &e.Reason, &e.SourceID, &e.AgentName); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
