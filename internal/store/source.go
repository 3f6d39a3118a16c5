package store

import (
	"context"
	"fmt"
	"time"

	"claimwatch/internal/domain"
	"github.com/google/uuid"
)

type SourceStore struct {
	db Querier
}

func NewSourceStore(db Querier) *SourceStore {
	return &SourceStore{db: db}
}

func (s *SourceStore) Upsert(ctx context.Context, src *domain.Source) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO sources (source_id, source_type, title, timestamp, url, text_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (source_id) DO NOTHING`,
		src.SourceID, src.SourceType, src.Title, src.Timestamp, nullIfEmpty(src.URL), src.TextHash,
	)
	if err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}
	return nil
}

func (s *SourceStore) ListIDsSince(ctx context.Context, since *time.Time) ([]string, error) {
	var (
		query = `SELECT source_id FROM sources ORDER BY timestamp`
		args  []any
	)
	if since != nil {
		query = `SELECT source_id FROM sources WHERE timestamp > $1 ORDER BY timestamp`
		args = append(args, *since)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sources since query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SourceStore) LinkClaim(ctx context.Context, sourceID string, claimID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO claim_links (source_id, claim_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		sourceID, claimID,
	)
	return err
}

func (s *SourceStore) ClaimIDsForSources(ctx context.Context, sourceIDs []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID

	for _, batch := range chunk(sourceIDs, chunkBatchSize) {
		rows, err := s.db.Query(ctx,
			`SELECT DISTINCT claim_id FROM claim_links WHERE source_id = ANY($1)`,
			batch,
		)
		if err != nil {
			return nil, fmt.Errorf("claim ids query: %w", err)
		}
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (s *SourceStore) AllLinkedClaimIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT claim_id FROM claim_links`)
	if err != nil {
		return nil, fmt.Errorf("linked claim ids query: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SourceStore) TrendCounts(ctx context.Context, claimIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)

	for _, batch := range chunk(claimIDs, chunkBatchSize) {
		rows, err := s.db.Query(ctx,
			`SELECT claim_links.claim_id, COUNT(DISTINCT sources.source_id)
			 FROM claim_links
			 JOIN sources ON sources.source_id = claim_links.source_id
			 WHERE sources.timestamp >= $1 AND claim_links.claim_id = ANY($2)
			 GROUP BY claim_links.claim_id`,
			since, batch,
		)
		if err != nil {
			return nil, fmt.Errorf("trend counts query: %w", err)
		}
		for rows.Next() {
			var id uuid.UUID
			var cnt int
			if err := rows.Scan(&id, &cnt); err != nil {
				rows.Close()
				return nil, err
			}
			counts[id] = cnt
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return counts, nil
}
