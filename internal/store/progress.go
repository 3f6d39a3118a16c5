package store

import (
	"context"
	"errors"
	"fmt"

	"claimwatch/internal/domain"
	"github.com/jackc/pgx/v5"
)

type ProgressStore struct {
	db Querier
}

func NewProgressStore(db Querier) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) Get(ctx context.Context, agentName string) (*domain.AgentProgress, error) {
	p := &domain.AgentProgress{}
	err := s.db.QueryRow(ctx,
		`SELECT agent_name, last_run_ts, COALESCE(cursor, ''), extra
		 FROM agent_progress WHERE agent_name = $1`,
		agentName,
	).Scan(&p.AgentName, &p.LastRunTS, &p.Cursor, &p.Extra)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *ProgressStore) Upsert(ctx context.Context, p *domain.AgentProgress) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO agent_progress (agent_name, last_run_ts, cursor, extra)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (agent_name) DO UPDATE SET
			last_run_ts = EXCLUDED.last_run_ts,
			cursor = EXCLUDED.cursor,
			extra = EXCLUDED.extra`,
		p.AgentName, p.LastRunTS, nullIfEmpty(p.Cursor), p.Extra,
	)
	if err != nil {
		return fmt.Errorf("upsert agent progress: %w", err)
	}
	return nil
}
