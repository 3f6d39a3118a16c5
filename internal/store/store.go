package store

import (
	"context"
	"errors"
	"fmt"

	"claimwatch/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// Querier is the subset of pgx shared by pgxpool.Pool and pgx.Tx, so every
// store can run against either the pool or an open transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG implements domain.DB over a pgx pool.
type PG struct {
	pool  *pgxpool.Pool
	repos domain.Repos
}

func New(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool, repos: newRepos(pool)}
}

func newRepos(q Querier) domain.Repos {
	return domain.Repos{
		Claims:   &ClaimStore{db: q},
		Evidence: &EvidenceStore{db: q},
		Media:    &MediaStore{db: q},
		Sources:  &SourceStore{db: q},
		Events:   &EventStore{db: q},
		Progress: &ProgressStore{db: q},
	}
}

func (p *PG) Repos() *domain.Repos {
	return &p.repos
}

// InTx runs fn with repos bound to one transaction. Commits on nil, rolls
// back otherwise.
func (p *PG) InTx(ctx context.Context, fn func(r *domain.Repos) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := newRepos(tx)
	if err := fn(&repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
