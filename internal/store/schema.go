package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the schema if it does not exist. Idempotent; runs at
// startup before the app is wired.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS claims (
			id UUID PRIMARY KEY,
			claim_text TEXT NOT NULL,
			embedding vector(%d),
			first_seen_ts TIMESTAMPTZ NOT NULL,
			last_seen_ts TIMESTAMPTZ NOT NULL,
			mention_count INT NOT NULL DEFAULT 1,
			source_types TEXT[] NOT NULL DEFAULT '{}',
			support_count INT NOT NULL DEFAULT 0,
			contradict_count INT NOT NULL DEFAULT 0,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			status TEXT NOT NULL DEFAULT 'unverified',
			trend_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			contradiction_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
			meme_variant_count INT NOT NULL DEFAULT 0,
			volatility_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			alert_level TEXT NOT NULL DEFAULT 'low',
			last_agent_update_ts TIMESTAMPTZ
		)`, embeddingDim),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS evidence (
			id UUID PRIMARY KEY,
			claim_id UUID NOT NULL,
			snippet_text TEXT NOT NULL,
			embedding vector(%d),
			stance TEXT,
			source_id TEXT NOT NULL,
			source_type TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL,
			url TEXT,
			credibility_tier TEXT NOT NULL DEFAULT 'C'
		)`, embeddingDim),
		`CREATE INDEX IF NOT EXISTS idx_evidence_claim ON evidence (claim_id, id)`,

		`CREATE TABLE IF NOT EXISTS media (
			id UUID PRIMARY KEY,
			source_id TEXT NOT NULL,
			phash TEXT NOT NULL DEFAULT '',
			ocr_text TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS media_links (
			media_id UUID NOT NULL,
			claim_id UUID NOT NULL,
			PRIMARY KEY (media_id, claim_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_media_links_claim ON media_links (claim_id)`,

		`CREATE TABLE IF NOT EXISTS sources (
			source_id TEXT PRIMARY KEY,
			source_type TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL,
			url TEXT,
			text_hash TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_ts ON sources (timestamp)`,

		`CREATE TABLE IF NOT EXISTS claim_links (
			source_id TEXT NOT NULL,
			claim_id UUID NOT NULL,
			PRIMARY KEY (source_id, claim_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claim_links_claim ON claim_links (claim_id)`,

		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			claim_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			delta DOUBLE PRECISION NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			source_id TEXT,
			agent_name TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_claim_type_ts ON events (claim_id, event_type, timestamp)`,

		`CREATE TABLE IF NOT EXISTS agent_progress (
			agent_name TEXT PRIMARY KEY,
			last_run_ts TIMESTAMPTZ NOT NULL,
			cursor TEXT,
			extra JSONB
		)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
