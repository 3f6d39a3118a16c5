package store

import (
	"context"
	"fmt"

	"claimwatch/internal/domain"
	"github.com/google/uuid"
)

type MediaStore struct {
	db Querier
}

func NewMediaStore(db Querier) *MediaStore {
	return &MediaStore{db: db}
}

func (s *MediaStore) Create(ctx context.Context, m *domain.MediaVariant) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO media (id, source_id, phash, ocr_text, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.SourceID, m.Phash, m.OCRText, m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

func (s *MediaStore) LinkClaim(ctx context.Context, mediaID uuid.UUID, claimID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO media_links (media_id, claim_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		mediaID, claimID,
	)
	return err
}

// RefsByClaim LEFT JOINs so a dangling link (media row gone) still comes back
// with an empty phash; the caller falls back to the media id as a
// pseudo-hash.
func (s *MediaStore) RefsByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.MediaRef, error) {
	rows, err := s.db.Query(ctx,
		`SELECT media_links.media_id, COALESCE(media.phash, '')
		 FROM media_links
		 LEFT JOIN media ON media.id = media_links.media_id
		 WHERE media_links.claim_id = $1`,
		claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("media refs query: %w", err)
	}
	defer rows.Close()

	var refs []domain.MediaRef
	for rows.Next() {
		var id uuid.UUID
		var phash string
		if err := rows.Scan(&id, &phash); err != nil {
			return nil, fmt.Errorf("scan media ref: %w", err)
		}
		refs = append(refs, domain.MediaRef{ID: id.String(), Phash: phash})
	}
	return refs, rows.Err()
}
