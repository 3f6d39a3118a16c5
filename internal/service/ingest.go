package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"claimwatch/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxSnippetChars = 500

var (
	ErrNoClaims = fmt.Errorf("at least one candidate claim is required")
	ErrNoText   = fmt.Errorf("text is required")
)

// IngestService turns externally extracted content (candidate claim strings
// plus the raw text or meme they came from) into canonical claims, evidence
// snippets and confidence updates. Claim extraction and OCR happen upstream;
// this service takes their outputs.
type IngestService struct {
	db         domain.DB
	canon      *Canonicalizer
	confidence *ConfidenceService
	embedder   domain.EmbeddingClient
	classifier domain.StanceClassifier
	logger     *zap.Logger
}

func NewIngestService(
	db domain.DB,
	canon *Canonicalizer,
	confidence *ConfidenceService,
	embedder domain.EmbeddingClient,
	classifier domain.StanceClassifier,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		db:         db,
		canon:      canon,
		confidence: confidence,
		embedder:   embedder,
		classifier: classifier,
		logger:     logger,
	}
}

type TextIngest struct {
	SourceID        string
	SourceType      string
	Title           string
	URL             string
	Text            string
	Claims          []string
	CredibilityTier domain.CredibilityTier
}

type MemeIngest struct {
	SourceID string
	Phash    string
	OCRText  string
	Claims   []string
}

type IngestResult struct {
	SourceID      string      `json:"source_id"`
	ClaimIDs      []uuid.UUID `json:"claim_ids"`
	ClaimsCreated int         `json:"claims_created"`
	EvidenceAdded int         `json:"evidence_added"`
}

// IngestText registers the source, resolves each candidate claim to a
// canonical id, then stores every text chunk as evidence against every
// resolved claim with a classified stance and the matching confidence update.
func (s *IngestService) IngestText(ctx context.Context, in TextIngest) (*IngestResult, error) {
	if len(in.Claims) == 0 {
		return nil, ErrNoClaims
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrNoText
	}
	if in.SourceID == "" {
		in.SourceID = uuid.NewString()
	}
	if in.SourceType == "" {
		in.SourceType = "article"
	}
	if in.CredibilityTier == "" {
		in.CredibilityTier = domain.TierC
	}

	now := time.Now().UTC()
	repos := s.db.Repos()

	err := repos.Sources.Upsert(ctx, &domain.Source{
		SourceID:   in.SourceID,
		SourceType: in.SourceType,
		Title:      in.Title,
		Timestamp:  now,
		URL:        in.URL,
		TextHash:   hashText(in.Text),
	})
	if err != nil {
		return nil, err
	}

	result := &IngestResult{SourceID: in.SourceID}
	seen := make(map[uuid.UUID]bool)

	for _, claimText := range in.Claims {
		emb, err := s.embedder.Embed(ctx, claimText)
		if err != nil {
			return nil, fmt.Errorf("embed claim: %w", err)
		}

		claimID, merged, err := s.canon.Canonicalize(ctx, claimText, emb, in.SourceType)
		if err != nil {
			return nil, err
		}
		if !seen[claimID] {
			seen[claimID] = true
			result.ClaimIDs = append(result.ClaimIDs, claimID)
			if !merged {
				result.ClaimsCreated++
			}
		}

		if err := repos.Sources.LinkClaim(ctx, in.SourceID, claimID); err != nil {
			return nil, err
		}
		if merged {
			err := repos.Events.Append(ctx, &domain.Event{
				ClaimID:   claimID.String(),
				EventType: domain.EventReinforce,
				Reason:    "text mention",
				SourceID:  in.SourceID,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	for _, snippetText := range chunkText(in.Text, maxSnippetChars) {
		for _, claimID := range result.ClaimIDs {
			claim, err := repos.Claims.GetByID(ctx, claimID)
			if err != nil {
				return nil, err
			}

			stanceLabel, err := s.classifier.Classify(ctx, snippetText, claim.ClaimText)
			if err != nil {
				return nil, fmt.Errorf("classify snippet: %w", err)
			}

			snippetEmb, err := s.embedder.Embed(ctx, snippetText)
			if err != nil {
				return nil, fmt.Errorf("embed snippet: %w", err)
			}

			err = repos.Evidence.Create(ctx, &domain.EvidenceSnippet{
				ID:              uuid.New(),
				ClaimID:         claimID,
				SnippetText:     snippetText,
				Embedding:       snippetEmb,
				Stance:          stanceLabel,
				SourceID:        in.SourceID,
				SourceType:      in.SourceType,
				Timestamp:       time.Now().UTC(),
				URL:             in.URL,
				CredibilityTier: in.CredibilityTier,
			})
			if err != nil {
				return nil, err
			}
			result.EvidenceAdded++

			if _, err := s.confidence.Apply(ctx, claimID, stanceLabel, in.CredibilityTier, in.SourceID); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info("text ingested",
		zap.String("source_id", in.SourceID),
		zap.Int("claims", len(result.ClaimIDs)),
		zap.Int("evidence_added", result.EvidenceAdded))
	return result, nil
}

// IngestMeme stores one meme instance and links its claims. The OCR text is
// produced upstream; the perceptual hash may be empty, in which case the
// media id stands in as the variant key.
func (s *IngestService) IngestMeme(ctx context.Context, in MemeIngest) (*IngestResult, error) {
	if len(in.Claims) == 0 {
		return nil, ErrNoClaims
	}
	if in.SourceID == "" {
		in.SourceID = uuid.NewString()
	}

	now := time.Now().UTC()
	repos := s.db.Repos()

	err := repos.Sources.Upsert(ctx, &domain.Source{
		SourceID:   in.SourceID,
		SourceType: "meme",
		Timestamp:  now,
		TextHash:   hashText(in.OCRText),
	})
	if err != nil {
		return nil, err
	}

	media := &domain.MediaVariant{
		ID:        uuid.New(),
		SourceID:  in.SourceID,
		Phash:     in.Phash,
		OCRText:   in.OCRText,
		Timestamp: now,
	}
	if err := repos.Media.Create(ctx, media); err != nil {
		return nil, err
	}

	result := &IngestResult{SourceID: in.SourceID}
	seen := make(map[uuid.UUID]bool)

	for _, claimText := range in.Claims {
		emb, err := s.embedder.Embed(ctx, claimText)
		if err != nil {
			return nil, fmt.Errorf("embed claim: %w", err)
		}

		claimID, merged, err := s.canon.Canonicalize(ctx, claimText, emb, "meme")
		if err != nil {
			return nil, err
		}
		if !seen[claimID] {
			seen[claimID] = true
			result.ClaimIDs = append(result.ClaimIDs, claimID)
			if !merged {
				result.ClaimsCreated++
			}
		}

		if err := repos.Sources.LinkClaim(ctx, in.SourceID, claimID); err != nil {
			return nil, err
		}
		if err := repos.Media.LinkClaim(ctx, media.ID, claimID); err != nil {
			return nil, err
		}
		if merged {
			err := repos.Events.Append(ctx, &domain.Event{
				ClaimID:   claimID.String(),
				EventType: domain.EventReinforce,
				Reason:    "meme mention",
				SourceID:  in.SourceID,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info("meme ingested",
		zap.String("source_id", in.SourceID),
		zap.String("media_id", media.ID.String()),
		zap.Int("claims", len(result.ClaimIDs)))
	return result, nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// chunkText packs whole sentences into snippets of at most maxChars. A
// single oversized sentence becomes its own snippet rather than being split.
func chunkText(text string, maxChars int) []string {
	var chunks []string
	var current []string
	length := 0

	flush := func() {
		if len(current) > 0 {
			chunk := strings.TrimSpace(strings.Join(current, " "))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			current = current[:0]
			length = 0
		}
	}

	for _, sentence := range splitSentences(text) {
		if length+len(sentence) > maxChars && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		length += len(sentence)
	}
	flush()
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				sentence := strings.TrimSpace(b.String())
				if sentence != "" {
					sentences = append(sentences, collapseSpace(sentence))
				}
				b.Reset()
			}
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		sentences = append(sentences, collapseSpace(rest))
	}
	return sentences
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
