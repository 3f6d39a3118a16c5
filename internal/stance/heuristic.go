package stance

import (
	"context"
	"strings"

	"claimwatch/internal/domain"
)

var (
	contradictTerms = []string{"debunk", "false", "incorrect", "misleading", "no evidence"}
	supportTerms    = []string{"confirmed", "true", "verified", "evidence shows", "supports"}
)

// Heuristic is the cheap keyword-based classifier. It is the floor every
// other classifier degrades to, so it never errors.
type Heuristic struct{}

func (Heuristic) Classify(ctx context.Context, snippetText, claimText string) (domain.Stance, error) {
	lower := strings.ToLower(snippetText)
	for _, term := range contradictTerms {
		if strings.Contains(lower, term) {
			return domain.StanceContradict, nil
		}
	}
	for _, term := range supportTerms {
		if strings.Contains(lower, term) {
			return domain.StanceSupport, nil
		}
	}
	return domain.StanceMention, nil
}
