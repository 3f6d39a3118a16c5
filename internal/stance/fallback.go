package stance

import (
	"context"

	"claimwatch/internal/domain"
	"go.uber.org/zap"
)

// Fallback degrades a failing primary classifier to the keyword heuristic.
// A single misbehaving snippet or an unreachable model never blocks the
// caller.
type Fallback struct {
	primary domain.StanceClassifier
	logger  *zap.Logger
}

func WithFallback(primary domain.StanceClassifier, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{primary: primary, logger: logger}
}

func (f *Fallback) Classify(ctx context.Context, snippetText, claimText string) (domain.Stance, error) {
	if snippetText == "" || claimText == "" {
		return domain.StanceMention, nil
	}

	stance, err := f.primary.Classify(ctx, snippetText, claimText)
	if err != nil {
		f.logger.Warn("stance classification failed, using heuristic", zap.Error(err))
		return Heuristic{}.Classify(ctx, snippetText, claimText)
	}
	return stance, nil
}
