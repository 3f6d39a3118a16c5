package stance

import (
	"context"

	"claimwatch/internal/domain"
)

// MockClassifier is a configurable classifier for testing. Set the response
// fields to control what Classify returns.
type MockClassifier struct {
	Response domain.Stance
	Err      error

	// Call tracking for assertions
	Calls []struct{ Snippet, Claim string }
}

func NewMockClassifier() *MockClassifier {
	return &MockClassifier{Response: domain.StanceMention}
}

func (c *MockClassifier) Classify(ctx context.Context, snippetText, claimText string) (domain.Stance, error) {
	c.Calls = append(c.Calls, struct{ Snippet, Claim string }{snippetText, claimText})
	if c.Err != nil {
		return "", c.Err
	}
	return c.Response, nil
}
