package embedding

import (
	"context"
	"hash/fnv"
)

// MockClient produces deterministic pseudo-embeddings from a text hash, so
// identical inputs land on identical vectors. Good enough for tests and local
// runs without an API key.
type MockClient struct {
	dim int

	// Call tracking for assertions
	EmbedCalls []string
}

func NewMockClient(dim int) *MockClient {
	if dim <= 0 {
		dim = 8
	}
	return &MockClient{dim: dim}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	c.EmbedCalls = append(c.EmbedCalls, text)

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, c.dim)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33))/float32(1<<31) + 0.5
	}
	return vec, nil
}
