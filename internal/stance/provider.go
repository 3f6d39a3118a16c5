package stance

import (
	"fmt"

	"claimwatch/internal/domain"
)

// Provider constants
const (
	ProviderOllama    = "ollama"
	ProviderHeuristic = "heuristic"
	ProviderMock      = "mock"
)

// NewClassifier creates a stance classifier based on the provider name. The
// ollama provider is wrapped so remote failures degrade to the heuristic
// instead of failing the caller.
func NewClassifier(provider, ollamaURL, ollamaModel string) (domain.StanceClassifier, error) {
	switch provider {
	case ProviderOllama:
		if ollamaURL == "" {
			return nil, fmt.Errorf("OLLAMA_URL is required for ollama stance provider")
		}
		return WithFallback(NewOllamaClient(ollamaURL, ollamaModel), nil), nil

	case ProviderHeuristic:
		return Heuristic{}, nil

	case ProviderMock:
		return NewMockClassifier(), nil

	default:
		return nil, fmt.Errorf("unknown stance provider: %s (valid options: ollama, heuristic, mock)", provider)
	}
}
