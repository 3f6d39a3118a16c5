package stance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"claimwatch/internal/domain"
)

const defaultOllamaModel = "llama3"

// OllamaClient asks a local Ollama model for a one-word stance label.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *OllamaClient) Classify(ctx context.Context, snippetText, claimText string) (domain.Stance, error) {
	prompt := fmt.Sprintf(
		"Classify stance of snippet toward claim as support, contradict, or mention. "+
			"Respond with only one word.\n\nClaim: %s\nSnippet: %s",
		claimText, snippetText,
	)

	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal stance request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create stance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stance request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read stance response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stance API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal stance response: %w", err)
	}

	return parseLabel(result.Response), nil
}

func parseLabel(text string) domain.Stance {
	text = strings.ToLower(strings.TrimSpace(text))
	if domain.ValidStance(text) {
		return domain.Stance(text)
	}
	switch {
	case strings.Contains(text, "contradict"), strings.Contains(text, "refute"), strings.Contains(text, "deny"):
		return domain.StanceContradict
	case strings.Contains(text, "support"), strings.Contains(text, "confirm"), strings.Contains(text, "verify"):
		return domain.StanceSupport
	}
	return domain.StanceMention
}
