package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"DailyKnowledge/internal/config"
	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

const (
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel    = "gemini-2.5-flash"
)

// GeminiClient implements ports.Completer over the Generative Language REST API.
type GeminiClient struct {
	endpoint   string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
}

var _ ports.Completer = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration. Endpoint is the API
// base, e.g. https://generativelanguage.googleapis.com/v1beta.
func NewGeminiClient(cfg config.LLMConfig, httpClient *http.Client) *GeminiClient {
	c := &GeminiClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxTokens:  maxTokens(cfg.MaxTokens),
		httpClient: httpClient,
	}
	if c.endpoint == "" {
		c.endpoint = defaultGeminiEndpoint
	}
	if c.model == "" {
		c.model = defaultGeminiModel
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

// Validate reports domain.ErrNotConfigured when the key is missing.
func (c *GeminiClient) Validate() error {
	if c == nil || strings.TrimSpace(c.apiKey) == "" {
		return domain.ErrNotConfigured
	}
	return nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Complete sends one generateContent request with a JSON response schema.
func (c *GeminiClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	parts := make([]geminiPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, geminiPart{Text: p})
	}

	generation := map[string]any{"maxOutputTokens": c.maxTokens}
	if req.Schema != nil {
		generation["responseMimeType"] = "application/json"
		generation["responseSchema"] = schemaMap(req.Schema, true)
	}

	payload := map[string]any{
		"contents":         []geminiContent{{Role: "user", Parts: parts}},
		"generationConfig": generation,
	}
	if req.System != "" {
		payload["systemInstruction"] = geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	var resp geminiResponse
	if err := postJSON(ctx, c.httpClient, endpoint, map[string]string{"x-goog-api-key": c.apiKey}, payload, &resp); err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	if resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}
