package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"DailyKnowledge/internal/config"
	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient implements ports.Completer with the Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	apiKey    string
	maxTokens int
}

var _ ports.Completer = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration. A non-empty
// Endpoint overrides the API base URL.
func NewAnthropicClient(cfg config.LLMConfig, httpClient *http.Client) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		apiKey:    cfg.APIKey,
		maxTokens: maxTokens(cfg.MaxTokens),
	}
}

// Validate reports domain.ErrNotConfigured when the key is missing.
func (c *AnthropicClient) Validate() error {
	if c == nil || strings.TrimSpace(c.apiKey) == "" {
		return domain.ErrNotConfigured
	}
	return nil
}

// Complete sends one message. The schema travels in the system prompt since
// the reply is free text; code fences around the JSON are removed.
func (c *AnthropicClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	system := req.System
	if req.Schema != nil {
		raw, err := json.Marshal(schemaMap(req.Schema, false))
		if err != nil {
			return "", fmt.Errorf("anthropic: marshal schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nRespond with raw JSON only, no prose, matching this JSON Schema:\n" + string(raw))
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Parts))
	for _, p := range req.Parts {
		blocks = append(blocks, anthropic.NewTextBlock(p))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("anthropic: reply has no text")
	}
	return stripCodeFences(text.String()), nil
}
