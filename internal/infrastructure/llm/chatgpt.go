package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"DailyKnowledge/internal/config"
	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel    = "gpt-4o-mini"
	wrappedResultField    = "result"
)

// ChatGPTClient implements ports.Completer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint   string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
}

var _ ports.Completer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.LLMConfig, httpClient *http.Client) *ChatGPTClient {
	c := &ChatGPTClient{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxTokens:  maxTokens(cfg.MaxTokens),
		httpClient: httpClient,
	}
	if c.endpoint == "" {
		c.endpoint = defaultOpenAIEndpoint
	}
	if c.model == "" {
		c.model = defaultOpenAIModel
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

// Validate reports domain.ErrNotConfigured when the key is missing.
func (c *ChatGPTClient) Validate() error {
	if c == nil || strings.TrimSpace(c.apiKey) == "" {
		return domain.ErrNotConfigured
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete posts one chat completion with a json_schema response format.
// Non-object schemas are wrapped in {"result": ...} and unwrapped again.
func (c *ChatGPTClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	messages := make([]chatMessage, 0, len(req.Parts)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, part := range req.Parts {
		messages = append(messages, chatMessage{Role: "user", Content: part})
	}

	payload := map[string]any{
		"model":      c.model,
		"messages":   messages,
		"max_tokens": c.maxTokens,
	}

	wrapped := false
	if req.Schema != nil {
		schema := schemaMap(req.Schema, false)
		if req.Schema.Type != "object" {
			wrapped = true
			schema = map[string]any{
				"type":       "object",
				"properties": map[string]any{wrappedResultField: schema},
				"required":   []string{wrappedResultField},
			}
		}
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		payload["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"schema": schema,
			},
		}
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.httpClient, c.endpoint, headers, payload, &resp); err != nil {
		return "", fmt.Errorf("chatgpt: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chatgpt: empty choices")
	}
	msg := resp.Choices[0].Message
	if msg.Content == "" && msg.Refusal != "" {
		return "", fmt.Errorf("chatgpt refused: %s", msg.Refusal)
	}

	if !wrapped {
		return msg.Content, nil
	}
	return unwrapResult(msg.Content), nil
}

// unwrapResult returns the "result" member, or the text unchanged when it
// is not the expected envelope so the caller's validation can reject it.
func unwrapResult(text string) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &envelope); err != nil {
		return text
	}
	inner, ok := envelope[wrappedResultField]
	if !ok {
		return text
	}
	return string(inner)
}
