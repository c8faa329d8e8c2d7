package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned when no API key is available for the provider.
var ErrMissingAPIKey = errors.New("API key is required")

// OpenAIClient calls an OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a client for the given API key. A non-empty baseURL
// points the client at a compatible provider.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}, nil
}

// Complete issues one chat completion and returns the text with the
// provider-reported token usage. Failures are classified transient or fatal.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Profile.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, classify(err)
	}

	if len(resp.Choices) == 0 {
		return Response{}, &TransientError{Err: errors.New("provider returned no choices")}
	}

	return Response{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// classify maps provider errors onto the transient/fatal taxonomy. Auth,
// permission, unknown-model, and malformed-request responses are fatal;
// everything else (rate limits, 5xx, network failures) is worth retrying.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return &FatalError{Err: fmt.Errorf("request rejected (%d): %w", apiErr.HTTPStatusCode, err)}
		default:
			return &TransientError{Err: err}
		}
	}

	return &TransientError{Err: err}
}
