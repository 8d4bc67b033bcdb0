package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures OpenAIClient.
type OpenAIConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint for OpenAI-compatible servers.
	BaseURL string

	// Model is the chat model name (default "gpt-4").
	Model string

	// HTTPClient is used for all requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// OpenAIClient implements ChatClient on top of go-openai and converts its
// errors into classified *Error values.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIClient builds a client. It does not contact the service.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		logger: logger,
	}
}

// Chat sends req and returns the content of the first choice.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	creq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return ChatResponse{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, &Error{Class: ClassOther, Err: errors.New("response has no choices")}
	}

	c.logger.Debug("llm: chat completion",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ChatResponse{Text: resp.Choices[0].Message.Content}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Class: ClassFromStatus(apiErr.HTTPStatusCode), StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Class: ClassFromStatus(reqErr.HTTPStatusCode), StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	if class := Classify(err); class == ClassConnection {
		return &Error{Class: ClassConnection, Err: err}
	}
	return fmt.Errorf("llm: chat completion: %w", err)
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
