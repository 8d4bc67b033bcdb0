// Package translator turns free text into a StructuredQuery and a ResultMap
// back into prose, using a language model behind llm.ChatClient.
package translator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vpbank/snmp_assistant/models"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/llm"
)

// Config controls Translator behaviour.
type Config struct {
	// SystemPrompt for translation. Defaults to DefaultSystemPrompt.
	SystemPrompt string

	Temperature float32

	// MaxTokens bounds each completion (default 2000).
	MaxTokens int

	// Defaults fill fields the model omits. Zero fields take the built-in
	// values.
	Defaults Defaults

	// Retry applies to both calls.
	Retry llm.RetryPolicy
}

func (c *Config) withDefaults() {
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2000
	}
	def := DefaultDefaults()
	if c.Defaults.Port == 0 {
		c.Defaults.Port = def.Port
	}
	if c.Defaults.Timeout == 0 {
		c.Defaults.Timeout = def.Timeout
	}
	if c.Defaults.Retries == 0 {
		c.Defaults.Retries = def.Retries
	}
	if c.Defaults.Version == "" {
		c.Defaults.Version = def.Version
	}
	if c.Defaults.Community == "" {
		c.Defaults.Community = def.Community
	}
	if c.Defaults.Command == "" {
		c.Defaults.Command = def.Command
	}
	if c.Defaults.OID == "" {
		c.Defaults.OID = def.OID
	}
}

// Translator is safe for concurrent use when its ChatClient is.
type Translator struct {
	cfg    Config
	client llm.ChatClient
	logger *slog.Logger
}

// New constructs a Translator.
func New(cfg Config, client llm.ChatClient, logger *slog.Logger) *Translator {
	cfg.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Translator{cfg: cfg, client: client, logger: logger}
}

// TranslateToQuery asks the model for a structured query describing text.
// Errors wrap ErrModelUnavailable, ErrInvalidJSON or ErrInvalidQuery.
func (t *Translator) TranslateToQuery(ctx context.Context, text string) (models.StructuredQuery, error) {
	req := llm.ChatRequest{
		SystemPrompt: t.cfg.SystemPrompt,
		UserPrompt:   translatePrompt(text),
		Temperature:  t.cfg.Temperature,
		MaxTokens:    t.cfg.MaxTokens,
		JSONMode:     true,
	}
	resp, err := llm.Do(ctx, t.cfg.Retry, t.logger, func(ctx context.Context) (llm.ChatResponse, error) {
		return t.client.Chat(ctx, req)
	})
	if err != nil {
		t.logger.Error("translator: model call failed", "error", err.Error())
		return models.StructuredQuery{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	t.logger.Debug("translator: model reply", "reply", resp.Text)

	q, err := Adapt([]byte(strings.TrimSpace(resp.Text)), t.cfg.Defaults)
	if err != nil {
		t.logger.Warn("translator: rejected model reply", "error", err.Error())
		return models.StructuredQuery{}, err
	}
	q.RawQuery = text

	t.logger.Info("translator: query translated",
		"host", q.Target.Host,
		"command", q.Operation.Command,
		"oid_count", len(q.Operation.OIDs),
		"mib_count", len(q.Operation.MibNames),
	)
	return q, nil
}

// Summarize explains result in plain language. It never fails: any error
// yields FallbackSummary.
func (t *Translator) Summarize(ctx context.Context, result models.ResultMap, text string) string {
	prompt, err := summaryPrompt(text, result)
	if err != nil {
		t.logger.Error("translator: encode result for summary", "error", err.Error())
		return FallbackSummary
	}
	req := llm.ChatRequest{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   prompt,
		Temperature:  t.cfg.Temperature,
		MaxTokens:    t.cfg.MaxTokens,
	}
	resp, err := llm.Do(ctx, t.cfg.Retry, t.logger, func(ctx context.Context) (llm.ChatResponse, error) {
		return t.client.Chat(ctx, req)
	})
	if err != nil {
		t.logger.Error("translator: summary failed", "error", err.Error())
		return FallbackSummary
	}
	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return FallbackSummary
	}
	return summary
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
