// Package json serialises query results for the history log and the CLI.
//
//	app [query pipeline] → format/json → transport/file (history.jsonl)
//	cmd/snmpassistant    → format/json → stdout
//
// All json struct tags are declared on the model types, so serialisation is a
// single json.Marshal call with optional indentation.
package json

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vpbank/snmp_assistant/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// Formatter interface
// ─────────────────────────────────────────────────────────────────────────────

// Formatter serialises history records and responses.
type Formatter interface {
	FormatRecord(rec *models.QueryRecord) ([]byte, error)
	FormatResponse(resp *models.StructuredResponse) ([]byte, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config controls JSONFormatter behaviour.
type Config struct {
	// PrettyPrint emits indented, human-readable JSON when true.
	PrettyPrint bool

	// Indent is the indent string used when PrettyPrint=true.
	// Defaults to two spaces.
	Indent string
}

// ─────────────────────────────────────────────────────────────────────────────
// JSONFormatter
// ─────────────────────────────────────────────────────────────────────────────

// JSONFormatter implements Formatter. It is safe for concurrent use.
type JSONFormatter struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs a JSONFormatter. A nil logger discards output.
func New(cfg Config, logger *slog.Logger) *JSONFormatter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if cfg.PrettyPrint && cfg.Indent == "" {
		cfg.Indent = "  "
	}
	return &JSONFormatter{cfg: cfg, logger: logger}
}

// FormatRecord serialises one history entry:
//
//	{
//	  "timestamp": "2026-10-19T10:30:00.123Z",
//	  "request_id": "3f1c…",
//	  "input": "what is the uptime of 10.0.0.1?",
//	  "cached": false,
//	  "duration_ms": 812,
//	  "response": { "raw_data": { … }, "summary": "…", "query": "…" }
//	}
func (f *JSONFormatter) FormatRecord(rec *models.QueryRecord) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("format/json: record must not be nil")
	}
	data, err := f.marshal(rec)
	if err != nil {
		f.logger.Error("format/json: marshal record failed",
			"request_id", rec.RequestID,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("format/json: marshal: %w", err)
	}
	f.logger.Debug("format/json: formatted record",
		"request_id", rec.RequestID,
		"result_count", len(rec.Response.RawData),
		"bytes", len(data),
	)
	return data, nil
}

// FormatResponse serialises a pipeline response.
func (f *JSONFormatter) FormatResponse(resp *models.StructuredResponse) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("format/json: response must not be nil")
	}
	data, err := f.marshal(resp)
	if err != nil {
		f.logger.Error("format/json: marshal response failed", "error", err.Error())
		return nil, fmt.Errorf("format/json: marshal: %w", err)
	}
	return data, nil
}

func (f *JSONFormatter) marshal(v any) ([]byte, error) {
	if f.cfg.PrettyPrint {
		return json.MarshalIndent(v, "", f.cfg.Indent)
	}
	return json.Marshal(v)
}

// ─────────────────────────────────────────────────────────────────────────────
// no-op logger writer
// ─────────────────────────────────────────────────────────────────────────────

// noopWriter discards all log output when no logger is provided.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
