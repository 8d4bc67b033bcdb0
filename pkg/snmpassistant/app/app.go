// Package app wires the SNMP assistant components together and exposes the
// operations the HTTP server and the CLI share.
//
// Query path:
//
//	cache lookup → Translator.TranslateToQuery → Executor.Execute →
//	Translator.Summarize → cache store → history (format/json → transport/file)
//
// Every query returns a StructuredResponse. Failures are carried inside the
// response; only translation failures are also reported as an error so the
// HTTP surface can answer 400.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	jsonformat "github.com/vpbank/snmp_assistant/format/json"
	"github.com/vpbank/snmp_assistant/models"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/cache"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/config"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/executor"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/llm"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/mib"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/poller"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/telemetry"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/translator"
	filetransport "github.com/vpbank/snmp_assistant/transport/file"
)

// MsgParseFailed is the response error for a query the model could not
// translate.
const MsgParseFailed = "Failed to parse query"

// ErrParseFailed is returned by Query alongside the error response when
// translation fails.
var ErrParseFailed = errors.New(MsgParseFailed)

const (
	queryKeyPrefix = "query_"
	mibKeyPrefix   = "mib_"
)

// Query outcome labels for the latency histogram.
const (
	outcomeCached     = "cached"
	outcomeOK         = "ok"
	outcomeError      = "error"
	outcomeParseError = "parse_error"
)

// ─────────────────────────────────────────────────────────────────────────────
// Options
// ─────────────────────────────────────────────────────────────────────────────

// Options replaces the components New would otherwise build from the
// configuration. Zero fields use the configured defaults.
type Options struct {
	// Chat is the language model client. Defaults to an OpenAI client.
	Chat llm.ChatClient

	// Dialer opens SNMP sessions. Defaults to a pooled gosnmp dialer.
	Dialer poller.Dialer

	// History receives one formatted record per query. Defaults to a rotating
	// file when history.file_path is set, otherwise history is off.
	History filetransport.Sink

	// Sleep replaces the LLM retry wait.
	Sleep func(ctx context.Context, d time.Duration) error

	// Now is the clock used for the cache and history timestamps.
	Now func() time.Time
}

// ─────────────────────────────────────────────────────────────────────────────
// App
// ─────────────────────────────────────────────────────────────────────────────

// App is safe for concurrent use.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time

	cache      *cache.Cache
	registry   *mib.Registry
	translator *translator.Translator
	executor   *executor.Executor
	metrics    *telemetry.Metrics

	pool      *poller.ConnectionPool // nil when Options.Dialer is set
	formatter *jsonformat.JSONFormatter
	history   filetransport.Sink
}

// New builds every component from cfg. It fails only when an extra name table
// directory or the history file cannot be opened.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		now:     opts.Now,
		metrics: telemetry.New(),
	}

	// ── 1. Cache and registry ───────────────────────────────────────────
	a.cache = cache.New(cache.Options{
		Enabled:       cfg.Cache.Enabled,
		DefaultTTL:    cfg.CacheTTL(),
		SweepInterval: cfg.CacheSweepInterval(),
		Now:           opts.Now,
	})
	a.registry = mib.NewRegistry(mib.Options{Dir: cfg.MIB.Directory, Cache: a.cache}, logger)
	n, err := config.LoadNameTables(cfg.MIB.NamesDirectory, a.registry, logger)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if n > 0 {
		logger.Info("app: extra names loaded", "count", n, "dir", cfg.MIB.NamesDirectory)
	}

	// ── 2. Translator ───────────────────────────────────────────────────
	chat := opts.Chat
	if chat == nil {
		chat = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		}, logger)
	}
	a.translator = translator.New(translator.Config{
		SystemPrompt: cfg.LLM.SystemPrompt,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Defaults: translator.Defaults{
			Port:      cfg.SNMP.DefaultPort,
			Timeout:   cfg.SNMP.Timeout,
			Retries:   cfg.SNMP.Retries,
			Version:   cfg.SNMP.DefaultVersion,
			Community: cfg.SNMP.DefaultCommunity,
		},
		Retry: llm.RetryPolicy{
			MaxRetries: maxRetries(cfg.LLM.MaxRetries),
			BaseDelay:  cfg.RetryBaseDelay(),
			Sleep:      opts.Sleep,
			OnAttempt: func(_ int, class llm.ErrorClass) {
				a.metrics.LLMFailure(class.String())
			},
		},
	}, chat, logger)

	// ── 3. Executor ─────────────────────────────────────────────────────
	dialer := opts.Dialer
	if dialer == nil {
		a.pool = poller.NewConnectionPool(poller.PoolOptions{
			MaxIdlePerAgent:      cfg.SNMP.Pool.MaxIdlePerDevice,
			IdleTimeout:          cfg.PoolIdleTimeout(),
			DefaultMaxConcurrent: cfg.SNMP.Pool.MaxConcurrentPerDevice,
		}, logger)
		dialer = poller.NewSNMPDialer(a.pool, logger)
	}
	a.executor = executor.New(executor.Config{
		DefaultCommunity: cfg.SNMP.DefaultCommunity,
		DefaultPort:      cfg.SNMP.DefaultPort,
		DefaultTimeout:   cfg.SNMPTimeout(),
		MaxConcurrent:    cfg.SNMP.Pool.MaxConcurrentPerDevice,
	}, a.registry, dialer, a.metrics, logger)

	// ── 4. History ──────────────────────────────────────────────────────
	a.formatter = jsonformat.New(jsonformat.Config{PrettyPrint: cfg.History.Pretty}, logger)
	a.history = opts.History
	if a.history == nil && cfg.History.FilePath != "" {
		h, err := filetransport.Open(filetransport.RotateConfig{
			FilePath:   cfg.History.FilePath,
			MaxBytes:   cfg.History.MaxBytes,
			MaxBackups: cfg.History.MaxBackups,
		}, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app: open history: %w", err)
		}
		a.history = h
	}

	logger.Info("app: ready",
		"model", cfg.LLM.Model,
		"cache_enabled", cfg.Cache.Enabled,
		"names", a.registry.Len(),
		"history", a.history != nil,
	)
	return a, nil
}

// Close releases pooled SNMP sessions and the history file.
func (a *App) Close() error {
	var errs []error
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pool: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Metrics returns the Prometheus collectors updated by the pipeline.
func (a *App) Metrics() *telemetry.Metrics { return a.metrics }

// ─────────────────────────────────────────────────────────────────────────────
// Query pipeline
// ─────────────────────────────────────────────────────────────────────────────

// cloneResponse copies RawData so cached entries and caller-held responses
// never share a map.
func cloneResponse(resp models.StructuredResponse) models.StructuredResponse {
	resp.RawData = maps.Clone(resp.RawData)
	return resp
}

// maxRetries maps llm.max_retries onto the retry policy. The config default
// is already 3, so an explicit 0 there means no retries.
func maxRetries(n int) int {
	if n == 0 {
		return llm.NoRetries
	}
	return n
}

// CacheKey is the response cache key for a query text.
func CacheKey(text string) string {
	return queryKeyPrefix + strconv.FormatUint(xxhash.Sum64String(text), 16)
}

// Query answers a free-text question. With skipCache the cache is neither
// read nor written. The returned error is ErrParseFailed when the model
// could not produce a query; resp is populated in every case.
func (a *App) Query(ctx context.Context, text string, skipCache bool) (models.StructuredResponse, error) {
	start := a.now()
	requestID := RequestIDFrom(ctx)
	key := CacheKey(text)
	logger := a.logger.With("request_id", requestID)

	if !skipCache && a.cache.Enabled() {
		v, hit := a.cache.Get(key)
		resp, ok := v.(models.StructuredResponse)
		a.metrics.CacheLookup(hit && ok)
		if hit && ok {
			logger.Info("app: returning cached response", "query", text)
			resp = cloneResponse(resp)
			a.finish(requestID, text, true, start, resp, outcomeCached)
			return resp, nil
		}
	}

	q, err := a.translator.TranslateToQuery(ctx, text)
	if err != nil {
		logger.Warn("app: translation failed", "query", text, "error", err.Error())
		resp := models.StructuredResponse{
			RawData: models.ErrorResult(MsgParseFailed),
			Summary: "Error: " + MsgParseFailed,
			Query:   text,
			Error:   MsgParseFailed,
		}
		a.finish(requestID, text, false, start, resp, outcomeParseError)
		return resp, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	result := a.executor.Execute(ctx, q)

	var resp models.StructuredResponse
	if msg, failed := result.Err(); failed {
		resp = models.StructuredResponse{
			RawData: result,
			Summary: "Error: " + msg,
			Query:   text,
			Error:   msg,
		}
	} else {
		resp = models.StructuredResponse{
			RawData: result,
			Summary: a.translator.Summarize(ctx, result, text),
			Query:   text,
		}
	}

	outcome := outcomeOK
	if resp.Error != "" {
		outcome = outcomeError
	} else if !skipCache {
		a.cache.Set(key, cloneResponse(resp))
	}

	logger.Info("app: query answered",
		"host", q.Target.Host,
		"command", q.Operation.Command,
		"results", len(result),
		"error", resp.Error,
	)
	a.finish(requestID, text, false, start, resp, outcome)
	return resp, nil
}

// finish records latency and appends the history entry.
func (a *App) finish(requestID, text string, cached bool, start time.Time, resp models.StructuredResponse, outcome string) {
	elapsed := a.now().Sub(start)
	a.metrics.ObserveQuery(outcome, elapsed)

	if a.history == nil {
		return
	}
	rec := models.QueryRecord{
		Timestamp:  start.UTC(),
		RequestID:  requestID,
		Input:      text,
		Cached:     cached,
		DurationMs: elapsed.Milliseconds(),
		Response:   resp,
	}
	data, err := a.formatter.FormatRecord(&rec)
	if err != nil {
		a.logger.Warn("app: history format failed", "request_id", requestID, "error", err.Error())
		return
	}
	if err := a.history.Send(data); err != nil {
		a.logger.Warn("app: history write failed", "request_id", requestID, "error", err.Error())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry and cache operations
// ─────────────────────────────────────────────────────────────────────────────

// LoadedMibs lists the available MIB modules.
func (a *App) LoadedMibs() []string {
	return a.registry.LoadedMibs()
}

// AddMib stores a MIB file and drops cached per-module OID lists.
func (a *App) AddMib(path string) (string, error) {
	label, err := a.registry.AddMibFile(path)
	if err != nil {
		return "", err
	}
	cleared := a.cache.Clear(mibKeyPrefix)
	a.logger.Debug("app: mib cache cleared", "entries", cleared)
	return label, nil
}

// ResolveName returns the numeric OID for a symbolic name.
func (a *App) ResolveName(name string) (string, bool) {
	return a.registry.Resolve(name)
}

// TranslateOID returns the symbolic name for a numeric OID.
func (a *App) TranslateOID(oid string) (string, bool) {
	return a.registry.Translate(oid)
}

// ClearCache removes cached entries whose key starts with prefix; an empty
// prefix clears everything. It returns the number removed.
func (a *App) ClearCache(prefix string) int {
	n := a.cache.Clear(prefix)
	a.logger.Info("app: cache cleared", "prefix", prefix, "entries", n)
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Request IDs
// ─────────────────────────────────────────────────────────────────────────────

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// ContextRequestID returns the request ID attached to ctx, if any.
func ContextRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDFrom returns the request ID attached to ctx, or a new one.
func RequestIDFrom(ctx context.Context) string {
	if id := ContextRequestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// ─────────────────────────────────────────────────────────────────────────────
// no-op logger writer
// ─────────────────────────────────────────────────────────────────────────────

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
