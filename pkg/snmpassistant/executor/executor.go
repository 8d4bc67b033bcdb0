// Package executor runs a StructuredQuery against an SNMP agent and
// normalises the answer into a ResultMap.
//
// Failures are reported in the ResultMap, never as a Go error:
//
//   - unsupported requests (version, command, no OIDs) give a single "error" key
//   - per-OID failures are stored inline next to the successful entries
//   - a command with zero successes collapses into a single "error" key
//   - a transport failure aborts the command with a single "error" key
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/snmp_assistant/models"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/poller"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/telemetry"
	"github.com/vpbank/snmp_assistant/snmp/decoder"
)

// Fixed messages for requests rejected before any protocol call.
const (
	MsgNoOIDs             = "No valid OIDs specified"
	MsgUnsupportedVersion = "Only SNMP versions 1 and 2c are currently supported"
)

// Resolver maps between symbolic names and numeric OIDs.
type Resolver interface {
	Resolve(name string) (string, bool)
	Translate(oid string) (string, bool)
	OIDsForMib(mib string) []string
}

// Config holds values applied when the query leaves them unset.
type Config struct {
	DefaultCommunity string
	DefaultPort      int
	DefaultTimeout   time.Duration

	// MaxConcurrent caps simultaneous sessions per agent.
	MaxConcurrent int
}

func (c *Config) defaults() {
	if c.DefaultCommunity == "" {
		c.DefaultCommunity = models.DefaultCommunity
	}
	if c.DefaultPort == 0 {
		c.DefaultPort = models.DefaultPort
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = models.DefaultTimeout * time.Second
	}
}

// Executor is safe for concurrent use.
type Executor struct {
	cfg      Config
	resolver Resolver
	dialer   poller.Dialer
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// New creates an Executor. metrics may be nil.
func New(cfg Config, resolver Resolver, dialer poller.Dialer, metrics *telemetry.Metrics, logger *slog.Logger) *Executor {
	cfg.defaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Executor{
		cfg:      cfg,
		resolver: resolver,
		dialer:   dialer,
		metrics:  metrics,
		logger:   logger,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Execute
// ─────────────────────────────────────────────────────────────────────────────

// Execute runs q and returns its normalised results.
func (e *Executor) Execute(ctx context.Context, q models.StructuredQuery) models.ResultMap {
	oids := e.PrepareOIDs(q.Operation)
	if len(oids) == 0 {
		return models.ErrorResult(MsgNoOIDs)
	}

	version := q.Credentials.Version
	if version == "" {
		version = models.DefaultVersion
	}
	if version != "1" && version != "2c" {
		return models.ErrorResult(MsgUnsupportedVersion)
	}

	command := q.Operation.NormalizedCommand()
	run, ok := e.commands()[command]
	if !ok {
		return models.ErrorResult("Unsupported SNMP command: " + q.Operation.Command)
	}

	if command == models.CommandBulk {
		if msg := checkBulkParams(q.Operation); msg != "" {
			return models.ErrorResult(msg)
		}
	}

	params := e.sessionParams(q, version)
	log := e.logger.With("host", params.Host, "command", command)
	log.Info("executor: running command", "oid_count", len(oids), "version", version)

	sess, err := e.dialer.Dial(ctx, params)
	if err != nil {
		log.Error("executor: dial failed", "error", err.Error())
		e.metrics.SNMPCommand(command, "error")
		return models.ErrorResult(errorMessage(err))
	}
	defer sess.Close()

	out := newOutcome()
	if err := run(ctx, sess, q.Operation, oids, out); err != nil {
		log.Error("executor: transport failure", "error", err.Error())
		e.metrics.SNMPCommand(command, "error")
		return models.ErrorResult(errorMessage(err))
	}

	if out.successes == 0 {
		log.Warn("executor: no successful results", "failures", len(out.failures))
		e.metrics.SNMPCommand(command, "error")
		return models.ErrorResult(out.summary(command))
	}

	if len(out.failures) > 0 {
		e.metrics.SNMPCommand(command, "partial")
	} else {
		e.metrics.SNMPCommand(command, "ok")
	}
	log.Info("executor: command complete", "results", out.successes, "failures", len(out.failures))
	return out.result
}

// PrepareOIDs turns the query's OIDs and MIB names into numeric OIDs without
// a leading dot. A name that cannot be resolved is used as a raw OID.
func (e *Executor) PrepareOIDs(op models.Operation) []string {
	oids := make([]string, 0, len(op.OIDs))
	for _, raw := range op.OIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, ".") {
			oids = append(oids, strings.TrimLeft(raw, "."))
			continue
		}
		if oid, ok := e.resolver.Resolve(raw); ok {
			oids = append(oids, decoder.NormalizeOID(oid))
			continue
		}
		oids = append(oids, raw)
	}
	for _, name := range op.MibNames {
		for _, oid := range e.resolver.OIDsForMib(name) {
			oids = append(oids, decoder.NormalizeOID(oid))
		}
	}
	return oids
}

func (e *Executor) sessionParams(q models.StructuredQuery, version string) poller.SessionParams {
	community := q.Credentials.Community
	if community == "" {
		community = e.cfg.DefaultCommunity
	}
	port := q.Target.Port
	if port == 0 {
		port = e.cfg.DefaultPort
	}
	timeout := time.Duration(q.Target.Timeout) * time.Second
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	retries := max(q.Target.Retries, 0)
	return poller.SessionParams{
		Host:          q.Target.Host,
		Port:          port,
		Version:       version,
		Community:     community,
		Timeout:       timeout,
		Retries:       retries,
		MaxConcurrent: e.cfg.MaxConcurrent,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

// commandFunc runs one command over every prepared OID. A non-nil error is a
// transport failure that aborts the command.
type commandFunc func(ctx context.Context, sess poller.Session, op models.Operation, oids []string, out *outcome) error

func (e *Executor) commands() map[string]commandFunc {
	return map[string]commandFunc{
		models.CommandGet:     e.runGet,
		models.CommandGetNext: e.runGetNext,
		models.CommandWalk:    e.runWalk,
		models.CommandBulk:    e.runBulk,
	}
}

func (e *Executor) runGet(ctx context.Context, sess poller.Session, _ models.Operation, oids []string, out *outcome) error {
	for _, oid := range oids {
		pdu, err := sess.Get(ctx, oid)
		if err != nil {
			if poller.IsTransportError(err) {
				return err
			}
			out.fail(e.keyFor(oid), err.Error())
			continue
		}
		e.record(out, oid, pdu)
	}
	return nil
}

func (e *Executor) runGetNext(ctx context.Context, sess poller.Session, _ models.Operation, oids []string, out *outcome) error {
	for _, oid := range oids {
		pdu, err := sess.GetNext(ctx, oid)
		if err != nil {
			if poller.IsTransportError(err) {
				return err
			}
			out.fail(e.keyFor(oid), err.Error())
			continue
		}
		e.record(out, oid, pdu)
	}
	return nil
}

func (e *Executor) runWalk(ctx context.Context, sess poller.Session, _ models.Operation, oids []string, out *outcome) error {
	for _, oid := range oids {
		for pdu, err := range sess.Walk(ctx, oid) {
			if err != nil {
				if poller.IsTransportError(err) {
					return err
				}
				out.fail(oid+"_error", err.Error())
				break
			}
			e.record(out, oid, pdu)
		}
	}
	return nil
}

func (e *Executor) runBulk(ctx context.Context, sess poller.Session, op models.Operation, oids []string, out *outcome) error {
	nonRepeaters := 0
	if op.NonRepeaters != nil {
		nonRepeaters = *op.NonRepeaters
	}
	maxRepetitions := models.DefaultMaxRepetitions
	if op.MaxRepetitions != nil && *op.MaxRepetitions > 0 {
		maxRepetitions = *op.MaxRepetitions
	}

	for _, oid := range oids {
		pdus, err := sess.BulkGet(ctx, oid, nonRepeaters, maxRepetitions)
		if err != nil {
			if poller.IsTransportError(err) {
				return err
			}
			out.fail(e.keyFor(oid), err.Error())
			continue
		}
		for _, pdu := range pdus {
			e.record(out, oid, pdu)
		}
	}
	return nil
}

// checkBulkParams rejects GETBULK fields that do not fit the PDU instead of
// letting them wrap on conversion.
func checkBulkParams(op models.Operation) string {
	if n := op.NonRepeaters; n != nil && (*n < 0 || *n > models.MaxNonRepeaters) {
		return fmt.Sprintf("Invalid non_repeaters %d: must be between 0 and %d", *n, models.MaxNonRepeaters)
	}
	if n := op.MaxRepetitions; n != nil && (*n < 0 || *n > models.MaxMaxRepetitions) {
		return fmt.Sprintf("Invalid max_repetitions %d: must be between 0 and %d", *n, models.MaxMaxRepetitions)
	}
	return ""
}

// record stores one varbind, keyed by the symbolic name of the OID it
// carries. Exception varbinds are stored inline as failures.
func (e *Executor) record(out *outcome, requested string, pdu gosnmp.SnmpPDU) {
	oid := decoder.NormalizeOID(pdu.Name)
	if oid == "" {
		oid = requested
	}
	key := e.keyFor(oid)
	if decoder.IsErrorType(pdu.Type) {
		out.fail(key, decoder.ErrorText(pdu.Type))
		return
	}
	e.logger.Debug("executor: varbind", "oid", oid, "type", decoder.PDUTypeString(pdu.Type))
	out.ok(key, decoder.FormatPDU(pdu))
}

func (e *Executor) keyFor(oid string) string {
	oid = decoder.NormalizeOID(oid)
	if name, ok := e.resolver.Translate(oid); ok {
		return name
	}
	return oid
}

// ─────────────────────────────────────────────────────────────────────────────
// Result accumulation
// ─────────────────────────────────────────────────────────────────────────────

type outcome struct {
	result    models.ResultMap
	successes int
	failures  []string
}

func newOutcome() *outcome {
	return &outcome{result: models.ResultMap{}}
}

func (o *outcome) ok(key string, value any) {
	o.result[key] = value
	o.successes++
}

func (o *outcome) fail(key, msg string) {
	o.result[key] = msg
	o.failures = append(o.failures, key+": "+msg)
}

func (o *outcome) summary(command string) string {
	if len(o.failures) == 0 {
		return fmt.Sprintf("%s returned no results", command)
	}
	return fmt.Sprintf("%s returned no results: %s", command, strings.Join(o.failures, "; "))
}

func errorMessage(err error) string {
	if errors.Is(err, poller.ErrUnsupportedVersion) {
		return MsgUnsupportedVersion
	}
	return "Error executing SNMP query: " + err.Error()
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
