package poller

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net"
	"strings"
	"syscall"

	"github.com/gosnmp/gosnmp"
)

// ─────────────────────────────────────────────────────────────────────────────
// Errors
// ─────────────────────────────────────────────────────────────────────────────

// TransportError means the agent could not be reached or did not answer.
// It aborts the whole command.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("snmp %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AgentError is a non-zero error-status in an agent response. It affects only
// the OID it was returned for.
type AgentError struct {
	OID    string
	Status gosnmp.SNMPError
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent returned %s for %s", e.Status, e.OID)
}

// IsTransportError reports whether err aborts the command.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// classify wraps network-level failures in *TransportError and leaves every
// other error (bad OID encoding, agent status) to the caller as per-OID.
func classify(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	if isNetworkError(err) {
		return &TransportError{Op: op, Addr: addr, Err: err}
	}
	return fmt.Errorf("snmp %s: %w", op, err)
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "request timeout") || strings.Contains(msg, "connection refused")
}

// ─────────────────────────────────────────────────────────────────────────────
// Session / Dialer contract
// ─────────────────────────────────────────────────────────────────────────────

// Session is an exclusive handle on one agent. Close must be called exactly
// once; it returns the underlying connection to the pool.
type Session interface {
	Get(ctx context.Context, oid string) (gosnmp.SnmpPDU, error)
	GetNext(ctx context.Context, oid string) (gosnmp.SnmpPDU, error)
	// Walk lazily yields every varbind under oid. A failure is yielded once as
	// the final element.
	Walk(ctx context.Context, oid string) iter.Seq2[gosnmp.SnmpPDU, error]
	BulkGet(ctx context.Context, oid string, nonRepeaters, maxRepetitions int) ([]gosnmp.SnmpPDU, error)
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, p SessionParams) (Session, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Pooled gosnmp implementation
// ─────────────────────────────────────────────────────────────────────────────

// SNMPDialer opens sessions from a ConnectionPool.
type SNMPDialer struct {
	pool   *ConnectionPool
	logger *slog.Logger
}

// NewSNMPDialer wraps pool.
func NewSNMPDialer(pool *ConnectionPool, logger *slog.Logger) *SNMPDialer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &SNMPDialer{pool: pool, logger: logger}
}

// Dial acquires a pooled session for p. Unsupported versions fail with
// ErrUnsupportedVersion before any network activity.
func (d *SNMPDialer) Dial(ctx context.Context, p SessionParams) (Session, error) {
	if p.Version != "1" && p.Version != "2c" {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedVersion, p.Version)
	}
	conn, err := d.pool.Get(ctx, p)
	if err != nil {
		if errors.Is(err, ErrUnsupportedVersion) || IsTransportError(err) {
			return nil, err
		}
		return nil, &TransportError{Op: "connect", Addr: p.Addr(), Err: err}
	}
	return &pooledSession{conn: conn, pool: d.pool, key: p.Key(), addr: p.Addr(), logger: d.logger}, nil
}

type pooledSession struct {
	conn   *gosnmp.GoSNMP
	pool   *ConnectionPool
	key    string
	addr   string
	logger *slog.Logger

	broken bool
	closed bool
}

// errStopWalk ends a gosnmp walk when the consumer stops iterating.
var errStopWalk = errors.New("walk stopped by consumer")

func (s *pooledSession) Get(ctx context.Context, oid string) (gosnmp.SnmpPDU, error) {
	s.conn.Context = ctx
	pkt, err := s.conn.Get([]string{oid})
	return s.single("get", oid, pkt, err)
}

func (s *pooledSession) GetNext(ctx context.Context, oid string) (gosnmp.SnmpPDU, error) {
	s.conn.Context = ctx
	pkt, err := s.conn.GetNext([]string{oid})
	return s.single("getnext", oid, pkt, err)
}

func (s *pooledSession) BulkGet(ctx context.Context, oid string, nonRepeaters, maxRepetitions int) ([]gosnmp.SnmpPDU, error) {
	s.conn.Context = ctx
	pkt, err := s.conn.GetBulk([]string{oid}, uint8(nonRepeaters), uint32(maxRepetitions))
	if err != nil {
		return nil, s.fail("getbulk", err)
	}
	if pkt.Error != gosnmp.NoError {
		return nil, &AgentError{OID: oid, Status: pkt.Error}
	}
	return pkt.Variables, nil
}

// Walk uses GETNEXT for SNMPv1 and GETBULK for v2c.
func (s *pooledSession) Walk(ctx context.Context, oid string) iter.Seq2[gosnmp.SnmpPDU, error] {
	return func(yield func(gosnmp.SnmpPDU, error) bool) {
		s.conn.Context = ctx
		stopped := false
		walkFn := func(pdu gosnmp.SnmpPDU) error {
			if !yield(pdu, nil) {
				stopped = true
				return errStopWalk
			}
			return nil
		}

		var err error
		if s.conn.Version == gosnmp.Version1 {
			err = s.conn.Walk(oid, walkFn)
		} else {
			err = s.conn.BulkWalk(oid, walkFn)
		}
		if stopped || err == nil {
			return
		}
		yield(gosnmp.SnmpPDU{}, s.fail("walk", err))
	}
}

// Close returns the session to the pool, or discards it after a transport
// failure.
func (s *pooledSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.broken {
		s.pool.Discard(s.key, s.conn)
		return nil
	}
	s.pool.Put(s.key, s.conn)
	return nil
}

func (s *pooledSession) single(op, oid string, pkt *gosnmp.SnmpPacket, err error) (gosnmp.SnmpPDU, error) {
	if err != nil {
		return gosnmp.SnmpPDU{}, s.fail(op, err)
	}
	if pkt.Error != gosnmp.NoError {
		return gosnmp.SnmpPDU{}, &AgentError{OID: oid, Status: pkt.Error}
	}
	if len(pkt.Variables) == 0 {
		return gosnmp.SnmpPDU{}, fmt.Errorf("snmp %s: empty response for %s", op, oid)
	}
	return pkt.Variables[0], nil
}

func (s *pooledSession) fail(op string, err error) error {
	err = classify(op, s.addr, err)
	if IsTransportError(err) {
		s.broken = true
		s.logger.Warn("poller: transport failure", "addr", s.addr, "op", op, "error", err.Error())
	}
	return err
}
