package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
)

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("connection pool closed")

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// PoolOptions configures the connection pool behaviour.
type PoolOptions struct {
	// MaxIdlePerAgent is the maximum number of idle sessions kept per pool key
	// (default 2). Excess sessions returned via Put are closed immediately.
	MaxIdlePerAgent int

	// IdleTimeout is how long an idle session remains in the pool before being
	// discarded. Zero means no expiry.
	IdleTimeout time.Duration

	// DefaultMaxConcurrent applies when SessionParams.MaxConcurrent is zero
	// (default 4).
	DefaultMaxConcurrent int

	// Dial creates new gosnmp sessions. Defaults to NewSession when nil.
	Dial func(SessionParams) (*gosnmp.GoSNMP, error)
}

func (o *PoolOptions) defaults() {
	if o.MaxIdlePerAgent <= 0 {
		o.MaxIdlePerAgent = 2
	}
	if o.DefaultMaxConcurrent <= 0 {
		o.DefaultMaxConcurrent = 4
	}
	if o.Dial == nil {
		o.Dial = NewSession
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Connection pool
// ─────────────────────────────────────────────────────────────────────────────

type idleConn struct {
	conn       *gosnmp.GoSNMP
	returnedAt time.Time
}

// agentPool is the idle list and concurrency semaphore for one pool key.
type agentPool struct {
	mu   sync.Mutex
	idle []idleConn // LIFO stack

	sem chan struct{}
}

// ConnectionPool hands out gosnmp sessions for exclusive use. A session is
// held by exactly one caller between Get and Put/Discard.
type ConnectionPool struct {
	opts   PoolOptions
	logger *slog.Logger

	mu    sync.RWMutex
	pools map[string]*agentPool

	closed chan struct{}
}

// NewConnectionPool creates a ready-to-use pool.
func NewConnectionPool(opts PoolOptions, logger *slog.Logger) *ConnectionPool {
	opts.defaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &ConnectionPool{
		opts:   opts,
		logger: logger,
		pools:  make(map[string]*agentPool),
		closed: make(chan struct{}),
	}
}

// Get acquires a session for p, blocking while the per-agent concurrency
// limit is reached. Reused sessions take the timeout and retries of p.
func (cp *ConnectionPool) Get(ctx context.Context, p SessionParams) (*gosnmp.GoSNMP, error) {
	select {
	case <-cp.closed:
		return nil, ErrPoolClosed
	default:
	}

	ap := cp.poolFor(p.Key(), p.MaxConcurrent)

	select {
	case ap.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-cp.closed:
		return nil, ErrPoolClosed
	}

	if conn := cp.popIdle(ap); conn != nil {
		conn.Timeout = p.Timeout
		conn.Retries = p.Retries
		return conn, nil
	}

	conn, err := cp.opts.Dial(p)
	if err != nil {
		<-ap.sem
		return nil, err
	}
	cp.logger.Debug("poller: dialed session", "addr", p.Addr(), "version", p.Version)
	return conn, nil
}

// Put returns a healthy session for reuse and releases its concurrency slot.
func (cp *ConnectionPool) Put(key string, conn *gosnmp.GoSNMP) {
	ap := cp.lookup(key)
	if ap == nil {
		closeConn(conn)
		return
	}
	defer func() { <-ap.sem }()

	select {
	case <-cp.closed:
		closeConn(conn)
		return
	default:
	}

	ap.mu.Lock()
	defer ap.mu.Unlock()

	if len(ap.idle) >= cp.opts.MaxIdlePerAgent {
		closeConn(conn)
		return
	}
	conn.Context = context.Background()
	ap.idle = append(ap.idle, idleConn{conn: conn, returnedAt: time.Now()})
}

// Discard closes a broken session and releases its concurrency slot.
func (cp *ConnectionPool) Discard(key string, conn *gosnmp.GoSNMP) {
	closeConn(conn)
	if ap := cp.lookup(key); ap != nil {
		<-ap.sem
	}
}

// Close drains all idle sessions and makes further Get calls fail.
func (cp *ConnectionPool) Close() error {
	select {
	case <-cp.closed:
		return nil
	default:
	}
	close(cp.closed)

	cp.mu.Lock()
	defer cp.mu.Unlock()

	for _, ap := range cp.pools {
		ap.mu.Lock()
		for _, e := range ap.idle {
			closeConn(e.conn)
		}
		ap.idle = nil
		ap.mu.Unlock()
	}
	return nil
}

// Idle returns the number of idle sessions held for key.
func (cp *ConnectionPool) Idle(key string) int {
	ap := cp.lookup(key)
	if ap == nil {
		return 0
	}
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return len(ap.idle)
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func (cp *ConnectionPool) poolFor(key string, maxConcurrent int) *agentPool {
	if ap := cp.lookup(key); ap != nil {
		return ap
	}
	if maxConcurrent <= 0 {
		maxConcurrent = cp.opts.DefaultMaxConcurrent
	}

	cp.mu.Lock()
	defer cp.mu.Unlock()
	if ap, ok := cp.pools[key]; ok {
		return ap
	}
	ap := &agentPool{
		idle: make([]idleConn, 0, cp.opts.MaxIdlePerAgent),
		sem:  make(chan struct{}, maxConcurrent),
	}
	cp.pools[key] = ap
	return ap
}

func (cp *ConnectionPool) lookup(key string) *agentPool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.pools[key]
}

func (cp *ConnectionPool) popIdle(ap *agentPool) *gosnmp.GoSNMP {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	for len(ap.idle) > 0 {
		n := len(ap.idle) - 1
		e := ap.idle[n]
		ap.idle = ap.idle[:n]

		if cp.opts.IdleTimeout > 0 && time.Since(e.returnedAt) > cp.opts.IdleTimeout {
			closeConn(e.conn)
			continue
		}
		return e.conn
	}
	return nil
}

func closeConn(conn *gosnmp.GoSNMP) {
	if conn != nil && conn.Conn != nil {
		_ = conn.Conn.Close()
	}
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
