// Package poller owns the SNMP transport. It converts per-request session
// parameters into live gosnmp sessions, keeps an exclusive-use connection
// pool per agent, and exposes Get / GetNext / Walk / BulkGet through the
// Session interface consumed by the executor.
package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
)

// ErrUnsupportedVersion is returned for any SNMP version other than "1" and "2c".
var ErrUnsupportedVersion = errors.New("unsupported SNMP version")

// ─────────────────────────────────────────────────────────────────────────────
// Session parameters
// ─────────────────────────────────────────────────────────────────────────────

// SessionParams describes one agent and how to talk to it.
type SessionParams struct {
	Host      string
	Port      int
	Version   string // "1" or "2c"
	Community string
	Timeout   time.Duration
	Retries   int

	// MaxConcurrent caps simultaneous sessions to this agent (default 4).
	MaxConcurrent int
}

// Key identifies the pool a session belongs to. Sessions are only reused
// for the same agent, version and community.
func (p SessionParams) Key() string {
	return fmt.Sprintf("%s:%d/%s/%s", p.Host, p.Port, p.Version, p.Community)
}

// Addr is host:port for logging.
func (p SessionParams) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// ─────────────────────────────────────────────────────────────────────────────
// Session factory: SessionParams → *gosnmp.GoSNMP
// ─────────────────────────────────────────────────────────────────────────────

// NewSession creates and connects a gosnmp session for p. The caller is
// responsible for closing Conn when the session is no longer needed.
func NewSession(p SessionParams) (*gosnmp.GoSNMP, error) {
	g := &gosnmp.GoSNMP{
		Target:    p.Host,
		Port:      uint16(p.Port),
		Community: p.Community,
		Timeout:   p.Timeout,
		Retries:   p.Retries,
		MaxOids:   gosnmp.MaxOids,
	}

	switch p.Version {
	case "1":
		g.Version = gosnmp.Version1
	case "2c":
		g.Version = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedVersion, p.Version)
	}

	if err := g.Connect(); err != nil {
		return nil, &TransportError{Op: "connect", Addr: p.Addr(), Err: err}
	}
	return g, nil
}
