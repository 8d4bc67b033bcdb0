// Package models defines the core data structures shared across all layers of
// the SNMP assistant. Every other package depends on this package and nothing
// here depends on any other internal package.
package models

import "strings"

// Supported operation commands. Dispatch compares them case-insensitively.
const (
	CommandGet     = "GET"
	CommandGetNext = "GETNEXT"
	CommandWalk    = "WALK"
	CommandBulk    = "BULK"
)

// Defaults applied when a query leaves a field unset.
const (
	DefaultPort           = 161
	DefaultTimeout        = 5
	DefaultRetries        = 3
	DefaultVersion        = "2c"
	DefaultCommunity      = "public"
	DefaultMaxRepetitions = 10
	DefaultOID            = "1.3.6.1.2.1.1.1.0"
)

// GETBULK field limits: non-repeaters travels as one octet, max-repetitions
// as a non-negative 32-bit INTEGER.
const (
	MaxNonRepeaters   = 255
	MaxMaxRepetitions = 2147483647
)

// StructuredQuery is the validated, machine-executable form of a natural
// language request. Field names follow the JSON schema the language model is
// asked to produce.
type StructuredQuery struct {
	Target      Target      `json:"target"`
	Credentials Credentials `json:"credentials"`
	Operation   Operation   `json:"operation"`

	// RawQuery is the original free text the query was translated from.
	RawQuery string `json:"raw_query,omitempty"`
}

// Target identifies the SNMP agent. Timeout is in seconds.
type Target struct {
	Host    string `json:"host" validate:"required"`
	Port    int    `json:"port" validate:"gte=0,lte=65535"`
	Timeout int    `json:"timeout" validate:"gte=0"`
	Retries int    `json:"retries" validate:"gte=0"`
}

// Credentials carries the community string for v1/v2c. The SNMPv3 fields are
// accepted from the model but never used by the executor.
type Credentials struct {
	Version      string `json:"version"`
	Community    string `json:"community,omitempty"`
	Username     string `json:"username,omitempty"`
	AuthProtocol string `json:"auth_protocol,omitempty"`
	AuthPassword string `json:"auth_password,omitempty"`
	PrivProtocol string `json:"priv_protocol,omitempty"`
	PrivPassword string `json:"priv_password,omitempty"`
}

// Operation describes what to fetch. OIDs may be numeric (".1.3...") or
// symbolic ("IF-MIB::ifDescr.1"); MibNames expand to every known object of
// that MIB.
type Operation struct {
	Command        string   `json:"command" validate:"required"`
	OIDs           []string `json:"oids"`
	MibNames       []string `json:"mib_names"`
	MaxRepetitions *int     `json:"max_repetitions,omitempty" validate:"omitempty,gte=0,lte=2147483647"`
	NonRepeaters   *int     `json:"non_repeaters,omitempty" validate:"omitempty,gte=0,lte=255"`
}

// NormalizedCommand returns the command upper-cased and trimmed.
func (o Operation) NormalizedCommand() string {
	return strings.ToUpper(strings.TrimSpace(o.Command))
}

// WithDefaults fills zero-valued target and credential fields.
func (q StructuredQuery) WithDefaults() StructuredQuery {
	if q.Target.Port == 0 {
		q.Target.Port = DefaultPort
	}
	if q.Target.Timeout == 0 {
		q.Target.Timeout = DefaultTimeout
	}
	if q.Credentials.Version == "" {
		q.Credentials.Version = DefaultVersion
	}
	if q.Operation.OIDs == nil {
		q.Operation.OIDs = []string{}
	}
	if q.Operation.MibNames == nil {
		q.Operation.MibNames = []string{}
	}
	return q
}
