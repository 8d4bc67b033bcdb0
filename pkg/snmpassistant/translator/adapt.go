package translator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vpbank/snmp_assistant/models"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/validation"
)

var (
	// ErrInvalidJSON means the model reply is not a JSON object.
	ErrInvalidJSON = errors.New("model reply is not valid JSON")
	// ErrInvalidQuery means the reply parsed but does not describe a valid query.
	ErrInvalidQuery = errors.New("model reply is not a valid query")
	// ErrModelUnavailable means the model could not be reached after retries.
	ErrModelUnavailable = errors.New("language model unavailable")
)

// Defaults fill fields the model leaves out.
type Defaults struct {
	Port      int
	Timeout   int
	Retries   int
	Version   string
	Community string
	Command   string
	OID       string
}

// DefaultDefaults returns the built-in query defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Port:      models.DefaultPort,
		Timeout:   models.DefaultTimeout,
		Retries:   models.DefaultRetries,
		Version:   models.DefaultVersion,
		Community: models.DefaultCommunity,
		Command:   models.CommandGet,
		OID:       models.DefaultOID,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Model output shapes
// ─────────────────────────────────────────────────────────────────────────────

// legacyQuery is the older flat shape some models still return.
type legacyQuery struct {
	TargetIP        *string `json:"target_ip"`
	Port            *int    `json:"port"`
	Timeout         *int    `json:"timeout"`
	Retries         *int    `json:"retries"`
	SNMPVersion     *string `json:"snmp_version"`
	CommunityString *string `json:"community_string"`
	Operation       *string `json:"operation"`
	OID             *string `json:"oid"`
}

// modelOutput is a tagged union: exactly one of the two shapes is set.
type modelOutput struct {
	canonical *models.StructuredQuery
	legacy    *legacyQuery
}

// decodeModelOutput picks the shape by the presence of both "target" and
// "operation" keys and decodes into it. Canonical fields start out at their
// defaults so that omitted keys keep them.
func decodeModelOutput(raw []byte, d Defaults) (modelOutput, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return modelOutput{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if probe == nil {
		return modelOutput{}, fmt.Errorf("%w: reply is null", ErrInvalidJSON)
	}

	_, hasTarget := probe["target"]
	_, hasOperation := probe["operation"]
	if hasTarget && hasOperation {
		q := models.StructuredQuery{
			Target:      models.Target{Port: d.Port, Timeout: d.Timeout, Retries: d.Retries},
			Credentials: models.Credentials{Version: d.Version, Community: d.Community},
		}
		if err := json.Unmarshal(raw, &q); err != nil {
			return modelOutput{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		return modelOutput{canonical: &q}, nil
	}

	var l legacyQuery
	if err := json.Unmarshal(raw, &l); err != nil {
		return modelOutput{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return modelOutput{legacy: &l}, nil
}

// toQuery converts either shape into a StructuredQuery.
func (o modelOutput) toQuery(d Defaults) models.StructuredQuery {
	if o.canonical != nil {
		q := *o.canonical
		if q.Operation.OIDs == nil {
			q.Operation.OIDs = []string{}
		}
		if q.Operation.MibNames == nil {
			q.Operation.MibNames = []string{}
		}
		return q
	}

	l := o.legacy
	return models.StructuredQuery{
		Target: models.Target{
			Host:    deref(l.TargetIP, ""),
			Port:    deref(l.Port, d.Port),
			Timeout: deref(l.Timeout, d.Timeout),
			Retries: deref(l.Retries, d.Retries),
		},
		Credentials: models.Credentials{
			Version:   deref(l.SNMPVersion, d.Version),
			Community: deref(l.CommunityString, d.Community),
		},
		Operation: models.Operation{
			Command:  deref(l.Operation, d.Command),
			OIDs:     []string{deref(l.OID, d.OID)},
			MibNames: []string{},
		},
	}
}

// Adapt decodes a raw model reply in either shape, fills defaults and
// validates the result. It performs no I/O.
func Adapt(raw []byte, d Defaults) (models.StructuredQuery, error) {
	out, err := decodeModelOutput(raw, d)
	if err != nil {
		return models.StructuredQuery{}, err
	}
	q := out.toQuery(d)
	if err := validation.Struct(q); err != nil {
		return models.StructuredQuery{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return q, nil
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
