package translator_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/snmp_assistant/models"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/translator"
)

func TestAdapt_Canonical(t *testing.T) {
	raw := `{
		"target": {"host": "192.0.2.10", "port": 1161, "timeout": 2, "retries": 0},
		"credentials": {"version": "1", "community": "private"},
		"operation": {"command": "bulk", "oids": ["IF-MIB::ifDescr"], "mib_names": ["IF-MIB"], "max_repetitions": 25}
	}`
	q, err := translator.Adapt([]byte(raw), translator.DefaultDefaults())
	require.NoError(t, err)

	assert.Equal(t, models.Target{Host: "192.0.2.10", Port: 1161, Timeout: 2, Retries: 0}, q.Target)
	assert.Equal(t, "1", q.Credentials.Version)
	assert.Equal(t, "private", q.Credentials.Community)
	assert.Equal(t, "bulk", q.Operation.Command)
	assert.Equal(t, []string{"IF-MIB::ifDescr"}, q.Operation.OIDs)
	assert.Equal(t, []string{"IF-MIB"}, q.Operation.MibNames)
	require.NotNil(t, q.Operation.MaxRepetitions)
	assert.Equal(t, 25, *q.Operation.MaxRepetitions)
	assert.Nil(t, q.Operation.NonRepeaters)
}

func TestAdapt_CanonicalDefaults(t *testing.T) {
	raw := `{"target": {"host": "router1"}, "operation": {"command": "GET"}}`
	q, err := translator.Adapt([]byte(raw), translator.DefaultDefaults())
	require.NoError(t, err)

	assert.Equal(t, models.Target{Host: "router1", Port: 161, Timeout: 5, Retries: 3}, q.Target)
	assert.Equal(t, "2c", q.Credentials.Version)
	assert.Equal(t, "public", q.Credentials.Community)
	assert.Equal(t, []string{}, q.Operation.OIDs)
	assert.Equal(t, []string{}, q.Operation.MibNames)
}

func TestAdapt_Legacy(t *testing.T) {
	raw := `{"target_ip": "10.0.0.1", "snmp_version": "1", "community_string": "ops", "operation": "WALK", "oid": "1.3.6.1.2.1.2.2"}`
	q, err := translator.Adapt([]byte(raw), translator.DefaultDefaults())
	require.NoError(t, err)

	assert.Equal(t, models.StructuredQuery{
		Target:      models.Target{Host: "10.0.0.1", Port: 161, Timeout: 5, Retries: 3},
		Credentials: models.Credentials{Version: "1", Community: "ops"},
		Operation: models.Operation{
			Command:  "WALK",
			OIDs:     []string{"1.3.6.1.2.1.2.2"},
			MibNames: []string{},
		},
	}, q)
}

func TestAdapt_LegacyDefaults(t *testing.T) {
	q, err := translator.Adapt([]byte(`{"target_ip": "10.0.0.2"}`), translator.DefaultDefaults())
	require.NoError(t, err)

	assert.Equal(t, "GET", q.Operation.Command)
	assert.Equal(t, []string{"1.3.6.1.2.1.1.1.0"}, q.Operation.OIDs)
	assert.Equal(t, "2c", q.Credentials.Version)
	assert.Equal(t, "public", q.Credentials.Community)
}

func TestAdapt_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `here is your query: GET sysDescr`, translator.ErrInvalidJSON},
		{"json array", `[1, 2, 3]`, translator.ErrInvalidJSON},
		{"json null", `null`, translator.ErrInvalidJSON},
		{"missing host", `{"target": {"port": 161}, "operation": {"command": "GET"}}`, translator.ErrInvalidQuery},
		{"missing command", `{"target": {"host": "h"}, "operation": {"oids": ["1.3"]}}`, translator.ErrInvalidQuery},
		{"wrong type", `{"target": {"host": "h", "port": "one-six-one"}, "operation": {"command": "GET"}}`, translator.ErrInvalidQuery},
		{"legacy without target", `{"operation": "GET", "oid": "1.3.6.1.2.1.1.5.0"}`, translator.ErrInvalidQuery},
		{"legacy wrong type", `{"target_ip": 10}`, translator.ErrInvalidQuery},
		{"non_repeaters above one octet", `{"target": {"host": "h"}, "operation": {"command": "BULK", "oids": ["1.3"], "non_repeaters": 300}}`, translator.ErrInvalidQuery},
		{"negative max_repetitions", `{"target": {"host": "h"}, "operation": {"command": "BULK", "oids": ["1.3"], "max_repetitions": -1}}`, translator.ErrInvalidQuery},
		{"max_repetitions above int32", `{"target": {"host": "h"}, "operation": {"command": "BULK", "oids": ["1.3"], "max_repetitions": 2147483648}}`, translator.ErrInvalidQuery},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := translator.Adapt([]byte(tc.raw), translator.DefaultDefaults())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestAdapt_BulkLimits(t *testing.T) {
	q, err := translator.Adapt([]byte(`{"target": {"host": "h"}, "operation": {"command": "BULK", "oids": ["1.3"], "non_repeaters": 255, "max_repetitions": 2147483647}}`),
		translator.DefaultDefaults())
	require.NoError(t, err)
	require.NotNil(t, q.Operation.NonRepeaters)
	require.NotNil(t, q.Operation.MaxRepetitions)
	assert.Equal(t, 255, *q.Operation.NonRepeaters)
	assert.Equal(t, 2147483647, *q.Operation.MaxRepetitions)
}
