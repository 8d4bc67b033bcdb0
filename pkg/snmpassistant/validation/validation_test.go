package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/snmp_assistant/models"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/validation"
)

func TestStruct_Valid(t *testing.T) {
	q := models.StructuredQuery{
		Target:    models.Target{Host: "192.0.2.1", Port: 161, Timeout: 5, Retries: 3},
		Operation: models.Operation{Command: "GET", OIDs: []string{"1.3.6.1.2.1.1.1.0"}},
	}
	assert.NoError(t, validation.Struct(q))
}

func TestStruct_FieldNamesFromTags(t *testing.T) {
	q := models.StructuredQuery{
		Target: models.Target{Port: 70000},
	}
	err := validation.Struct(q)
	require.Error(t, err)

	var verr *validation.Errors
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, e := range verr.Errors {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "target.host is required", fields["target.host"])
	assert.Equal(t, "target.port must be at most 65535", fields["target.port"])
	assert.Equal(t, "operation.command is required", fields["operation.command"])
	assert.Contains(t, err.Error(), "validation failed: ")
}

func TestStruct_YAMLTags(t *testing.T) {
	type server struct {
		ListenAddr string `yaml:"listen" validate:"required"`
	}
	type cfg struct {
		Server server `yaml:"server"`
	}
	err := validation.Struct(cfg{})
	require.Error(t, err)

	var verr *validation.Errors
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "server.listen", verr.Errors[0].Field)
}
