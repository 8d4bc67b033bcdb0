package translator

import (
	"encoding/json"
	"fmt"

	"github.com/vpbank/snmp_assistant/models"
)

// DefaultSystemPrompt asks the model for the canonical query shape.
const DefaultSystemPrompt = `You translate network management requests written in plain language into
SNMP requests for an automated scanner.

Reply with one JSON object that has exactly this structure:
{
  "target": {
    "host": "IP_ADDRESS_OR_HOSTNAME",
    "port": 161,
    "timeout": 5,
    "retries": 3
  },
  "credentials": {
    "version": "2c",
    "community": "public"
  },
  "operation": {
    "command": "GET",
    "oids": ["1.3.6.1.2.1.1.1.0"],
    "mib_names": []
  }
}

Field rules:
- target.host: the device address named in the request (required)
- target.port: SNMP port, 161 unless stated
- target.timeout: seconds to wait per request, 5 unless stated
- target.retries: retry count, 3 unless stated
- credentials.version: "1", "2c" or "3", "2c" unless stated
- credentials.community: community string for v1/v2c, "public" unless stated
- operation.command: one of "GET", "GETNEXT", "WALK", "BULK" (required)
- operation.oids: numeric OIDs or names such as "IF-MIB::ifDescr" (required, may be empty when mib_names is set)
- operation.mib_names: MIB modules whose known objects should all be fetched (optional)
- operation.max_repetitions and operation.non_repeaters: only for BULK (optional)

Do not add, rename or omit fields.`

// summarySystemPrompt frames the summarization call.
const summarySystemPrompt = "You are a helpful assistant that explains SNMP responses in plain language."

// FallbackSummary is returned when a summary cannot be produced.
const FallbackSummary = "Unable to generate summary."

func translatePrompt(text string) string {
	return fmt.Sprintf("Convert this SNMP query to a JSON structure: '%s'", text)
}

func summaryPrompt(text string, result models.ResultMap) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Original query: '%s'\nSNMP response: %s\n\nProvide a concise summary of this SNMP data.", text, data), nil
}
