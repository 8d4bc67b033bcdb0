// Package decoder normalizes raw gosnmp varbinds into the JSON-friendly values
// stored in a models.ResultMap, and names the SNMP exception types that an
// agent can return in place of a value.
package decoder

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/gosnmp/gosnmp"
)

// ─────────────────────────────────────────────────────────────────────────────
// SNMP PDU Type → String
// ─────────────────────────────────────────────────────────────────────────────

// PDUTypeString returns the human-readable name for a gosnmp Asn1BER type tag.
func PDUTypeString(t gosnmp.Asn1BER) string {
	switch t {
	case gosnmp.Integer:
		return "Integer"
	case gosnmp.BitString:
		return "BitString"
	case gosnmp.OctetString:
		return "OctetString"
	case gosnmp.Null:
		return "Null"
	case gosnmp.ObjectIdentifier:
		return "ObjectIdentifier"
	case gosnmp.ObjectDescription:
		return "ObjectDescription"
	case gosnmp.IPAddress:
		return "IpAddress"
	case gosnmp.Counter32:
		return "Counter32"
	case gosnmp.Gauge32:
		return "Gauge32"
	case gosnmp.TimeTicks:
		return "TimeTicks"
	case gosnmp.Opaque:
		return "Opaque"
	case gosnmp.NsapAddress:
		return "NsapAddress"
	case gosnmp.Counter64:
		return "Counter64"
	case gosnmp.Uinteger32:
		return "Unsigned32"
	case gosnmp.OpaqueFloat:
		return "OpaqueFloat"
	case gosnmp.OpaqueDouble:
		return "OpaqueDouble"
	case gosnmp.NoSuchObject:
		return "NoSuchObject"
	case gosnmp.NoSuchInstance:
		return "NoSuchInstance"
	case gosnmp.EndOfMibView:
		return "EndOfMibView"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint8(t))
	}
}

// IsErrorType returns true when the PDU type signals a per-OID retrieval
// failure rather than an actual value.
func IsErrorType(t gosnmp.Asn1BER) bool {
	return t == gosnmp.NoSuchObject || t == gosnmp.NoSuchInstance || t == gosnmp.EndOfMibView
}

// ErrorText is the message stored inline for an exception varbind.
func ErrorText(t gosnmp.Asn1BER) string {
	switch t {
	case gosnmp.NoSuchObject:
		return "No such object"
	case gosnmp.NoSuchInstance:
		return "No such instance"
	case gosnmp.EndOfMibView:
		return "End of MIB view"
	default:
		return PDUTypeString(t)
	}
}

// NormalizeOID strips surrounding whitespace and a single leading dot.
func NormalizeOID(oid string) string {
	return strings.TrimPrefix(strings.TrimSpace(oid), ".")
}

// ─────────────────────────────────────────────────────────────────────────────
// Value normalization
// ─────────────────────────────────────────────────────────────────────────────

// FormatPDU normalizes the value of a single varbind. Address and OID types
// get their canonical text form; everything else goes through FormatValue.
func FormatPDU(pdu gosnmp.SnmpPDU) any {
	switch pdu.Type {
	case gosnmp.IPAddress:
		return toIPString(pdu.Value)
	case gosnmp.ObjectIdentifier:
		return toOIDString(pdu.Value)
	case gosnmp.OpaqueFloat:
		if f, ok := pdu.Value.(float32); ok {
			return float64(f)
		}
	}
	return FormatValue(pdu.Value)
}

// FormatValue maps an arbitrary wire value onto a JSON primitive:
//
//   - byte sequences become text when they are valid UTF-8, else lowercase hex
//   - numbers, booleans and strings pass through unchanged
//   - anything else is stringified
func FormatValue(v any) any {
	switch x := v.(type) {
	case nil:
		return "Null"
	case []byte:
		if utf8.Valid(x) {
			return string(x)
		}
		return hex.EncodeToString(x)
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Low-level conversion helpers
// ─────────────────────────────────────────────────────────────────────────────

// toOIDString returns the dotted-decimal OID string without a leading dot.
func toOIDString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimPrefix(x, ".")
	case []byte:
		return strings.TrimPrefix(string(x), ".")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toIPString converts an IpAddress value (4-byte slice or string) to dotted-
// decimal notation, e.g. "192.168.1.1".
func toIPString(v any) string {
	switch x := v.(type) {
	case string:
		b := []byte(x)
		if len(b) == 4 && net.ParseIP(x) == nil {
			return net.IP(b).String()
		}
		return x
	case []byte:
		if len(x) == 4 || len(x) == 16 {
			return net.IP(x).String()
		}
		return hex.EncodeToString(x)
	default:
		return fmt.Sprintf("%v", v)
	}
}
