package decoder_test

import (
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/vpbank/snmp_assistant/snmp/decoder"
)

// ─────────────────────────────────────────────────────────────────────────────
// FormatValue
// ─────────────────────────────────────────────────────────────────────────────

type opaqueThing struct{ A int }

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"utf8 bytes", []byte("Linux router 5.10"), "Linux router 5.10"},
		{"binary bytes", []byte{0x00, 0x1a, 0xff}, "001aff"},
		{"empty bytes", []byte{}, ""},
		{"string", "hello", "hello"},
		{"int", 42, 42},
		{"uint counter", uint(1234567890), uint(1234567890)},
		{"uint64 counter", uint64(1) << 40, uint64(1) << 40},
		{"float", 1.5, 1.5},
		{"bool", true, true},
		{"nil", nil, "Null"},
		{"struct", opaqueThing{A: 7}, "{7}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := decoder.FormatValue(tc.in)
			if got != tc.want {
				t.Errorf("FormatValue(%v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormatPDU(t *testing.T) {
	tests := []struct {
		name string
		pdu  gosnmp.SnmpPDU
		want any
	}{
		{
			name: "octet string",
			pdu:  gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.1.1.0", Type: gosnmp.OctetString, Value: []byte("Cisco IOS")},
			want: "Cisco IOS",
		},
		{
			name: "mac address bytes fall back to hex",
			pdu:  gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.2.2.1.6.1", Type: gosnmp.OctetString, Value: []byte{0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0xfe}},
			want: "001a2b3c4dfe",
		},
		{
			name: "object identifier",
			pdu:  gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.1.2.0", Type: gosnmp.ObjectIdentifier, Value: ".1.3.6.1.4.1.9.1.1"},
			want: "1.3.6.1.4.1.9.1.1",
		},
		{
			name: "ip address",
			pdu:  gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.4.20.1.1.10.0.0.1", Type: gosnmp.IPAddress, Value: "10.0.0.1"},
			want: "10.0.0.1",
		},
		{
			name: "timeticks",
			pdu:  gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.1.3.0", Type: gosnmp.TimeTicks, Value: uint32(123456)},
			want: uint32(123456),
		},
		{
			name: "opaque float widened",
			pdu:  gosnmp.SnmpPDU{Type: gosnmp.OpaqueFloat, Value: float32(0.5)},
			want: float64(0.5),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := decoder.FormatPDU(tc.pdu)
			if got != tc.want {
				t.Errorf("FormatPDU = %#v, want %#v", got, tc.want)
			}
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Exception types
// ─────────────────────────────────────────────────────────────────────────────

func TestErrorText(t *testing.T) {
	tests := []struct {
		typ     gosnmp.Asn1BER
		isError bool
		text    string
	}{
		{gosnmp.NoSuchObject, true, "No such object"},
		{gosnmp.NoSuchInstance, true, "No such instance"},
		{gosnmp.EndOfMibView, true, "End of MIB view"},
		{gosnmp.Integer, false, "Integer"},
		{gosnmp.Null, false, "Null"},
	}
	for _, tc := range tests {
		if got := decoder.IsErrorType(tc.typ); got != tc.isError {
			t.Errorf("IsErrorType(%s) = %v, want %v", decoder.PDUTypeString(tc.typ), got, tc.isError)
		}
		if got := decoder.ErrorText(tc.typ); got != tc.text {
			t.Errorf("ErrorText(%s) = %q, want %q", decoder.PDUTypeString(tc.typ), got, tc.text)
		}
	}
}

func TestNormalizeOID(t *testing.T) {
	for in, want := range map[string]string{
		".1.3.6.1":   "1.3.6.1",
		"1.3.6.1":    "1.3.6.1",
		" .1.3.6.1 ": "1.3.6.1",
	} {
		if got := decoder.NormalizeOID(in); got != want {
			t.Errorf("NormalizeOID(%q) = %q, want %q", in, got, want)
		}
	}
}
