package poller_test

import (
	"net"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/gosnmp/gosnmp"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-process SNMP agent
// ─────────────────────────────────────────────────────────────────────────────

// fakeAgent answers GET, GETNEXT and GETBULK from a fixed, sorted MIB view
// over a loopback UDP socket.
type fakeAgent struct {
	conn      net.PacketConn
	community string
	view      []gosnmp.SnmpPDU
	silent    bool
}

// startAgent listens on an ephemeral loopback port and serves until the test
// ends. A silent agent reads requests but never answers.
func startAgent(t *testing.T, community string, view []gosnmp.SnmpPDU, silent bool) int {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	sorted := slices.Clone(view)
	slices.SortFunc(sorted, func(a, b gosnmp.SnmpPDU) int { return compareOID(a.Name, b.Name) })

	a := &fakeAgent{conn: conn, community: community, view: sorted, silent: silent}
	go a.serve()
	t.Cleanup(func() { _ = conn.Close() })
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func (a *fakeAgent) serve() {
	buf := make([]byte, 65535)
	for {
		n, from, err := a.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		if a.silent {
			continue
		}
		dec := &gosnmp.GoSNMP{}
		req, err := dec.SnmpDecodePacket(buf[:n])
		if err != nil || req.Community != a.community {
			continue
		}
		resp := &gosnmp.SnmpPacket{
			Version:   req.Version,
			Community: req.Community,
			PDUType:   gosnmp.GetResponse,
			RequestID: req.RequestID,
			Error:     gosnmp.NoError,
			Variables: a.answer(req),
		}
		out, err := resp.MarshalMsg()
		if err != nil {
			continue
		}
		_, _ = a.conn.WriteTo(out, from)
	}
}

func (a *fakeAgent) answer(req *gosnmp.SnmpPacket) []gosnmp.SnmpPDU {
	var vars []gosnmp.SnmpPDU
	for _, v := range req.Variables {
		oid := strings.TrimPrefix(v.Name, ".")
		switch req.PDUType {
		case gosnmp.GetRequest:
			vars = append(vars, a.exact(oid))
		case gosnmp.GetNextRequest:
			vars = append(vars, a.next(oid))
		case gosnmp.GetBulkRequest:
			reps := int(req.MaxRepetitions)
			if reps == 0 {
				reps = 1
			}
			cur := oid
			for range reps {
				pdu := a.next(cur)
				vars = append(vars, pdu)
				if pdu.Type == gosnmp.EndOfMibView {
					break
				}
				cur = pdu.Name
			}
		}
	}
	return vars
}

func (a *fakeAgent) exact(oid string) gosnmp.SnmpPDU {
	for _, pdu := range a.view {
		if pdu.Name == oid {
			return pdu
		}
	}
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.NoSuchObject}
}

func (a *fakeAgent) next(oid string) gosnmp.SnmpPDU {
	for _, pdu := range a.view {
		if compareOID(pdu.Name, oid) > 0 {
			return pdu
		}
	}
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.EndOfMibView}
}

func compareOID(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		x, _ := strconv.Atoi(pa[i])
		y, _ := strconv.Atoi(pb[i])
		if x != y {
			return x - y
		}
	}
	return len(pa) - len(pb)
}

// testView is a small system + interfaces MIB view.
func testView() []gosnmp.SnmpPDU {
	return []gosnmp.SnmpPDU{
		{Name: "1.3.6.1.2.1.1.1.0", Type: gosnmp.OctetString, Value: "Linux router 5.10"},
		{Name: "1.3.6.1.2.1.1.2.0", Type: gosnmp.ObjectIdentifier, Value: "1.3.6.1.4.1.8072.3.2.10"},
		{Name: "1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: "core-rtr-01"},
		{Name: "1.3.6.1.2.1.2.1.0", Type: gosnmp.Integer, Value: 2},
		{Name: "1.3.6.1.2.1.2.2.1.2.1", Type: gosnmp.OctetString, Value: "lo"},
		{Name: "1.3.6.1.2.1.2.2.1.2.2", Type: gosnmp.OctetString, Value: "eth0"},
		{Name: "1.3.6.1.2.1.2.2.1.3.1", Type: gosnmp.Integer, Value: 24},
		{Name: "1.3.6.1.2.1.2.2.1.3.2", Type: gosnmp.Integer, Value: 6},
	}
}
