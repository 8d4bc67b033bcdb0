package poller_test

import (
	"context"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/poller"
)

func dialAgent(t *testing.T, version string, port int) (*poller.ConnectionPool, poller.SessionParams, poller.Session) {
	t.Helper()
	pool := poller.NewConnectionPool(poller.PoolOptions{}, nil)
	t.Cleanup(func() { _ = pool.Close() })

	params := poller.SessionParams{
		Host:      "127.0.0.1",
		Port:      port,
		Version:   version,
		Community: "public",
		Timeout:   300 * time.Millisecond,
		Retries:   0,
	}
	sess, err := poller.NewSNMPDialer(pool, nil).Dial(context.Background(), params)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return pool, params, sess
}

func TestSession_Get(t *testing.T) {
	port := startAgent(t, "public", testView(), false)
	pool, params, sess := dialAgent(t, "2c", port)
	ctx := context.Background()

	pdu, err := sess.Get(ctx, "1.3.6.1.2.1.1.5.0")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pdu.Name != ".1.3.6.1.2.1.1.5.0" {
		t.Errorf("Name = %q", pdu.Name)
	}
	if pdu.Type != gosnmp.OctetString || string(pdu.Value.([]byte)) != "core-rtr-01" {
		t.Errorf("unexpected varbind %+v", pdu)
	}

	missing, err := sess.Get(ctx, "1.3.6.1.2.1.1.99.0")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if missing.Type != gosnmp.NoSuchObject {
		t.Errorf("Type = %v, want NoSuchObject", missing.Type)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := pool.Idle(params.Key()); n != 1 {
		t.Errorf("healthy session not returned to pool: idle=%d", n)
	}
}

func TestSession_GetNext(t *testing.T) {
	port := startAgent(t, "public", testView(), false)
	_, _, sess := dialAgent(t, "2c", port)
	defer sess.Close()

	pdu, err := sess.GetNext(context.Background(), "1.3.6.1.2.1.1.2.0")
	if err != nil {
		t.Fatalf("GetNext: %v", err)
	}
	if pdu.Name != ".1.3.6.1.2.1.1.5.0" {
		t.Errorf("GetNext returned %q, want sysName.0", pdu.Name)
	}
}

func TestSession_Walk(t *testing.T) {
	for _, version := range []string{"1", "2c"} {
		t.Run("v"+version, func(t *testing.T) {
			port := startAgent(t, "public", testView(), false)
			_, _, sess := dialAgent(t, version, port)
			defer sess.Close()

			var names []string
			for pdu, err := range sess.Walk(context.Background(), "1.3.6.1.2.1.2.2.1.2") {
				if err != nil {
					t.Fatalf("Walk: %v", err)
				}
				names = append(names, pdu.Name)
			}
			want := []string{".1.3.6.1.2.1.2.2.1.2.1", ".1.3.6.1.2.1.2.2.1.2.2"}
			if len(names) != len(want) {
				t.Fatalf("walk returned %v, want %v", names, want)
			}
			for i := range want {
				if names[i] != want[i] {
					t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
				}
			}
		})
	}
}

func TestSession_WalkStopsEarly(t *testing.T) {
	port := startAgent(t, "public", testView(), false)
	_, _, sess := dialAgent(t, "2c", port)
	defer sess.Close()

	count := 0
	for _, err := range sess.Walk(context.Background(), "1.3.6.1.2.1") {
		if err != nil {
			t.Fatalf("Walk: %v", err)
		}
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// The session is still usable after an abandoned walk.
	if _, err := sess.Get(context.Background(), "1.3.6.1.2.1.1.1.0"); err != nil {
		t.Errorf("Get after early stop: %v", err)
	}
}

func TestSession_BulkGet(t *testing.T) {
	port := startAgent(t, "public", testView(), false)
	_, _, sess := dialAgent(t, "2c", port)
	defer sess.Close()

	pdus, err := sess.BulkGet(context.Background(), "1.3.6.1.2.1.2.2.1.2", 0, 3)
	if err != nil {
		t.Fatalf("BulkGet: %v", err)
	}
	if len(pdus) != 3 {
		t.Fatalf("got %d varbinds, want 3", len(pdus))
	}
	if pdus[2].Name != ".1.3.6.1.2.1.2.2.1.3.1" {
		t.Errorf("third varbind = %q, want ifType.1", pdus[2].Name)
	}
}

func TestSession_TimeoutIsTransportError(t *testing.T) {
	port := startAgent(t, "public", nil, true)
	pool, params, sess := dialAgent(t, "2c", port)

	_, err := sess.Get(context.Background(), "1.3.6.1.2.1.1.1.0")
	if !poller.IsTransportError(err) {
		t.Fatalf("err = %v, want transport error", err)
	}

	_ = sess.Close()
	if n := pool.Idle(params.Key()); n != 0 {
		t.Errorf("broken session returned to pool: idle=%d", n)
	}
}

func TestSession_WalkTimeoutYieldsError(t *testing.T) {
	port := startAgent(t, "public", nil, true)
	_, _, sess := dialAgent(t, "2c", port)
	defer sess.Close()

	var errs []error
	for _, err := range sess.Walk(context.Background(), "1.3.6.1.2.1.2") {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 1 || !poller.IsTransportError(errs[0]) {
		t.Fatalf("errs = %v, want one transport error", errs)
	}
}
