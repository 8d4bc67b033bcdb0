package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, v := range []string{"SNMP_ASSISTANT_CONFIG", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL"} {
		t.Setenv(v, "")
	}
	t.Setenv("MIB_DIRECTORY", t.TempDir())
}

func TestParseFlags_RequiresOneMode(t *testing.T) {
	if _, err := parseFlags(nil); err == nil {
		t.Error("expected error without a mode")
	}
	if _, err := parseFlags([]string{"-mibs.list", "-oid.resolve", "x"}); err == nil {
		t.Error("expected error with two modes")
	}
	o, err := parseFlags([]string{"-query", "uptime of 10.0.0.1", "-skip-cache", "-format.pretty"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.query != "uptime of 10.0.0.1" || !o.skipCache || !o.pretty {
		t.Errorf("options = %+v", o)
	}
}

func TestParseFlags_LogLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	o, err := parseFlags([]string{"-mibs.list"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.logLevel != "DEBUG" {
		t.Errorf("logLevel = %q", o.logLevel)
	}
	if _, err := buildLogger(o.logLevel, "text"); err != nil {
		t.Errorf("buildLogger: %v", err)
	}
}

func TestBuildLogger_Rejects(t *testing.T) {
	if _, err := buildLogger("verbose", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := buildLogger("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRun_ListMibs(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	if err := run([]string{"-mibs.list", "-log.level", "error"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Available MIBs (2):") || !strings.Contains(out.String(), "- IF-MIB\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_ResolveAndTranslate(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	if err := run([]string{"-oid.resolve", "IF-MIB::ifDescr.1", "-log.level", "error"}, &out); err != nil {
		t.Fatalf("run resolve: %v", err)
	}
	if out.String() != "IF-MIB::ifDescr.1 = 1.3.6.1.2.1.2.2.1.2.1\n" {
		t.Errorf("resolve output = %q", out.String())
	}

	out.Reset()
	if err := run([]string{"-oid.translate", "1.3.6.1.2.1.1.5.0", "-log.level", "error"}, &out); err != nil {
		t.Fatalf("run translate: %v", err)
	}
	if out.String() != "1.3.6.1.2.1.1.5.0 = SNMPv2-MIB::sysName.0\n" {
		t.Errorf("translate output = %q", out.String())
	}

	if err := run([]string{"-oid.resolve", "NOPE-MIB::x", "-log.level", "error"}, &out); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestRun_AddMib(t *testing.T) {
	isolate(t)
	src := filepath.Join(t.TempDir(), "HOST-RESOURCES-MIB.txt")
	if err := os.WriteFile(src, []byte("HOST-RESOURCES-MIB DEFINITIONS ::= BEGIN\nEND\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run([]string{"-mib.add", src, "-log.level", "error"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "MIB HOST-RESOURCES-MIB added\n" {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(os.Getenv("MIB_DIRECTORY"), "HOST-RESOURCES-MIB.txt")); err != nil {
		t.Errorf("MIB file not copied: %v", err)
	}
}
