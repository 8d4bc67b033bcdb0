// Command snmpassistant answers plain-language SNMP questions.
//
// It either serves the HTTP API (-serve) or runs a single operation and
// prints the result:
//
//	snmpassistant -query "What is the uptime of 10.0.0.1?"
//	snmpassistant -mibs.list
//	snmpassistant -mib.add ./CISCO-PROCESS-MIB.my
//	snmpassistant -oid.resolve IF-MIB::ifDescr.1
//	snmpassistant -oid.translate 1.3.6.1.2.1.2.2.1.2.1
//	snmpassistant -serve -listen :8000
//
// Configuration comes from -config (or SNMP_ASSISTANT_CONFIG) plus the
// environment overrides documented in package config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsonformat "github.com/vpbank/snmp_assistant/format/json"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/app"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/config"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/server"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "snmpassistant: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	logLevel string
	logFmt   string
	cfgPath  string
	pretty   bool

	serve       bool
	listen      string
	historyFile string

	query     string
	skipCache bool
	listMibs  bool
	addMib    string
	resolve   string
	translate string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("snmpassistant", flag.ContinueOnError)

	fs.StringVar(&o.logLevel, "log.level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	fs.StringVar(&o.logFmt, "log.fmt", "text", "Log format: json, text")
	fs.StringVar(&o.cfgPath, "config", "", "YAML configuration file (default: $SNMP_ASSISTANT_CONFIG)")
	fs.BoolVar(&o.pretty, "format.pretty", false, "Pretty-print JSON output")

	fs.BoolVar(&o.serve, "serve", false, "Serve the HTTP API")
	fs.StringVar(&o.listen, "listen", "", "Override server.listen")
	fs.StringVar(&o.historyFile, "history.file", "", "Override history.file_path")

	fs.StringVar(&o.query, "query", "", "Answer one natural-language query")
	fs.BoolVar(&o.skipCache, "skip-cache", false, "Bypass the response cache for -query")
	fs.BoolVar(&o.listMibs, "mibs.list", false, "List loaded MIB modules")
	fs.StringVar(&o.addMib, "mib.add", "", "Copy a MIB file into the MIB directory")
	fs.StringVar(&o.resolve, "oid.resolve", "", "Resolve a symbolic name to a numeric OID")
	fs.StringVar(&o.translate, "oid.translate", "", "Translate a numeric OID to a symbolic name")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	modes := 0
	for _, set := range []bool{o.serve, o.query != "", o.listMibs, o.addMib != "", o.resolve != "", o.translate != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return o, errors.New("exactly one of -serve, -query, -mibs.list, -mib.add, -oid.resolve, -oid.translate is required")
	}
	return o, nil
}

func run(args []string, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	// ── Logger ───────────────────────────────────────────────────────────
	logger, err := buildLogger(o.logLevel, o.logFmt)
	if err != nil {
		return err
	}

	// ── Config ───────────────────────────────────────────────────────────
	cfg, err := config.Load(o.cfgPath, logger)
	if err != nil {
		return err
	}
	if o.listen != "" {
		cfg.Server.Listen = o.listen
	}
	if o.historyFile != "" {
		cfg.History.FilePath = o.historyFile
	}

	// ── Build App ────────────────────────────────────────────────────────
	application, err := app.New(cfg, app.Options{}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("snmpassistant: close", "error", err.Error())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case o.serve:
		srv := server.New(server.Config{
			Listen:  cfg.Server.Listen,
			Metrics: application.Metrics().Handler(),
		}, application, logger)
		logger.Info("snmpassistant: serving, press Ctrl-C to stop")
		return srv.Run(ctx)

	case o.query != "":
		resp, err := application.Query(ctx, o.query, o.skipCache)
		out, ferr := jsonformat.New(jsonformat.Config{PrettyPrint: o.pretty}, logger).FormatResponse(&resp)
		if ferr != nil {
			return ferr
		}
		fmt.Fprintln(stdout, string(out))
		return err

	case o.listMibs:
		mibs := application.LoadedMibs()
		if len(mibs) == 0 {
			fmt.Fprintln(stdout, "No MIBs available")
			return nil
		}
		fmt.Fprintf(stdout, "Available MIBs (%d):\n", len(mibs))
		for _, m := range mibs {
			fmt.Fprintf(stdout, "- %s\n", m)
		}
		return nil

	case o.addMib != "":
		label, err := application.AddMib(o.addMib)
		if err != nil {
			return fmt.Errorf("add MIB: %w", err)
		}
		fmt.Fprintf(stdout, "MIB %s added\n", label)
		return nil

	case o.resolve != "":
		oid, ok := application.ResolveName(o.resolve)
		if !ok {
			return fmt.Errorf("OID not found: %s", o.resolve)
		}
		fmt.Fprintf(stdout, "%s = %s\n", o.resolve, oid)
		return nil

	default:
		name, ok := application.TranslateOID(o.translate)
		if !ok {
			return fmt.Errorf("OID not found: %s", o.translate)
		}
		fmt.Fprintf(stdout, "%s = %s\n", o.translate, name)
		return nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func buildLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json|text)", format)
	}

	return slog.New(handler), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
