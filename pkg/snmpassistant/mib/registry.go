// Package mib implements the Name Registry: a small in-memory table mapping
// symbolic names such as "IF-MIB::ifDescr" to numeric OIDs and back, plus the
// set of MIB modules the operator has made available.
//
// The registry does not parse MIB files. AddMibFile only stores a copy of the
// file and records its module label.
package mib

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrMibNotFound is returned by AddMibFile when the source file is missing.
var ErrMibNotFound = errors.New("mib file not found")

// oidCachePrefix prefixes cached OIDsForMib results.
const oidCachePrefix = "mib_oids_"

// Store is the subset of the response cache the registry uses to memoize
// per-module OID lists.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Options configures a Registry.
type Options struct {
	// Dir receives copies of files passed to AddMibFile.
	Dir string

	// Cache memoizes OIDsForMib results. Optional.
	Cache Store
}

// Registry is safe for concurrent use.
type Registry struct {
	opts   Options
	logger *slog.Logger

	mu     sync.RWMutex
	byName map[string]string   // full name → oid
	byOID  map[string]string   // oid → full name
	labels map[string][]string // object label (no module) → full names
	loaded map[string]struct{}
}

// NewRegistry returns a registry seeded with the SNMPv2-MIB system group and
// the IF-MIB interface table.
func NewRegistry(opts Options, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	r := &Registry{
		opts:   opts,
		logger: logger,
		byName: make(map[string]string, len(builtinNames)),
		byOID:  make(map[string]string, len(builtinNames)),
		labels: make(map[string][]string, len(builtinNames)),
		loaded: make(map[string]struct{}, len(builtinMibs)),
	}
	for _, n := range builtinNames {
		r.Register(n.name, n.oid)
	}
	for _, m := range builtinMibs {
		r.loaded[m] = struct{}{}
	}
	return r
}

// Register adds or replaces a name ↔ OID pair. The OID is stored without a
// leading dot.
func (r *Registry) Register(name, oid string) {
	name = strings.TrimSpace(name)
	oid = normaliseOID(oid)
	if name == "" || oid == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byName[name]; ok {
		if r.byOID[old] == name {
			delete(r.byOID, old)
		}
	} else {
		label := objectLabel(name)
		r.labels[label] = append(r.labels[label], name)
	}
	r.byName[name] = oid
	r.byOID[oid] = name
}

// Resolve maps a symbolic name to its numeric OID.
//
// Resolution order:
//  1. exact match on the full name;
//  2. an unqualified label ("sysDescr.0") registered under exactly one module;
//  3. "base.index": resolve base, then append ".index".
func (r *Registry) Resolve(name string) (string, bool) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if oid, ok := r.lookupLocked(name); ok {
		return oid, true
	}
	if i := strings.Index(name, "."); i > 0 {
		base, index := name[:i], name[i+1:]
		if oid, ok := r.lookupLocked(base); ok && index != "" {
			return oid + "." + index, true
		}
	}
	return "", false
}

// Translate maps a numeric OID to a symbolic name. Without an exact match,
// the longest registered OID that is a dotted prefix of oid is used and the
// remaining arcs are appended to that entry's index-stripped name.
func (r *Registry) Translate(oid string) (string, bool) {
	oid = normaliseOID(oid)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.byOID[oid]; ok {
		return name, true
	}

	best := ""
	for known := range r.byOID {
		if len(known) > len(best) && strings.HasPrefix(oid, known+".") {
			best = known
		}
	}
	if best == "" {
		return "", false
	}
	return stripIndex(r.byOID[best]) + oid[len(best):], true
}

// OIDsForMib returns every registered OID whose name belongs to module mib,
// in numeric OID order. Non-empty results are memoized in the cache.
func (r *Registry) OIDsForMib(mib string) []string {
	key := oidCachePrefix + mib
	if r.opts.Cache != nil {
		if v, ok := r.opts.Cache.Get(key); ok {
			if oids, ok := v.([]string); ok {
				return append([]string(nil), oids...)
			}
		}
	}

	prefix := mib + "::"
	r.mu.RLock()
	var oids []string
	for name, oid := range r.byName {
		if strings.HasPrefix(name, prefix) {
			oids = append(oids, oid)
		}
	}
	r.mu.RUnlock()

	sort.Slice(oids, func(i, j int) bool { return compareOID(oids[i], oids[j]) < 0 })

	if len(oids) > 0 && r.opts.Cache != nil {
		r.opts.Cache.Set(key, append([]string(nil), oids...))
	}
	return oids
}

// AddMibFile copies the file at path into the MIB directory and records its
// module label (the base name without extension). It returns the label.
func (r *Registry) AddMibFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrMibNotFound, path)
		}
		return "", fmt.Errorf("mib: stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("mib: %s is not a regular file", path)
	}

	base := filepath.Base(path)
	label := strings.TrimSuffix(base, filepath.Ext(base))
	if label == "" {
		return "", fmt.Errorf("mib: cannot derive module name from %q", path)
	}

	if r.opts.Dir != "" {
		if err := copyInto(path, r.opts.Dir); err != nil {
			return "", err
		}
	}

	r.mu.Lock()
	r.loaded[label] = struct{}{}
	r.mu.Unlock()

	r.logger.Info("mib: module added", "mib", label, "file", path)
	return label, nil
}

// LoadedMibs returns the loaded module labels in sorted order.
func (r *Registry) LoadedMibs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.loaded))
	for m := range r.loaded {
		out = append(out, m)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

// lookupLocked resolves an exact full name or a unique unqualified label.
// r.mu must be held.
func (r *Registry) lookupLocked(name string) (string, bool) {
	if oid, ok := r.byName[name]; ok {
		return oid, true
	}
	if strings.Contains(name, "::") {
		return "", false
	}
	if full := r.labels[name]; len(full) == 1 {
		return r.byName[full[0]], true
	}
	return "", false
}

func copyInto(src, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mib: mkdir %s: %w", dir, err)
	}
	dst := filepath.Join(dir, filepath.Base(src))

	absSrc, _ := filepath.Abs(src)
	absDst, _ := filepath.Abs(dst)
	if absSrc == absDst {
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("mib: read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("mib: write %s: %w", dst, err)
	}
	return nil
}

// objectLabel drops the "MODULE::" qualifier.
func objectLabel(name string) string {
	if i := strings.Index(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

// stripIndex drops everything from the first dot, e.g.
// "SNMPv2-MIB::sysDescr.0" → "SNMPv2-MIB::sysDescr".
func stripIndex(name string) string {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// normaliseOID strips a leading dot for consistent map keying.
func normaliseOID(oid string) string {
	return strings.TrimPrefix(strings.TrimSpace(oid), ".")
}

// compareOID orders dotted-decimal OIDs arc by arc.
func compareOID(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		x, errX := strconv.ParseUint(as[i], 10, 64)
		y, errY := strconv.ParseUint(bs[i], 10, 64)
		if errX != nil || errY != nil {
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
			continue
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return len(as) - len(bs)
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
