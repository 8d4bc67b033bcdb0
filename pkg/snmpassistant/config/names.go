package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registrar receives name ↔ OID pairs. *mib.Registry satisfies it.
type Registrar interface {
	Register(name, oid string)
}

// LoadNameTables reads every YAML file under dir and registers its entries.
// Each file is a flat map of symbolic name to numeric OID:
//
//	CISCO-PROCESS-MIB::cpmCPUTotal5secRev: 1.3.6.1.4.1.9.9.109.1.1.1.1.6
//	HOST-RESOURCES-MIB::hrSystemUptime.0: .1.3.6.1.2.1.25.1.1.0
//
// A missing directory is not an error. Malformed files are logged and
// skipped. It returns the number of names registered.
func LoadNameTables(dir string, reg Registrar, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if dir == "" {
		return 0, nil
	}

	files, err := yamlFiles(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("list names dir %q: %w", dir, err)
	}

	total := 0
	for _, path := range files {
		var raw map[string]string
		if err := decodeFile(path, &raw); err != nil {
			logger.Warn("config: skip malformed name table", "file", path, "error", err.Error())
			continue
		}

		names := make([]string, 0, len(raw))
		for name := range raw {
			names = append(names, name)
		}
		sort.Strings(names)

		count := 0
		for _, name := range names {
			oid := strings.TrimSpace(raw[name])
			if !strings.Contains(name, "::") || oid == "" {
				logger.Warn("config: skip name table entry", "file", path, "name", name)
				continue
			}
			reg.Register(name, oid)
			count++
		}
		total += count
		logger.Debug("config: loaded name table", "file", path, "count", count)
	}
	return total, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// yamlFiles returns all *.yml / *.yaml files under dir, sorted by path.
func yamlFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".yml" || ext == ".yaml" {
			paths = append(paths, p)
		}
		return nil
	})
	return paths, err
}

// decodeFile opens path and unmarshals the YAML content into out. An empty
// file leaves out untouched.
func decodeFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(false)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
