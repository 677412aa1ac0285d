// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package buildgraph lists the targets of a build output directory. The
// generator writes targets.json (one ninja path per metadata sub-target);
// per-target metadata JSON under gen/ carries the target type.
package buildgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ManuGH/buildcfg/internal/target"
	"golang.org/x/sync/errgroup"
)

// MetadataSuffix marks the per-target metadata sub-targets in targets.json.
const MetadataSuffix = "__config"

// TargetsFileName is the target list the generator leaves in the out dir.
const TargetsFileName = "targets.json"

// DefaultConcurrency bounds parallel metadata reads.
const DefaultConcurrency = 8

// Type is a build target type from target metadata.
type Type string

// Valid target types, as emitted by the Apple GN rules.
const (
	TypeBundleData      Type = "bundle_data"
	TypeExecutable      Type = "executable"
	TypeGroup           Type = "group"
	TypeAppBundle       Type = "ios_app_bundle"
	TypeAppexBundle     Type = "ios_appex_bundle"
	TypeFrameworkBundle Type = "ios_framework_bundle"
	TypeXCTestBundle    Type = "ios_xctest_bundle"
	TypeXCUITestBundle  Type = "ios_xcuitest_bundle"
	TypeSharedLibrary   Type = "shared_library"
	TypeSourceSet       Type = "source_set"
	TypeStaticLibrary   Type = "static_library"
)

var validTypes = map[Type]struct{}{
	TypeBundleData:      {},
	TypeExecutable:      {},
	TypeGroup:           {},
	TypeAppBundle:       {},
	TypeAppexBundle:     {},
	TypeFrameworkBundle: {},
	TypeXCTestBundle:    {},
	TypeXCUITestBundle:  {},
	TypeSharedLibrary:   {},
	TypeSourceSet:       {},
	TypeStaticLibrary:   {},
}

// Valid reports whether t is a known target type.
func (t Type) Valid() bool {
	_, ok := validTypes[t]
	return ok
}

// TypeNames returns the valid type names in sorted order.
func TypeNames() []string {
	names := make([]string, 0, len(validTypes))
	for t := range validTypes {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// Entry is one build target.
type Entry struct {
	// gnTarget is the full GN label, always "//dir:name".
	gnTarget string

	mu  sync.Mutex
	typ Type
}

// NewEntry creates an entry from a GN label. A label without an explicit
// ":name" part gets the directory basename as its name.
func NewEntry(gnTarget string) (*Entry, error) {
	if !strings.HasPrefix(gnTarget, "//") {
		return nil, fmt.Errorf("gn label must start with //: %q", gnTarget)
	}
	if !strings.Contains(gnTarget, ":") {
		gnTarget = gnTarget + ":" + filepath.Base(gnTarget)
	}
	return &Entry{gnTarget: gnTarget}, nil
}

// GNLabel returns the "//dir:name" form.
func (e *Entry) GNLabel() string { return e.gnTarget }

// NinjaTarget returns the "dir:name" form used by the build system.
func (e *Entry) NinjaTarget() string { return e.gnTarget[2:] }

// MetadataPath returns the metadata file location relative to the out dir.
func (e *Entry) MetadataPath() string {
	ninja := e.NinjaTarget()
	// Root-level targets look like ":name".
	ninja = strings.TrimPrefix(ninja, ":")
	return filepath.Join("gen", strings.ReplaceAll(ninja, ":", string(os.PathSeparator))+".build_config.json")
}

// Type returns the target type loaded by Graph.LoadTypes, or "" before that.
func (e *Entry) Type() Type {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typ
}

// TopLevelName folds generated sub-targets back onto the target a developer
// would name: foo_test__xctest__bundle -> foo_test.
func TopLevelName(name string) string {
	name = strings.ReplaceAll(name, "__xctest__bundle", "")
	return strings.ReplaceAll(name, "__bundle", "")
}

// Graph is the parsed target list of one out dir.
type Graph struct {
	outDir  string
	entries []*Entry
}

// Load reads targets.json from outDir and keeps the metadata sub-targets,
// converted to GN labels.
func Load(outDir string) (*Graph, error) {
	path := filepath.Join(outDir, TargetsFileName)
	// #nosec G304 - out dir is operator-supplied
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read target list: %w", err)
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse target list %s: %w", path, err)
	}

	g := &Graph{outDir: outDir}
	for _, line := range raw {
		// Root aliases carry no ":"; skip them like the build system does.
		if !strings.Contains(line, ":") || !strings.HasSuffix(line, MetadataSuffix) {
			continue
		}
		entry, err := NewEntry("//" + strings.TrimSuffix(line, MetadataSuffix))
		if err != nil {
			return nil, err
		}
		g.entries = append(g.entries, entry)
	}
	return g, nil
}

// OutDir returns the build output directory this graph was loaded from.
func (g *Graph) OutDir() string { return g.outDir }

// Entries returns all targets in file order.
func (g *Graph) Entries() []*Entry { return g.entries }

// LoadTypes reads every entry's metadata concurrently and validates the
// type field. An unknown type aborts with an invalid-value error.
func (g *Graph) LoadTypes(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(DefaultConcurrency)

	for _, entry := range g.entries {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return g.loadEntryType(entry)
		})
	}
	return eg.Wait()
}

func (g *Graph) loadEntryType(entry *Entry) error {
	path := filepath.Join(g.outDir, entry.MetadataPath())
	// #nosec G304 - path is derived from the target list inside the out dir
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read metadata for %s: %w", entry.GNLabel(), err)
	}

	var meta struct {
		DepsInfo struct {
			Type string `json:"type"`
		} `json:"deps_info"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("parse metadata for %s: %w", entry.GNLabel(), err)
	}

	typ := Type(meta.DepsInfo.Type)
	if !typ.Valid() {
		return fmt.Errorf("metadata for %s: %w", entry.GNLabel(), &target.InvalidValueError{
			Field:   "type",
			Value:   meta.DepsInfo.Type,
			Allowed: TypeNames(),
		})
	}

	entry.mu.Lock()
	entry.typ = typ
	entry.mu.Unlock()
	return nil
}

// FilterByType returns the entries whose type is in types. LoadTypes must
// have run first.
func (g *Graph) FilterByType(types ...Type) []*Entry {
	want := make(map[Type]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	var out []*Entry
	for _, entry := range g.entries {
		if _, ok := want[entry.Type()]; ok {
			out = append(out, entry)
		}
	}
	return out
}

// Stats counts entries per type. LoadTypes must have run first.
func (g *Graph) Stats() map[Type]int {
	counts := make(map[Type]int)
	for _, entry := range g.entries {
		counts[entry.Type()]++
	}
	return counts
}
