// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package envdep records which environment variables a configuration
// evaluation consulted, and with which values. The recorded set is written
// next to the evaluation output; a later run can compare it against the
// current environment to decide whether the output is stale.
package envdep

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/renameio/v2"
)

// DefaultFileName is the conventional name of the dependency file within a
// data directory.
const DefaultFileName = "environment.used.json"

// ErrNoFile is returned when a staleness check cannot find the dependency file.
var ErrNoFile = errors.New("environment dependency file does not exist")

// Dep is one recorded environment read. Unset variables are recorded with an
// empty value, so setting them later counts as a change.
type Dep struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Recorder captures environment reads during one evaluation pass. It is safe
// for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	seen map[string]string
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{seen: make(map[string]string)}
}

// Lookup reads key from the environment and records the observed value.
func (r *Recorder) Lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)

	r.mu.Lock()
	r.seen[key] = value
	r.mu.Unlock()

	return value, ok
}

// Getenv reads key from the environment and records the observed value.
func (r *Recorder) Getenv(key string) string {
	value, _ := r.Lookup(key)
	return value
}

// Snapshot returns the recorded dependencies sorted by name.
func (r *Recorder) Snapshot() []Dep {
	r.mu.Lock()
	defer r.mu.Unlock()

	deps := make([]Dep, 0, len(r.seen))
	for name, value := range r.seen {
		deps = append(deps, Dep{Name: name, Value: value})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps
}

// WriteFile persists deps as JSON at path using an atomic replace, so a
// concurrent reader never observes a partially written file.
func WriteFile(path string, deps []Dep) error {
	data, err := json.MarshalIndent(deps, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal environment deps: %w", err)
	}
	data = append(data, '\n')

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write environment deps: %w", err)
	}
	return nil
}

// ReadFile loads a previously written dependency file.
func ReadFile(path string) ([]Dep, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoFile
		}
		return nil, fmt.Errorf("read environment deps: %w", err)
	}

	var deps []Dep
	if err := json.Unmarshal(data, &deps); err != nil {
		return nil, fmt.Errorf("parse environment deps: %w", err)
	}
	return deps, nil
}

// Changed returns the names of recorded variables whose current environment
// value differs from the recorded one, sorted by name.
func Changed(deps []Dep) []string {
	var changed []string
	for _, dep := range deps {
		if os.Getenv(dep.Name) != dep.Value {
			changed = append(changed, dep.Name)
		}
	}
	sort.Strings(changed)
	return changed
}

// Stale reports whether the dependency file at path no longer matches the
// current environment. A missing file is reported via ErrNoFile.
func Stale(path string) (bool, error) {
	deps, err := ReadFile(path)
	if err != nil {
		return true, err
	}
	return len(Changed(deps)) > 0, nil
}
