// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package args

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/buildcfg/internal/envdep"
	"github.com/ManuGH/buildcfg/internal/log"
)

// Loader resolves declared arguments from their sources. Every environment
// read goes through the envdep recorder so evaluations stay reproducible.
type Loader struct {
	registry *Registry
	recorder *envdep.Recorder
	logger   zerolog.Logger
}

// NewLoader creates a Loader over registry. A nil registry selects the
// builtin declarations; a nil recorder gets a fresh one.
func NewLoader(registry *Registry, recorder *envdep.Recorder) *Loader {
	if registry == nil {
		registry = Builtin()
	}
	if recorder == nil {
		recorder = envdep.NewRecorder()
	}
	return &Loader{
		registry: registry,
		recorder: recorder,
		logger:   log.WithComponent("args"),
	}
}

// Recorder returns the envdep recorder backing this loader.
func (l *Loader) Recorder() *envdep.Recorder {
	return l.recorder
}

// Load resolves the declared arguments. Precedence, lowest to highest:
// declared default, arguments file, environment override, flag override.
// path may be empty when no arguments file is used.
func (l *Loader) Load(path string, overrides map[string]string) (*Set, error) {
	set := &Set{registry: l.registry, values: make(map[string]Value)}

	for _, name := range l.registry.Names() {
		d, _ := l.registry.Lookup(name)
		if d.External {
			continue
		}
		set.values[name] = Value{Raw: d.Default, Source: SourceDefault}
	}

	if path != "" {
		if err := l.mergeFile(set, path); err != nil {
			return nil, err
		}
	}
	if err := l.mergeEnv(set); err != nil {
		return nil, err
	}
	if err := l.mergeOverrides(set, overrides); err != nil {
		return nil, err
	}
	return set, nil
}

func (l *Loader) mergeFile(set *Set, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
	if err != nil {
		return fmt.Errorf("read arguments file: %w", err)
	}

	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse arguments file %s: %w", path, err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d, ok := l.registry.Lookup(name)
		if !ok {
			return fmt.Errorf("arguments file %s: %w", path, unknownArgumentError(name, l.registry))
		}
		canonical, err := canonicalize(d, raw[name])
		if err != nil {
			return fmt.Errorf("arguments file %s: %w", path, err)
		}
		set.values[name] = Value{Raw: canonical, Source: SourceFile}
		l.logger.Debug().
			Str("arg", name).
			Str("value", canonical).
			Str("source", string(SourceFile)).
			Msg("argument set")
	}
	return nil
}

func (l *Loader) mergeEnv(set *Set) error {
	for _, name := range l.registry.Names() {
		d, _ := l.registry.Lookup(name)
		key := d.EnvKey()

		// Consult the environment through the recorder even when unset, so
		// setting the variable later invalidates the recorded evaluation.
		value, ok := l.recorder.Lookup(key)
		if !ok || value == "" {
			continue
		}

		canonical, err := parseText(d, value)
		if err != nil {
			return fmt.Errorf("environment %s: %w", key, err)
		}
		set.values[name] = Value{Raw: canonical, Source: SourceEnvironment}
		l.logger.Debug().
			Str("arg", name).
			Str("value", canonical).
			Str("source", string(SourceEnvironment)).
			Str("key", key).
			Msg("argument set")
	}
	return nil
}

func (l *Loader) mergeOverrides(set *Set, overrides map[string]string) error {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d, ok := l.registry.Lookup(name)
		if !ok {
			return unknownArgumentError(name, l.registry)
		}
		canonical := overrides[name]
		if d.Type != TypeString {
			var err error
			canonical, err = parseText(d, overrides[name])
			if err != nil {
				return err
			}
		}
		set.values[name] = Value{Raw: canonical, Source: SourceFlag}
		l.logger.Debug().
			Str("arg", name).
			Str("value", canonical).
			Str("source", string(SourceFlag)).
			Msg("argument set")
	}
	return nil
}

// canonicalize converts a decoded YAML value into the canonical string
// encoding for its declaration.
func canonicalize(d Decl, raw interface{}) (string, error) {
	switch d.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return "", typeMismatchError(d, raw)
		}
		return s, nil
	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return "", typeMismatchError(d, raw)
		}
		return strconv.FormatBool(b), nil
	case TypeInt:
		n, ok := raw.(int)
		if !ok {
			return "", typeMismatchError(d, raw)
		}
		return strconv.Itoa(n), nil
	}
	return "", typeMismatchError(d, raw)
}

// parseText converts a textual override into the canonical encoding for its
// declaration. Booleans accept true/1/yes and false/0/no.
func parseText(d Decl, value string) (string, error) {
	switch d.Type {
	case TypeString:
		return value, nil
	case TypeBool:
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return "true", nil
		case "false", "0", "no":
			return "false", nil
		default:
			return "", typeMismatchError(d, value)
		}
	case TypeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", typeMismatchError(d, value)
		}
		return strconv.Itoa(n), nil
	}
	return "", typeMismatchError(d, value)
}
