// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package args declares the build arguments understood by an evaluation pass
// and resolves their effective values from defaults, an arguments file and
// environment overrides.
//
// Unlike the application configuration in internal/config, argument
// resolution is strict: an unknown name, a type mismatch or a malformed
// override aborts the evaluation instead of falling back to a default.
package args

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ManuGH/buildcfg/internal/target"
)

// EnvPrefix is prepended to the upper-cased argument name to form its
// environment override key.
const EnvPrefix = "BCFG_ARG_"

// Type is the declared type of a build argument.
type Type string

const (
	TypeString Type = "string"
	TypeBool   Type = "bool"
	TypeInt    Type = "int"
)

// Source identifies where a resolved value came from.
type Source string

const (
	SourceDefault     Source = "default"
	SourceFile        Source = "file"
	SourceEnvironment Source = "environment"
	SourceFlag        Source = "flag"
)

// Decl declares a single build argument.
type Decl struct {
	Name        string
	Type        Type
	Default     string // canonical encoding; "true"/"false" for bools
	Description string

	// External marks arguments owned by the enclosing build environment.
	// They carry no declared default and are expected to be supplied by
	// file, environment or flag.
	External bool
}

// EnvKey returns the environment override key for the declaration.
func (d Decl) EnvKey() string {
	return EnvPrefix + strings.ToUpper(d.Name)
}

// Registry is the set of declared arguments for an evaluation.
type Registry struct {
	byName map[string]Decl
	order  []string
}

// NewRegistry builds a registry from decls, rejecting duplicates.
func NewRegistry(decls []Decl) (*Registry, error) {
	r := &Registry{byName: make(map[string]Decl, len(decls))}
	for _, d := range decls {
		if d.Name == "" {
			return nil, fmt.Errorf("argument declaration without a name")
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate argument declaration: %s", d.Name)
		}
		switch d.Type {
		case TypeString, TypeBool, TypeInt:
		default:
			return nil, fmt.Errorf("argument %s: unknown type %q", d.Name, d.Type)
		}
		r.byName[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Lookup returns the declaration for name.
func (r *Registry) Lookup(name string) (Decl, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns the declared argument names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Builtin returns the standard declaration set of this build tree.
func Builtin() *Registry {
	r, err := NewRegistry([]Decl{
		{
			Name:        "target_environment",
			Type:        TypeString,
			Default:     "",
			Description: "Runtime context the build output is intended for. Empty selects the default for the target CPU.",
		},
		{
			Name:        "is_cronet_build",
			Type:        TypeBool,
			Default:     "false",
			Description: "Set by the cronet build tooling; declared here for downstream consumption.",
		},
		{
			Name:        "target_cpu",
			Type:        TypeString,
			Description: "Target processor architecture, supplied by the enclosing build environment.",
			External:    true,
		},
	})
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return r
}

func unknownArgumentError(name string, r *Registry) error {
	return &target.InvalidValueError{
		Field:   "argument",
		Value:   name,
		Allowed: r.Names(),
	}
}

func typeMismatchError(d Decl, raw interface{}) error {
	return fmt.Errorf("argument %s: expected %s, got %v (%T): %w", d.Name, d.Type, raw, raw, target.ErrInvalidValue)
}

// Value is one resolved argument value with its provenance.
type Value struct {
	Raw    string `json:"value"`
	Source Source `json:"source"`
}

// Set holds the resolved values of one evaluation pass. It is populated once
// by a Loader and read-only afterwards.
type Set struct {
	registry *Registry
	values   map[string]Value
}

// Value returns the resolved value for name.
func (s *Set) Value(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// String returns the resolved string for name, or the empty string when the
// argument is not set.
func (s *Set) String(name string) string {
	return s.values[name].Raw
}

// Bool returns the resolved boolean for name. Values are normalised during
// loading, so anything but the canonical "true" reads as false.
func (s *Set) Bool(name string) bool {
	return s.values[name].Raw == "true"
}

// Int returns the resolved integer for name, or 0 when unset.
func (s *Set) Int(name string) int {
	n, _ := strconv.Atoi(s.values[name].Raw)
	return n
}

// IsSet reports whether name was supplied by file, environment or flag
// rather than falling back to its declared default.
func (s *Set) IsSet(name string) bool {
	v, ok := s.values[name]
	return ok && v.Source != SourceDefault
}

// Names returns the resolved argument names sorted alphabetically.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the resolved values keyed by argument name.
func (s *Set) Values() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for name, v := range s.values {
		out[name] = v
	}
	return out
}

// TargetConfig assembles the target configuration from the builtin
// arguments. The result still needs to be resolved by target.ResolveConfig.
func (s *Set) TargetConfig() target.Config {
	return target.Config{
		Environment: target.Environment(s.String("target_environment")),
		CPU:         target.CPU(s.String("target_cpu")),
		CronetBuild: s.Bool("is_cronet_build"),
	}
}
