// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package target resolves the build's target environment. An explicitly
// supplied environment always wins; an unset one defaults from the target
// CPU (Intel architectures build for the simulator, everything else for
// hardware). Resolution validates the result against the fixed environment
// set and fails before any downstream configuration sees an invalid value.
package target

import (
	"errors"
	"fmt"
)

// Environment is the runtime context a build is produced for.
type Environment string

const (
	EnvSimulator        Environment = "simulator"
	EnvDevice           Environment = "device"
	EnvCatalyst         Environment = "catalyst"
	EnvAppleTVOS        Environment = "appletvos"
	EnvAppleTVSimulator Environment = "appletvsimulator"
)

// environments lists every valid post-resolution value, in declaration
// order. The empty string is a pre-resolution sentinel, never a member.
var environments = []Environment{
	EnvSimulator,
	EnvDevice,
	EnvCatalyst,
	EnvAppleTVOS,
	EnvAppleTVSimulator,
}

func (e Environment) String() string { return string(e) }

// IsValid reports whether e is a member of the environment set.
func (e Environment) IsValid() bool {
	for _, v := range environments {
		if e == v {
			return true
		}
	}
	return false
}

// IsSimulator reports whether e targets a simulator rather than hardware.
func (e Environment) IsSimulator() bool {
	return e == EnvSimulator || e == EnvAppleTVSimulator
}

// EnvironmentNames returns the valid environment names in declaration order.
// The slice is freshly allocated; callers may keep or modify it.
func EnvironmentNames() []string {
	names := make([]string, len(environments))
	for i, e := range environments {
		names[i] = string(e)
	}
	return names
}

// CPU is a target processor architecture, supplied by the enclosing build
// environment. It is an external input: this package reads it to pick a
// default environment but never validates it.
type CPU string

const (
	CPUX86   CPU = "x86"
	CPUX64   CPU = "x64"
	CPUArm   CPU = "arm"
	CPUArm64 CPU = "arm64"
)

func (c CPU) String() string { return string(c) }

// isIntel matches the architectures whose builds can only run under a
// simulator on the development host.
func (c CPU) isIntel() bool {
	return c == CPUX86 || c == CPUX64
}

// ErrInvalidValue is the sentinel for every configuration value rejected by
// this module. Callers match it with errors.Is; the concrete
// *InvalidValueError carries the field detail.
var ErrInvalidValue = errors.New("invalid configuration value")

// InvalidValueError reports a configuration value outside its allowed set.
type InvalidValueError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: must be one of %v", e.Value, e.Field, e.Allowed)
}

func (e *InvalidValueError) Unwrap() error { return ErrInvalidValue }

// Config is the target configuration of one evaluation pass. It is built
// once from the argument set, resolved, and passed read-only from there on.
type Config struct {
	Environment Environment
	CPU         CPU
	CronetBuild bool
}

// Resolve produces the effective environment for env and cpu. An empty env
// defaults from the CPU; a non-empty env is taken verbatim. The result is
// valid or the error wraps ErrInvalidValue.
func Resolve(env Environment, cpu CPU) (Environment, error) {
	if env == "" {
		if cpu.isIntel() {
			env = EnvSimulator
		} else {
			env = EnvDevice
		}
	}
	if !env.IsValid() {
		return "", &InvalidValueError{
			Field:   "target_environment",
			Value:   string(env),
			Allowed: EnvironmentNames(),
		}
	}
	return env, nil
}

// ResolveConfig resolves cfg.Environment and returns the completed
// configuration. CPU and CronetBuild pass through untouched; on error the
// zero Config is returned and nothing downstream may consume it.
func ResolveConfig(cfg Config) (Config, error) {
	env, err := Resolve(cfg.Environment, cfg.CPU)
	if err != nil {
		return Config{}, err
	}
	cfg.Environment = env
	return cfg, nil
}
