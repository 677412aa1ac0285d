// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package snapshot defines the persisted result of one evaluation pass.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/ManuGH/buildcfg/internal/args"
	"github.com/ManuGH/buildcfg/internal/envdep"
	"github.com/ManuGH/buildcfg/internal/target"
	"github.com/ManuGH/buildcfg/internal/version"
)

// DefaultFileName is the conventional snapshot name within a data directory.
const DefaultFileName = "snapshot.json"

// ErrNoSnapshot is returned when no snapshot exists at the requested path.
var ErrNoSnapshot = errors.New("snapshot does not exist")

// Snapshot is the validated output of one evaluation pass. Once written it
// is never mutated; a fresh evaluation produces a new snapshot with a new ID.
type Snapshot struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Tool      string    `json:"tool_version"`

	TargetEnvironment target.Environment `json:"target_environment"`
	TargetCPU         target.CPU         `json:"target_cpu"`
	IsCronetBuild     bool               `json:"is_cronet_build"`

	// Args maps every declared argument to its effective value and
	// provenance. target_environment appears here with its post-resolution
	// value.
	Args map[string]args.Value `json:"args"`

	// ConsumedEnv lists the environment variables the evaluation consulted,
	// sorted by name.
	ConsumedEnv []envdep.Dep `json:"consumed_env"`
}

// New builds a snapshot from a resolved target configuration, the argument
// set it came from and the recorded environment reads. cfg must already be
// resolved; the snapshot stores values verbatim.
func New(cfg target.Config, set *args.Set, consumed []envdep.Dep) *Snapshot {
	values := set.Values()

	// Reflect the resolved environment in the argument view. The source is
	// kept: a defaulted value stays attributed to the default rule.
	if v, ok := values["target_environment"]; ok {
		v.Raw = string(cfg.Environment)
		values["target_environment"] = v
	}
	if cfg.CPU != "" {
		if _, ok := values["target_cpu"]; !ok {
			values["target_cpu"] = args.Value{Raw: string(cfg.CPU), Source: args.SourceFlag}
		}
	}

	return &Snapshot{
		ID:                uuid.NewString(),
		CreatedAt:         time.Now().UTC(),
		Tool:              version.Version,
		TargetEnvironment: cfg.Environment,
		TargetCPU:         cfg.CPU,
		IsCronetBuild:     cfg.CronetBuild,
		Args:              values,
		ConsumedEnv:       consumed,
	}
}

// TargetConfig returns the target configuration the snapshot records.
func (s *Snapshot) TargetConfig() target.Config {
	return target.Config{
		Environment: s.TargetEnvironment,
		CPU:         s.TargetCPU,
		CronetBuild: s.IsCronetBuild,
	}
}

// Write persists the snapshot as JSON at path using an atomic replace.
func (s *Snapshot) Write(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Read loads a snapshot from path.
func Read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &s, nil
}
