// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package snapshot_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/buildcfg/internal/args"
	"github.com/ManuGH/buildcfg/internal/envdep"
	"github.com/ManuGH/buildcfg/internal/snapshot"
	"github.com/ManuGH/buildcfg/internal/target"
)

func resolvedFixture(t *testing.T) (target.Config, *args.Set) {
	t.Helper()

	set, err := args.NewLoader(nil, nil).Load("", map[string]string{"target_cpu": "x64"})
	require.NoError(t, err)

	cfg, err := target.ResolveConfig(set.TargetConfig())
	require.NoError(t, err)
	return cfg, set
}

func TestNewReflectsResolvedEnvironment(t *testing.T) {
	cfg, set := resolvedFixture(t)

	snap := snapshot.New(cfg, set, nil)

	require.NotEmpty(t, snap.ID)
	assert.False(t, snap.CreatedAt.IsZero())
	assert.Equal(t, target.EnvSimulator, snap.TargetEnvironment)
	assert.Equal(t, target.CPUX64, snap.TargetCPU)
	assert.False(t, snap.IsCronetBuild)

	// The argument view carries the post-resolution value but keeps the
	// provenance of the default rule.
	env, ok := snap.Args["target_environment"]
	require.True(t, ok)
	assert.Equal(t, "simulator", env.Raw)
	assert.Equal(t, args.SourceDefault, env.Source)

	cpu, ok := snap.Args["target_cpu"]
	require.True(t, ok)
	assert.Equal(t, "x64", cpu.Raw)
	assert.Equal(t, args.SourceFlag, cpu.Source)
}

func TestWriteReadRoundTrip(t *testing.T) {
	cfg, set := resolvedFixture(t)
	consumed := []envdep.Dep{{Name: "BCFG_ARG_TARGET_CPU", Value: ""}}

	snap := snapshot.New(cfg, set, consumed)
	path := filepath.Join(t.TempDir(), snapshot.DefaultFileName)
	require.NoError(t, snap.Write(path))

	got, err := snapshot.Read(path)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, snap.TargetEnvironment, got.TargetEnvironment)
	assert.Equal(t, snap.Args, got.Args)
	assert.Equal(t, consumed, got.ConsumedEnv)

	assert.Equal(t, cfg, got.TargetConfig())
}

func TestReadMissing(t *testing.T) {
	_, err := snapshot.Read(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, snapshot.ErrNoSnapshot))
}

func TestSnapshotsAreDistinct(t *testing.T) {
	cfg, set := resolvedFixture(t)

	first := snapshot.New(cfg, set, nil)
	second := snapshot.New(cfg, set, nil)
	assert.NotEqual(t, first.ID, second.ID, "every evaluation produces a fresh snapshot identity")
}
