// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package buildgraph_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/buildcfg/internal/buildgraph"
	"github.com/ManuGH/buildcfg/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, types map[string]string) string {
	t.Helper()
	outDir := t.TempDir()

	targets := []string{
		"ios/chrome/app:chrome__config",
		"base:base__config",
		":root_tool__config",
		"ios/chrome/app:chrome", // no metadata suffix
		"phony_alias",           // no package part
	}
	data, err := json.Marshal(targets)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(outDir, buildgraph.TargetsFileName), data, 0o600))

	for rel, typ := range types {
		path := filepath.Join(outDir, "gen", rel+".build_config.json")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		meta, err := json.Marshal(map[string]any{"deps_info": map[string]any{"type": typ}})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, meta, 0o600))
	}
	return outDir
}

func defaultTypes() map[string]string {
	return map[string]string{
		"ios/chrome/app/chrome": "ios_app_bundle",
		"base/base":             "source_set",
		"root_tool":             "executable",
	}
}

func TestLoadFiltersTargetList(t *testing.T) {
	g, err := buildgraph.Load(writeFixture(t, defaultTypes()))
	require.NoError(t, err)

	var labels []string
	for _, e := range g.Entries() {
		labels = append(labels, e.GNLabel())
	}
	assert.Equal(t, []string{"//ios/chrome/app:chrome", "//base:base", "//:root_tool"}, labels)
}

func TestLoadMissingTargetList(t *testing.T) {
	_, err := buildgraph.Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read target list")
}

func TestLoadMalformedTargetList(t *testing.T) {
	outDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outDir, buildgraph.TargetsFileName), []byte("{not json"), 0o600))

	_, err := buildgraph.Load(outDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse target list")
}

func TestNewEntryNormalizesBareLabel(t *testing.T) {
	e, err := buildgraph.NewEntry("//ios/chrome")
	require.NoError(t, err)
	assert.Equal(t, "//ios/chrome:chrome", e.GNLabel())
	assert.Equal(t, "ios/chrome:chrome", e.NinjaTarget())

	_, err = buildgraph.NewEntry("ios/chrome:app")
	require.Error(t, err)
}

func TestMetadataPath(t *testing.T) {
	cases := []struct {
		label string
		want  string
	}{
		{"//ios/chrome/app:chrome", filepath.Join("gen", "ios", "chrome", "app", "chrome.build_config.json")},
		{"//base:base", filepath.Join("gen", "base", "base.build_config.json")},
		{"//:root_tool", filepath.Join("gen", "root_tool.build_config.json")},
	}
	for _, tc := range cases {
		e, err := buildgraph.NewEntry(tc.label)
		require.NoError(t, err)
		assert.Equal(t, tc.want, e.MetadataPath(), tc.label)
	}
}

func TestLoadTypes(t *testing.T) {
	g, err := buildgraph.Load(writeFixture(t, defaultTypes()))
	require.NoError(t, err)
	require.NoError(t, g.LoadTypes(context.Background()))

	byLabel := make(map[string]buildgraph.Type)
	for _, e := range g.Entries() {
		byLabel[e.GNLabel()] = e.Type()
	}
	assert.Equal(t, buildgraph.TypeAppBundle, byLabel["//ios/chrome/app:chrome"])
	assert.Equal(t, buildgraph.TypeSourceSet, byLabel["//base:base"])
	assert.Equal(t, buildgraph.TypeExecutable, byLabel["//:root_tool"])

	assert.Equal(t, map[buildgraph.Type]int{
		buildgraph.TypeAppBundle:  1,
		buildgraph.TypeSourceSet:  1,
		buildgraph.TypeExecutable: 1,
	}, g.Stats())

	apps := g.FilterByType(buildgraph.TypeAppBundle)
	require.Len(t, apps, 1)
	assert.Equal(t, "//ios/chrome/app:chrome", apps[0].GNLabel())
}

func TestLoadTypesUnknownType(t *testing.T) {
	types := defaultTypes()
	types["base/base"] = "android_apk"
	g, err := buildgraph.Load(writeFixture(t, types))
	require.NoError(t, err)

	err = g.LoadTypes(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, target.ErrInvalidValue)

	var ive *target.InvalidValueError
	require.ErrorAs(t, err, &ive)
	assert.Equal(t, "type", ive.Field)
	assert.Equal(t, "android_apk", ive.Value)
}

func TestLoadTypesMissingMetadata(t *testing.T) {
	types := defaultTypes()
	delete(types, "root_tool")
	g, err := buildgraph.Load(writeFixture(t, types))
	require.NoError(t, err)

	err = g.LoadTypes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "//:root_tool")
}

func TestLoadTypesCanceledContext(t *testing.T) {
	g, err := buildgraph.Load(writeFixture(t, defaultTypes()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, g.LoadTypes(ctx), context.Canceled)
}

func TestTypeValidation(t *testing.T) {
	assert.True(t, buildgraph.TypeStaticLibrary.Valid())
	assert.False(t, buildgraph.Type("android_apk").Valid())

	names := buildgraph.TypeNames()
	assert.Len(t, names, 11)
	assert.Contains(t, names, "ios_xcuitest_bundle")
}

func TestTopLevelName(t *testing.T) {
	cases := map[string]string{
		"chrome__bundle":               "chrome",
		"unit_tests__xctest__bundle":   "unit_tests",
		"settings_appex":               "settings_appex",
		"widget_kit_extension__bundle": "widget_kit_extension",
	}
	for in, want := range cases {
		assert.Equal(t, want, buildgraph.TopLevelName(in), in)
	}
}
