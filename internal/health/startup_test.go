// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/buildcfg/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformStartupChecks(t *testing.T) {
	ctx := context.Background()

	validConfig := func(t *testing.T) config.AppConfig {
		t.Helper()
		dataDir := t.TempDir()
		argsFile := filepath.Join(dataDir, "args.yaml")
		require.NoError(t, os.WriteFile(argsFile, []byte("target_cpu: arm64\n"), 0o644))
		return config.AppConfig{
			DataDir:  dataDir,
			Listen:   "127.0.0.1:8080",
			ArgsFile: argsFile,
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, PerformStartupChecks(ctx, validConfig(t)))
	})

	t.Run("missing data dir fails", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.DataDir = filepath.Join(cfg.DataDir, "absent")
		err := PerformStartupChecks(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data directory check failed")
	})

	t.Run("data dir is a file fails", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.DataDir = cfg.ArgsFile
		err := PerformStartupChecks(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("malformed listen address fails", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Listen = "no-port-here"
		err := PerformStartupChecks(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listen address check failed")
	})

	t.Run("unreadable arguments file fails", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.ArgsFile = filepath.Join(cfg.DataDir, "absent-args.yaml")
		err := PerformStartupChecks(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "arguments file")
	})

	t.Run("no arguments file configured passes", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.ArgsFile = ""
		assert.NoError(t, PerformStartupChecks(ctx, cfg))
	})

	t.Run("missing out dir fails", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.OutDir = filepath.Join(cfg.DataDir, "absent-out")
		err := PerformStartupChecks(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out dir")
	})
}

func TestListensLoopback(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:8080", true},
		{"[::1]:8080", true},
		{"localhost:8080", true},
		{":8080", false},
		{"0.0.0.0:8080", false},
		{"192.168.1.10:8080", false},
		{"garbage", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, listensLoopback(tc.addr), "addr %q", tc.addr)
	}
}
