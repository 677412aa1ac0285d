// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ManuGH/buildcfg/internal/config"
	"github.com/ManuGH/buildcfg/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment and dependencies
// before the daemon starts serving.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}

	if err := checkListenAddr(logger, cfg.Listen); err != nil {
		return fmt.Errorf("listen address check failed: %w", err)
	}

	if err := checkInputs(logger, cfg); err != nil {
		return fmt.Errorf("input check failed: %w", err)
	}

	warnRiskyLayout(logger, cfg)

	logger.Info().Msg("✅ All startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	// Check write permissions by creating a temp file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("✓ Data directory is writable")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	if addr == "" {
		return nil
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}

	logger.Info().Str("addr", addr).Msg("✓ Listen address is valid")
	return nil
}

func checkInputs(logger zerolog.Logger, cfg config.AppConfig) error {
	if cfg.ArgsFile == "" {
		logger.Warn().Msg("no arguments file configured; evaluation passes use environment input only")
	} else {
		if err := checkFileReadable(cfg.ArgsFile); err != nil {
			return fmt.Errorf("arguments file error: %w", err)
		}
		logger.Info().Str("path", cfg.ArgsFile).Msg("✓ Arguments file is readable")
	}

	if cfg.OutDir != "" {
		info, err := os.Stat(cfg.OutDir)
		if err != nil {
			return fmt.Errorf("out dir %q: %w", cfg.OutDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("out dir %q is not a directory", cfg.OutDir)
		}
		logger.Info().Str("path", cfg.OutDir).Msg("✓ Build output directory exists")
	}

	return nil
}

func warnRiskyLayout(logger zerolog.Logger, cfg config.AppConfig) {
	if cfg.APIToken == "" && !listensLoopback(cfg.Listen) {
		logger.Warn().
			Str("listen", cfg.Listen).
			Msg("no API token configured on a non-loopback listen address; the API is open")
	}

	if strings.EqualFold(cfg.StoreBackend, "memory") {
		logger.Warn().
			Str("store_backend", cfg.StoreBackend).
			Msg("in-memory store; snapshots are not persistent across restarts")
	}

	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(cfg.DataDir)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("data_dir", cfg.DataDir).
			Msg("data directory is under temp; snapshots and history may be lost on reboot")
	}
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}

// listensLoopback reports whether addr binds only a loopback interface. A
// bare ":port" binds everything and is not loopback.
func listensLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
