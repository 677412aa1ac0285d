// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoad_Defaults verifies the merged defaults when no file is given.
func TestLoad_Defaults(t *testing.T) {
	loader := NewLoader("", "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}

	if cfg.Version != "test" {
		t.Errorf("expected Version=test, got %s", cfg.Version)
	}
	if !filepath.IsAbs(cfg.DataDir) {
		t.Errorf("expected absolute DataDir, got %s", cfg.DataDir)
	}
	if cfg.Listen != DefaultListen {
		t.Errorf("expected Listen=%s, got %s", DefaultListen, cfg.Listen)
	}
	if cfg.StoreBackend != "badger" {
		t.Errorf("expected StoreBackend=badger, got %s", cfg.StoreBackend)
	}
	if cfg.StorePath != filepath.Join(cfg.DataDir, "store") {
		t.Errorf("expected derived StorePath, got %s", cfg.StorePath)
	}
	if cfg.HistoryPath != filepath.Join(cfg.DataDir, "history.db") {
		t.Errorf("expected derived HistoryPath, got %s", cfg.HistoryPath)
	}
	if cfg.SizeThreshold != 12*1024 {
		t.Errorf("expected SizeThreshold=12288, got %d", cfg.SizeThreshold)
	}
	if !cfg.Watch {
		t.Error("expected Watch enabled by default")
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected ShutdownTimeout=30s, got %s", cfg.ShutdownTimeout)
	}
}

// TestLoad_ValidMinimal tests loading a valid minimal configuration.
func TestLoad_ValidMinimal(t *testing.T) {
	loader := NewLoader(filepath.Join("testdata", "valid-minimal.yaml"), "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("expected Listen=:9090, got %s", cfg.Listen)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("expected StoreBackend=memory, got %s", cfg.StoreBackend)
	}
	if cfg.CacheBackend != "noop" {
		t.Errorf("expected CacheBackend=noop, got %s", cfg.CacheBackend)
	}
	// Fields absent from the file keep their defaults.
	if cfg.WatchDebounce != DefaultWatchDebounce {
		t.Errorf("expected default WatchDebounce, got %s", cfg.WatchDebounce)
	}
}

// TestLoad_FullFile exercises every file section.
func TestLoad_FullFile(t *testing.T) {
	loader := NewLoader(filepath.Join("testdata", "full.yaml"), "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}

	if cfg.Listen != ":8443" {
		t.Errorf("expected Listen=:8443, got %s", cfg.Listen)
	}
	if cfg.APIToken != "file-token" {
		t.Errorf("expected APIToken from file, got %q", cfg.APIToken)
	}
	if cfg.Watch {
		t.Error("expected Watch disabled by file")
	}
	if cfg.WatchDebounce != 250*time.Millisecond {
		t.Errorf("expected WatchDebounce=250ms, got %s", cfg.WatchDebounce)
	}
	if cfg.SnapshotTTL != 24*time.Hour {
		t.Errorf("expected SnapshotTTL=24h, got %s", cfg.SnapshotTTL)
	}
	if cfg.CacheBackend != "redis" || cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis cache, got %s/%s", cfg.CacheBackend, cfg.RedisAddr)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 10 {
		t.Errorf("expected rate limit 5/10, got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.SizeThreshold != 8192 {
		t.Errorf("expected SizeThreshold=8192, got %d", cfg.SizeThreshold)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected ShutdownTimeout=10s, got %s", cfg.ShutdownTimeout)
	}
}

// TestLoad_EnvOverridesFile verifies ENV > file precedence.
func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("BCFG_LISTEN", ":7070")
	t.Setenv("BCFG_STORE_BACKEND", "memory")

	loader := NewLoader(filepath.Join("testdata", "full.yaml"), "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}

	if cfg.Listen != ":7070" {
		t.Errorf("expected env Listen=:7070, got %s", cfg.Listen)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("expected env StoreBackend=memory, got %s", cfg.StoreBackend)
	}

	if _, ok := loader.ConsumedEnvKeys["BCFG_LISTEN"]; !ok {
		t.Error("expected BCFG_LISTEN in consumed env keys")
	}
}

// TestLoad_UnknownKeyFails tests that strict parsing rejects unknown fields.
func TestLoad_UnknownKeyFails(t *testing.T) {
	loader := NewLoader(filepath.Join("testdata", "invalid-unknown-key.yaml"), "test")
	_, err := loader.Load()

	if err == nil {
		t.Fatal("expected error due to unknown key, got nil")
	}
	if !errors.Is(err, ErrUnknownConfigField) {
		t.Fatalf("expected ErrUnknownConfigField, got: %v", err)
	}
}

// TestLoad_InvalidTypeFails tests that type mismatches are caught.
func TestLoad_InvalidTypeFails(t *testing.T) {
	loader := NewLoader(filepath.Join("testdata", "invalid-type.yaml"), "test")
	_, err := loader.Load()

	if err == nil {
		t.Fatal("expected error due to type mismatch, got nil")
	}
}

// TestLoad_UnsupportedExtension rejects non-YAML config files.
func TestLoad_UnsupportedExtension(t *testing.T) {
	loader := NewLoader("config.json", "test")
	_, err := loader.Load()

	if err == nil || !strings.Contains(err.Error(), "unsupported config format") {
		t.Fatalf("expected unsupported format error, got: %v", err)
	}
}

// TestLoad_ValidationFailure surfaces invalid merged values.
func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("BCFG_STORE_BACKEND", "bolt")

	loader := NewLoader("", "test")
	_, err := loader.Load()

	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "StoreBackend") {
		t.Errorf("expected StoreBackend in error, got: %v", err)
	}
}

// TestLoad_RedisBackendRequiresAddr checks the redis guard.
func TestLoad_RedisBackendRequiresAddr(t *testing.T) {
	t.Setenv("BCFG_CACHE_BACKEND", "redis")

	loader := NewLoader("", "test")
	_, err := loader.Load()

	if err == nil || !strings.Contains(err.Error(), "RedisAddr") {
		t.Fatalf("expected RedisAddr error, got: %v", err)
	}
}
