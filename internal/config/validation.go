// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"strings"

	"github.com/ManuGH/buildcfg/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("DataDir", cfg.DataDir)
	v.NotEmpty("Listen", cfg.Listen)

	if cfg.OutDir != "" {
		v.Directory("OutDir", cfg.OutDir, false)
	}

	if cfg.WatchDebounce <= 0 {
		v.AddError("WatchDebounce", "must be > 0", cfg.WatchDebounce.String())
	}
	if cfg.SnapshotTTL <= 0 {
		v.AddError("SnapshotTTL", "must be > 0", cfg.SnapshotTTL.String())
	}
	if cfg.ShutdownTimeout <= 0 {
		v.AddError("ShutdownTimeout", "must be > 0", cfg.ShutdownTimeout.String())
	}

	v.OneOf("StoreBackend", cfg.StoreBackend, []string{"badger", "memory"})
	v.OneOf("CacheBackend", cfg.CacheBackend, []string{"memory", "redis", "noop"})
	if cfg.CacheBackend == "redis" && strings.TrimSpace(cfg.RedisAddr) == "" {
		v.AddError("RedisAddr", "must be set when cache backend is redis", "")
	}
	if cfg.CacheTTL <= 0 {
		v.AddError("CacheTTL", "must be > 0", cfg.CacheTTL.String())
	}

	if cfg.RateLimitEnabled {
		if cfg.RateLimitRPS <= 0 {
			v.AddError("RateLimitRPS", "must be > 0 when rate limiting is enabled", "")
		}
		v.Positive("RateLimitBurst", cfg.RateLimitBurst)
	}

	v.OneOf("OTELExporter", cfg.OTELExporter, []string{"grpc", "http", "noop"})
	if cfg.OTELSampleRate < 0 || cfg.OTELSampleRate > 1 {
		v.AddError("OTELSampleRate", "must be between 0.0 and 1.0", "")
	}

	if cfg.SizeThreshold < 0 {
		v.AddError("SizeThreshold", "must be >= 0", "")
	}

	if !v.IsValid() {
		return v.Err()
	}

	return nil
}
