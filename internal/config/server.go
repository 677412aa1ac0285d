// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// ServerConfig holds HTTP listener tuning for the daemon.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// MaxHeaderBytes bounds what the server reads parsing request headers
	MaxHeaderBytes int

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration
}

const (
	defaultReadTimeout = 30 * time.Second
	// Target listings fan out to per-target metadata reads and can take a
	// while on large out dirs.
	defaultWriteTimeout   = 60 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultMaxHeaderBytes = 1 << 20 // 1 MB
	minShutdownTimeout    = 3 * time.Second
)

// ServerConfigFromApp derives listener tuning from the merged runtime
// configuration. Timeouts are fixed; the address and shutdown budget come
// from the config.
func ServerConfigFromApp(cfg AppConfig) ServerConfig {
	sc := ServerConfig{
		ListenAddr:      cfg.Listen,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		MaxHeaderBytes:  defaultMaxHeaderBytes,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	if sc.ShutdownTimeout < minShutdownTimeout {
		sc.ShutdownTimeout = minShutdownTimeout
	}
	return sc
}
