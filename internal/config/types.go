// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// Default values applied before file and environment merging.
const (
	DefaultDataDir        = "data"
	DefaultListen         = ":8080"
	DefaultWatchDebounce  = 500 * time.Millisecond
	DefaultStoreBackend   = "badger"
	DefaultSnapshotTTL    = 168 * time.Hour
	DefaultCacheBackend   = "memory"
	DefaultCacheTTL       = 60 * time.Second
	DefaultRateLimitRPS   = 10.0
	DefaultRateLimitBurst = 20
	DefaultOTELExporter   = "noop"
	DefaultOTELEndpoint   = "localhost:4317"

	// DefaultSizeThreshold is the compressed per-package growth budget in bytes.
	DefaultSizeThreshold = int64(12 * 1024)

	DefaultShutdownTimeout = 30 * time.Second
)

// AppConfig is the merged, validated runtime configuration. It is built once
// at startup and passed read-only afterwards.
type AppConfig struct {
	Version string

	// DataDir holds snapshots, env-dependency files and local state.
	DataDir string
	// OutDir is the build output directory inspected by targets and sizediff.
	OutDir string
	// ArgsFile is the default argument file evaluated by the daemon.
	ArgsFile string

	Listen   string
	APIToken string

	// MetricsListen serves Prometheus metrics on a dedicated listener when
	// set. Empty keeps /metrics on the main listener.
	MetricsListen string

	Watch         bool
	WatchDebounce time.Duration

	StoreBackend string
	StorePath    string
	SnapshotTTL  time.Duration
	HistoryPath  string

	CacheBackend string
	RedisAddr    string
	CacheTTL     time.Duration

	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	OTELEnabled    bool
	OTELExporter   string
	OTELEndpoint   string
	OTELSampleRate float64

	SizeThreshold int64

	ShutdownTimeout time.Duration
}

// FileConfig mirrors the YAML layout. Pointer fields distinguish "absent"
// from zero values during merging.
type FileConfig struct {
	DataDir  *string `yaml:"data_dir"`
	OutDir   *string `yaml:"out_dir"`
	ArgsFile *string `yaml:"args_file"`

	Listen        *string `yaml:"listen"`
	MetricsListen *string `yaml:"metrics_listen"`
	APIToken      *string `yaml:"api_token"`

	Watch         *bool   `yaml:"watch"`
	WatchDebounce *string `yaml:"watch_debounce"`

	Store *FileStoreConfig `yaml:"store"`
	Cache *FileCacheConfig `yaml:"cache"`

	RateLimit *FileRateLimitConfig `yaml:"ratelimit"`
	Telemetry *FileTelemetryConfig `yaml:"telemetry"`

	SizeDiff *FileSizeDiffConfig `yaml:"sizediff"`

	ShutdownTimeout *string `yaml:"shutdown_timeout"`
}

type FileStoreConfig struct {
	Backend     *string `yaml:"backend"`
	Path        *string `yaml:"path"`
	SnapshotTTL *string `yaml:"snapshot_ttl"`
	HistoryPath *string `yaml:"history_path"`
}

type FileCacheConfig struct {
	Backend   *string `yaml:"backend"`
	RedisAddr *string `yaml:"redis_addr"`
	TTL       *string `yaml:"ttl"`
}

type FileRateLimitConfig struct {
	Enabled *bool    `yaml:"enabled"`
	RPS     *float64 `yaml:"rps"`
	Burst   *int     `yaml:"burst"`
}

type FileTelemetryConfig struct {
	Enabled    *bool    `yaml:"enabled"`
	Exporter   *string  `yaml:"exporter"`
	Endpoint   *string  `yaml:"endpoint"`
	SampleRate *float64 `yaml:"sample_rate"`
}

type FileSizeDiffConfig struct {
	ThresholdBytes *int64 `yaml:"threshold_bytes"`
}
