// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envInt64(key string, defaultVal int64) int64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt64(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}
	setDefaults(&cfg)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	// DataDir must be absolute before derived paths are built from it
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(cfg.DataDir, "store")
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = filepath.Join(cfg.DataDir, "history.db")
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *AppConfig) {
	cfg.DataDir = DefaultDataDir
	cfg.Listen = DefaultListen
	cfg.Watch = true
	cfg.WatchDebounce = DefaultWatchDebounce
	cfg.StoreBackend = DefaultStoreBackend
	cfg.SnapshotTTL = DefaultSnapshotTTL
	cfg.CacheBackend = DefaultCacheBackend
	cfg.CacheTTL = DefaultCacheTTL
	cfg.RateLimitEnabled = true
	cfg.RateLimitRPS = DefaultRateLimitRPS
	cfg.RateLimitBurst = DefaultRateLimitBurst
	cfg.OTELExporter = DefaultOTELExporter
	cfg.OTELEndpoint = DefaultOTELEndpoint
	cfg.OTELSampleRate = 1.0
	cfg.SizeThreshold = DefaultSizeThreshold
	cfg.ShutdownTimeout = DefaultShutdownTimeout
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, file *FileConfig) error {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setDuration := func(dst *time.Duration, src *string, field string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", field, *src, err)
		}
		*dst = d
		return nil
	}

	setString(&cfg.DataDir, file.DataDir)
	setString(&cfg.OutDir, file.OutDir)
	setString(&cfg.ArgsFile, file.ArgsFile)
	setString(&cfg.Listen, file.Listen)
	setString(&cfg.MetricsListen, file.MetricsListen)
	setString(&cfg.APIToken, file.APIToken)
	setBool(&cfg.Watch, file.Watch)
	if err := setDuration(&cfg.WatchDebounce, file.WatchDebounce, "watch_debounce"); err != nil {
		return err
	}

	if file.Store != nil {
		setString(&cfg.StoreBackend, file.Store.Backend)
		setString(&cfg.StorePath, file.Store.Path)
		setString(&cfg.HistoryPath, file.Store.HistoryPath)
		if err := setDuration(&cfg.SnapshotTTL, file.Store.SnapshotTTL, "store.snapshot_ttl"); err != nil {
			return err
		}
	}
	if file.Cache != nil {
		setString(&cfg.CacheBackend, file.Cache.Backend)
		setString(&cfg.RedisAddr, file.Cache.RedisAddr)
		if err := setDuration(&cfg.CacheTTL, file.Cache.TTL, "cache.ttl"); err != nil {
			return err
		}
	}
	if file.RateLimit != nil {
		setBool(&cfg.RateLimitEnabled, file.RateLimit.Enabled)
		if file.RateLimit.RPS != nil {
			cfg.RateLimitRPS = *file.RateLimit.RPS
		}
		if file.RateLimit.Burst != nil {
			cfg.RateLimitBurst = *file.RateLimit.Burst
		}
	}
	if file.Telemetry != nil {
		setBool(&cfg.OTELEnabled, file.Telemetry.Enabled)
		setString(&cfg.OTELExporter, file.Telemetry.Exporter)
		setString(&cfg.OTELEndpoint, file.Telemetry.Endpoint)
		if file.Telemetry.SampleRate != nil {
			cfg.OTELSampleRate = *file.Telemetry.SampleRate
		}
	}
	if file.SizeDiff != nil && file.SizeDiff.ThresholdBytes != nil {
		cfg.SizeThreshold = *file.SizeDiff.ThresholdBytes
	}
	if err := setDuration(&cfg.ShutdownTimeout, file.ShutdownTimeout, "shutdown_timeout"); err != nil {
		return err
	}

	return nil
}

// mergeEnvConfig applies BCFG_* environment overrides (highest priority).
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString("BCFG_DATA_DIR", cfg.DataDir)
	cfg.OutDir = l.envString("BCFG_OUT_DIR", cfg.OutDir)
	cfg.ArgsFile = l.envString("BCFG_ARGS_FILE", cfg.ArgsFile)
	cfg.Listen = l.envString("BCFG_LISTEN", cfg.Listen)
	cfg.MetricsListen = l.envString("BCFG_METRICS_LISTEN", cfg.MetricsListen)
	cfg.APIToken = l.envString("BCFG_API_TOKEN", cfg.APIToken)

	cfg.Watch = l.envBool("BCFG_WATCH", cfg.Watch)
	cfg.WatchDebounce = l.envDuration("BCFG_WATCH_DEBOUNCE", cfg.WatchDebounce)

	cfg.StoreBackend = l.envString("BCFG_STORE_BACKEND", cfg.StoreBackend)
	cfg.StorePath = l.envString("BCFG_STORE_PATH", cfg.StorePath)
	cfg.SnapshotTTL = l.envDuration("BCFG_SNAPSHOT_TTL", cfg.SnapshotTTL)
	cfg.HistoryPath = l.envString("BCFG_HISTORY_PATH", cfg.HistoryPath)

	cfg.CacheBackend = l.envString("BCFG_CACHE_BACKEND", cfg.CacheBackend)
	cfg.RedisAddr = l.envString("BCFG_REDIS_ADDR", cfg.RedisAddr)
	cfg.CacheTTL = l.envDuration("BCFG_CACHE_TTL", cfg.CacheTTL)

	cfg.RateLimitEnabled = l.envBool("BCFG_RATE_LIMIT", cfg.RateLimitEnabled)
	cfg.RateLimitRPS = l.envFloat("BCFG_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = l.envInt("BCFG_RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.OTELEnabled = l.envBool("BCFG_OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELExporter = l.envString("BCFG_OTEL_EXPORTER", cfg.OTELExporter)
	cfg.OTELEndpoint = l.envString("BCFG_OTEL_ENDPOINT", cfg.OTELEndpoint)
	cfg.OTELSampleRate = l.envFloat("BCFG_OTEL_SAMPLE_RATE", cfg.OTELSampleRate)

	cfg.SizeThreshold = l.envInt64("BCFG_SIZE_THRESHOLD", cfg.SizeThreshold)

	cfg.ShutdownTimeout = l.envDuration("BCFG_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
}
