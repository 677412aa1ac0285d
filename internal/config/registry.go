// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Profile defines the operator persona for a configuration option.
type Profile string

const (
	ProfileSimple     Profile = "Simple"
	ProfileAdvanced   Profile = "Advanced"
	ProfileIntegrator Profile = "Integrator"
	ProfileInternal   Profile = "Internal"
)

// Status defines the lifecycle state of a configuration option.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInternal Status = "Internal"
)

// Entry describes one configuration option: where it lives in the YAML
// file, which environment variable overrides it, and which AppConfig
// field it lands in. A nil Default means the effective default is derived
// at load time (DataDir-relative paths) or injected (Version).
type Entry struct {
	Path    string // YAML path, e.g. "store.backend"; empty when file-invisible
	Env     string // environment override, e.g. "BCFG_STORE_BACKEND"
	Field   string // AppConfig field name
	Profile Profile
	Status  Status
	Default any
	Doc     string // one-line operator description
}

// Registry is the inventory of the configuration surface. Loader, docs
// generation and the coverage tests all read from it, so a key that is
// missing here is a key the tooling does not know about.
type Registry struct {
	ByPath  map[string]Entry
	ByField map[string]Entry
	ByEnv   map[string]Entry

	entries []Entry
}

var (
	globalRegistry    *Registry
	globalRegistryErr error
	registryOnce      sync.Once
)

// GetRegistry returns the global configuration registry, built once.
func GetRegistry() (*Registry, error) {
	registryOnce.Do(func() {
		globalRegistry, globalRegistryErr = buildRegistry()
	})
	return globalRegistry, globalRegistryErr
}

func buildRegistry() (*Registry, error) {
	entries := []Entry{
		// --- CORE ---
		{Field: "Version", Profile: ProfileInternal, Status: StatusInternal,
			Doc: "build version, injected by the loader"},
		{Path: "data_dir", Env: "BCFG_DATA_DIR", Field: "DataDir", Profile: ProfileSimple, Status: StatusActive, Default: DefaultDataDir,
			Doc: "directory for snapshots, env-dependency files and local state"},
		{Path: "out_dir", Env: "BCFG_OUT_DIR", Field: "OutDir", Profile: ProfileSimple, Status: StatusActive,
			Doc: "build output directory inspected by targets and sizediff"},
		{Path: "args_file", Env: "BCFG_ARGS_FILE", Field: "ArgsFile", Profile: ProfileSimple, Status: StatusActive,
			Doc: "YAML arguments file evaluated by the daemon"},

		// --- API ---
		{Path: "listen", Env: "BCFG_LISTEN", Field: "Listen", Profile: ProfileSimple, Status: StatusActive, Default: DefaultListen,
			Doc: "API listen address"},
		{Path: "metrics_listen", Env: "BCFG_METRICS_LISTEN", Field: "MetricsListen", Profile: ProfileAdvanced, Status: StatusActive, Default: "",
			Doc: "dedicated metrics listen address; empty keeps /metrics on the API listener"},
		{Path: "api_token", Env: "BCFG_API_TOKEN", Field: "APIToken", Profile: ProfileSimple, Status: StatusActive,
			Doc: "bearer token protecting /api/v1; empty disables auth"},

		// --- WATCH ---
		{Path: "watch", Env: "BCFG_WATCH", Field: "Watch", Profile: ProfileSimple, Status: StatusActive, Default: true,
			Doc: "re-evaluate when the arguments file changes"},
		{Path: "watch_debounce", Env: "BCFG_WATCH_DEBOUNCE", Field: "WatchDebounce", Profile: ProfileAdvanced, Status: StatusActive, Default: DefaultWatchDebounce,
			Doc: "quiet period after a file event before re-evaluating"},

		// --- STORE ---
		{Path: "store.backend", Env: "BCFG_STORE_BACKEND", Field: "StoreBackend", Profile: ProfileAdvanced, Status: StatusActive, Default: DefaultStoreBackend,
			Doc: "snapshot store backend: badger or memory"},
		{Path: "store.path", Env: "BCFG_STORE_PATH", Field: "StorePath", Profile: ProfileAdvanced, Status: StatusActive,
			Doc: "snapshot store location; defaults to <data_dir>/store"},
		{Path: "store.snapshot_ttl", Env: "BCFG_SNAPSHOT_TTL", Field: "SnapshotTTL", Profile: ProfileAdvanced, Status: StatusActive, Default: DefaultSnapshotTTL,
			Doc: "retention of stored snapshots"},
		{Path: "store.history_path", Env: "BCFG_HISTORY_PATH", Field: "HistoryPath", Profile: ProfileAdvanced, Status: StatusActive,
			Doc: "SQLite history database; defaults to <data_dir>/history.db"},

		// --- CACHE ---
		{Path: "cache.backend", Env: "BCFG_CACHE_BACKEND", Field: "CacheBackend", Profile: ProfileAdvanced, Status: StatusActive, Default: DefaultCacheBackend,
			Doc: "response cache backend: memory, redis or noop"},
		{Path: "cache.redis_addr", Env: "BCFG_REDIS_ADDR", Field: "RedisAddr", Profile: ProfileAdvanced, Status: StatusActive,
			Doc: "redis address for the redis cache backend"},
		{Path: "cache.ttl", Env: "BCFG_CACHE_TTL", Field: "CacheTTL", Profile: ProfileAdvanced, Status: StatusActive, Default: DefaultCacheTTL,
			Doc: "lifetime of cached responses"},

		// --- RATE LIMIT ---
		{Path: "ratelimit.enabled", Env: "BCFG_RATE_LIMIT", Field: "RateLimitEnabled", Profile: ProfileAdvanced, Status: StatusActive, Default: true,
			Doc: "enable API rate limiting"},
		{Path: "ratelimit.rps", Env: "BCFG_RATE_LIMIT_RPS", Field: "RateLimitRPS", Profile: ProfileAdvanced, Status: StatusActive, Default: DefaultRateLimitRPS,
			Doc: "per-client requests per second"},
		{Path: "ratelimit.burst", Env: "BCFG_RATE_LIMIT_BURST", Field: "RateLimitBurst", Profile: ProfileAdvanced, Status: StatusActive, Default: DefaultRateLimitBurst,
			Doc: "per-client burst allowance"},

		// --- TELEMETRY ---
		{Path: "telemetry.enabled", Env: "BCFG_OTEL_ENABLED", Field: "OTELEnabled", Profile: ProfileIntegrator, Status: StatusActive, Default: false,
			Doc: "enable OpenTelemetry tracing"},
		{Path: "telemetry.exporter", Env: "BCFG_OTEL_EXPORTER", Field: "OTELExporter", Profile: ProfileIntegrator, Status: StatusActive, Default: DefaultOTELExporter,
			Doc: "trace exporter: grpc, http or noop"},
		{Path: "telemetry.endpoint", Env: "BCFG_OTEL_ENDPOINT", Field: "OTELEndpoint", Profile: ProfileIntegrator, Status: StatusActive, Default: DefaultOTELEndpoint,
			Doc: "OTLP collector endpoint"},
		{Path: "telemetry.sample_rate", Env: "BCFG_OTEL_SAMPLE_RATE", Field: "OTELSampleRate", Profile: ProfileIntegrator, Status: StatusActive, Default: 1.0,
			Doc: "trace sampling ratio, 0.0 to 1.0"},

		// --- SIZE GATE ---
		{Path: "sizediff.threshold_bytes", Env: "BCFG_SIZE_THRESHOLD", Field: "SizeThreshold", Profile: ProfileAdvanced, Status: StatusActive, Default: DefaultSizeThreshold,
			Doc: "compressed growth budget per package in bytes"},

		// --- LIFECYCLE ---
		{Path: "shutdown_timeout", Env: "BCFG_SHUTDOWN_TIMEOUT", Field: "ShutdownTimeout", Profile: ProfileAdvanced, Status: StatusActive, Default: DefaultShutdownTimeout,
			Doc: "drain budget for graceful shutdown"},
	}

	r := &Registry{
		ByPath:  make(map[string]Entry, len(entries)),
		ByField: make(map[string]Entry, len(entries)),
		ByEnv:   make(map[string]Entry, len(entries)),
		entries: entries,
	}
	for _, e := range entries {
		if e.Field == "" {
			return nil, fmt.Errorf("registry entry %q has no field", e.Path)
		}
		if e.Path != "" {
			if _, dup := r.ByPath[e.Path]; dup {
				return nil, fmt.Errorf("duplicate registry path: %s", e.Path)
			}
			r.ByPath[e.Path] = e
		}
		if _, dup := r.ByField[e.Field]; dup {
			return nil, fmt.Errorf("duplicate registry field: %s", e.Field)
		}
		r.ByField[e.Field] = e
		if e.Env != "" {
			if _, dup := r.ByEnv[e.Env]; dup {
				return nil, fmt.Errorf("duplicate registry env: %s", e.Env)
			}
			r.ByEnv[e.Env] = e
		}
	}
	return r, nil
}

// Entries returns the registry in declaration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Paths returns the registered YAML paths, sorted.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.ByPath))
	for p := range r.ByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ValidateFieldCoverage ensures every AppConfig field is registered, so a
// new field cannot ship without an inventory entry.
func (r *Registry) ValidateFieldCoverage(cfg AppConfig) error {
	t := reflect.TypeOf(cfg)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if _, ok := r.ByField[f.Name]; !ok {
			return fmt.Errorf("field %q is not registered in the config registry", f.Name)
		}
	}
	return nil
}

// DefaultFor returns the registered default for an AppConfig field and
// whether one is declared.
func (r *Registry) DefaultFor(field string) (any, bool) {
	e, ok := r.ByField[field]
	if !ok || e.Default == nil {
		return nil, false
	}
	return e.Default, true
}

// FormatDefault renders a registered default the way the example config
// shows it. Durations keep their Go notation since the loader parses it.
func FormatDefault(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case time.Duration:
		return d.String()
	case string:
		return d
	default:
		return fmt.Sprintf("%v", d)
	}
}
