// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon wires the buildcfg runtime together and manages its
// lifecycle: configuration, stores, the HTTP API, the arguments watcher,
// and graceful shutdown.
package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/buildcfg/internal/api"
	"github.com/ManuGH/buildcfg/internal/cache"
	"github.com/ManuGH/buildcfg/internal/config"
	"github.com/ManuGH/buildcfg/internal/envdep"
	"github.com/ManuGH/buildcfg/internal/eval"
	"github.com/ManuGH/buildcfg/internal/health"
	"github.com/ManuGH/buildcfg/internal/history"
	"github.com/ManuGH/buildcfg/internal/log"
	pnet "github.com/ManuGH/buildcfg/internal/platform/net"
	"github.com/ManuGH/buildcfg/internal/platform/paths"
	"github.com/ManuGH/buildcfg/internal/ratelimit"
	"github.com/ManuGH/buildcfg/internal/store"
	"github.com/ManuGH/buildcfg/internal/telemetry"
	"github.com/ManuGH/buildcfg/internal/watch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Config holds daemon bootstrap parameters.
type Config struct {
	// Version is the build version
	Version string

	// ConfigPath is the path to the YAML config file
	ConfigPath string
}

// Daemon is one wired buildcfg runtime.
type Daemon struct {
	bootCfg Config
	cfg     config.AppConfig
	logger  zerolog.Logger
	last    lastEval
}

// New loads the configuration and prepares a daemon instance. Servers and
// stores are not touched until Run.
func New(bootCfg Config) (*Daemon, error) {
	log.Configure(log.Config{Service: "buildcfg"})
	logger := log.WithComponent("daemon")

	loader := config.NewLoader(bootCfg.ConfigPath, bootCfg.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if bootCfg.ConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", bootCfg.ConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	return &Daemon{
		bootCfg: bootCfg,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Run wires all subsystems and blocks until ctx is cancelled or a fatal
// error occurs.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.cfg
	logger := d.logger

	// Telemetry failures never block startup.
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    "buildcfg",
		ServiceVersion: cfg.Version,
		Environment:    "production",
		ExporterType:   cfg.OTELExporter,
		Endpoint:       cfg.OTELEndpoint,
		SamplingRate:   cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
		provider = nil
	}
	if provider != nil && cfg.OTELEnabled {
		logger.Info().
			Str("event", "telemetry.enabled").
			Str("exporter", cfg.OTELExporter).
			Str("endpoint", pnet.SanitizeURL(cfg.OTELEndpoint)).
			Msg("tracing enabled")
	}

	layout, err := paths.EnsureLayout(cfg.DataDir, cfg.StorePath, cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("establish data directory: %w", err)
	}
	if len(layout.Created) > 0 {
		logger.Info().
			Strs("created", layout.Created).
			Msg("created data directory layout")
	}

	// Pre-flight checks run after the layout exists (the data-dir write
	// probe needs the directory) and before any store or server comes up.
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	st, err := store.Open(cfg.StoreBackend, layout.StoreDir, cfg.SnapshotTTL)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}

	respCache, err := cache.New(cfg.CacheBackend, cfg.RedisAddr, log.WithComponent("cache"))
	if err != nil {
		closeQuietly(logger, "store", st.Close)
		return fmt.Errorf("open response cache: %w", err)
	}

	hist, err := history.NewStore(layout.HistoryDB)
	if err != nil {
		closeQuietly(logger, "store", st.Close)
		return fmt.Errorf("open history store: %w", err)
	}

	hm := newHealthManager(cfg, st, respCache, d.last.Last)

	var limiter *ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.New(ratelimit.DefaultConfig())
	}

	// reload runs one full pass over the configured arguments file. It is
	// shared by the startup pass, the file watcher, and SIGHUP.
	reload := func(ctx context.Context) error {
		err := func() error {
			snap, err := eval.Run(ctx, eval.Options{
				ArgsFile: cfg.ArgsFile,
				DataDir:  cfg.DataDir,
			})
			if err != nil {
				return err
			}
			if err := st.Put(ctx, snap); err != nil {
				return fmt.Errorf("store snapshot: %w", err)
			}
			if err := hist.RecordEvaluation(ctx, snap); err != nil {
				// History is best-effort; the snapshot itself is stored.
				logger.Warn().Err(err).Str("snapshot_id", snap.ID).Msg("history record failed")
			}
			return nil
		}()
		d.last.record(err)
		return err
	}

	var watcher *watch.Watcher
	if cfg.Watch && cfg.ArgsFile != "" {
		watcher = watch.New(cfg.ArgsFile, cfg.WatchDebounce, reload)
	}

	srv := api.New(api.Deps{
		Config:  cfg,
		Store:   st,
		Cache:   respCache,
		History: hist,
		Health:  hm,
		Limiter: limiter,
	})

	mgr, err := NewManager(config.ServerConfigFromApp(cfg), Deps{
		Logger:         logger,
		Config:         cfg,
		APIHandler:     srv.Routes(),
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		closeQuietly(logger, "store", st.Close)
		closeQuietly(logger, "history", hist.Close)
		return fmt.Errorf("create daemon manager: %w", err)
	}

	// Hooks run LIFO: the watcher stops first, telemetry flushes last.
	if provider != nil {
		mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	}
	mgr.RegisterShutdownHook("history.close", func(context.Context) error { return hist.Close() })
	if closer, ok := respCache.(interface{ Close() error }); ok {
		mgr.RegisterShutdownHook("cache.close", func(context.Context) error { return closer.Close() })
	}
	mgr.RegisterShutdownHook("store.close", func(context.Context) error { return st.Close() })
	if watcher != nil {
		mgr.RegisterShutdownHook("watch.stop", func(context.Context) error { watcher.Stop(); return nil })
	}

	logger.Info().
		Str("event", "startup").
		Str("version", cfg.Version).
		Str("addr", cfg.Listen).
		Msg("starting buildcfg")

	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	if cfg.OutDir != "" {
		logger.Info().Msgf("→ Out dir: %s", cfg.OutDir)
	} else {
		logger.Info().Msg("→ Out dir: not configured (target listing disabled)")
	}
	if cfg.ArgsFile != "" {
		logger.Info().Msgf("→ Args file: %s (watch: %v)", cfg.ArgsFile, cfg.Watch)
	}
	logger.Info().Msgf("→ Store: %s", cfg.StoreBackend)
	if cfg.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ API token: NOT configured (Auth Disabled). Set BCFG_API_TOKEN for security.")
	}

	// Initial pass before the servers come up, so the first snapshot
	// request does not race the first evaluation. Runs with or without an
	// arguments file; without one it resolves defaults and environment.
	logger.Info().Msg("performing initial evaluation pass on startup")
	if err := reload(ctx); err != nil {
		logger.Error().Err(err).Msg("initial evaluation failed")
		logger.Warn().Msg("→ No snapshot available until the arguments file is fixed or an evaluate request succeeds")
	}

	app := NewApp(logger, mgr, watcher, reload)
	return app.Run(ctx)
}

// newHealthManager registers the daemon's domain checkers. Checkers for
// optional inputs (arguments file, out dir, deps file) report healthy when
// their input is not configured.
func newHealthManager(cfg config.AppConfig, st store.Store, respCache cache.Cache, last func() (time.Time, string)) *health.Manager {
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewStoreChecker(st))
	hm.RegisterChecker(health.NewCacheChecker(respCache))
	hm.RegisterChecker(health.NewFileChecker("args_file", cfg.ArgsFile))
	hm.RegisterChecker(health.NewOutDirChecker(cfg.OutDir))
	hm.RegisterChecker(health.NewEnvChecker(filepath.Join(cfg.DataDir, envdep.DefaultFileName)))
	hm.RegisterChecker(health.NewLastEvaluationChecker(last, 0))
	return hm
}

func closeQuietly(logger zerolog.Logger, name string, close func() error) {
	if err := close(); err != nil {
		logger.Warn().Err(err).Str("component", name).Msg("close failed during aborted startup")
	}
}

// lastEval tracks the outcome of the most recent arguments-file pass for
// the readiness probe.
type lastEval struct {
	mu  sync.Mutex
	at  time.Time
	err string
}

func (l *lastEval) record(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.at = time.Now()
	if err != nil {
		l.err = err.Error()
	} else {
		l.err = ""
	}
}

// Last reports when the most recent pass ran and its error, if any.
func (l *lastEval) Last() (time.Time, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.at, l.err
}
