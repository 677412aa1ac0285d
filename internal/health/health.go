// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package health provides health and readiness checks for the daemon.
// It supports Docker HEALTHCHECK and Kubernetes probes with detailed
// component status.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/buildcfg/internal/buildgraph"
	"github.com/ManuGH/buildcfg/internal/cache"
	"github.com/ManuGH/buildcfg/internal/envdep"
	"github.com/ManuGH/buildcfg/internal/log"
	"github.com/ManuGH/buildcfg/internal/store"
)

// Status represents the overall health/readiness status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks.
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a health check manager.
func NewManager(version string) *Manager {
	return &Manager{
		version:  version,
		checkers: make([]Checker, 0),
	}
}

// RegisterChecker adds a health checker to the manager.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Health performs a health check (liveness probe). The process is
// alive; verbose adds the component breakdown.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}

	if verbose && len(m.checkers) > 0 {
		resp.Checks = make(map[string]CheckResult)
		hasUnhealthy := false
		hasDegraded := false

		for _, checker := range m.checkers {
			result := checker.Check(ctx)
			resp.Checks[checker.Name()] = result

			switch result.Status {
			case StatusUnhealthy:
				hasUnhealthy = true
			case StatusDegraded:
				hasDegraded = true
			}
		}

		if hasUnhealthy {
			resp.Status = StatusUnhealthy
		} else if hasDegraded {
			resp.Status = StatusDegraded
		}
	}

	return resp
}

// Ready performs a readiness check. Ready only when no component is
// unhealthy; degraded components keep serving.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult)
	hasUnhealthy := false
	hasDegraded := false

	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		resp.Checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
			resp.Ready = false
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		resp.Status = StatusUnhealthy
	} else if hasDegraded {
		resp.Status = StatusDegraded
	}

	return resp
}

// ServeHealth handles HTTP health check requests.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
}

// ServeReady handles HTTP readiness check requests.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str("event", "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// FileChecker checks that a configured file exists and has content.
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence.
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

func (c *FileChecker) Name() string {
	return c.name
}

func (c *FileChecker) Check(_ context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "file not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory"}
	}
	if info.Size() == 0 {
		return CheckResult{Status: StatusDegraded, Message: "file is empty"}
	}

	return CheckResult{Status: StatusHealthy, Message: "file exists and readable"}
}

// StoreChecker probes the snapshot store with a latest-snapshot read.
type StoreChecker struct {
	store store.Store
}

// NewStoreChecker creates a checker for the snapshot store.
func NewStoreChecker(s store.Store) *StoreChecker {
	return &StoreChecker{store: s}
}

func (c *StoreChecker) Name() string {
	return "store"
}

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	snap, err := c.store.Latest(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if snap == nil {
		return CheckResult{Status: StatusHealthy, Message: "store reachable, no snapshot yet"}
	}
	return CheckResult{Status: StatusHealthy, Message: "store reachable"}
}

// CacheChecker probes the response cache. Backends exposing a health
// check (redis) are pinged; everything else reports entry counts.
type CacheChecker struct {
	cache cache.Cache
}

// NewCacheChecker creates a checker for the response cache.
func NewCacheChecker(c cache.Cache) *CacheChecker {
	return &CacheChecker{cache: c}
}

func (c *CacheChecker) Name() string {
	return "cache"
}

func (c *CacheChecker) Check(ctx context.Context) CheckResult {
	if hc, ok := c.cache.(interface{ HealthCheck(context.Context) error }); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
	}
	stats := c.cache.Stats()
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d entries", stats.Entries),
	}
}

// OutDirChecker checks the build output directory the target listing
// reads from.
type OutDirChecker struct {
	dir string
}

// NewOutDirChecker creates a checker for the build output directory.
func NewOutDirChecker(dir string) *OutDirChecker {
	return &OutDirChecker{dir: dir}
}

func (c *OutDirChecker) Name() string {
	return "out_dir"
}

func (c *OutDirChecker) Check(_ context.Context) CheckResult {
	if c.dir == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}

	info, err := os.Stat(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "out dir not found", Message: c.dir}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected directory, got file"}
	}

	if _, err := os.Stat(filepath.Join(c.dir, buildgraph.TargetsFileName)); err != nil {
		return CheckResult{Status: StatusDegraded, Message: "no target list yet"}
	}

	return CheckResult{Status: StatusHealthy, Message: "out dir with target list"}
}

// EnvChecker reports whether the environment still matches the values
// recorded by the last evaluation pass.
type EnvChecker struct {
	depsPath string
}

// NewEnvChecker creates a checker for environment-dependency freshness.
func NewEnvChecker(depsPath string) *EnvChecker {
	return &EnvChecker{depsPath: depsPath}
}

func (c *EnvChecker) Name() string {
	return "env_freshness"
}

func (c *EnvChecker) Check(_ context.Context) CheckResult {
	if c.depsPath == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}

	deps, err := envdep.ReadFile(c.depsPath)
	if err != nil {
		if errors.Is(err, envdep.ErrNoFile) {
			return CheckResult{Status: StatusDegraded, Message: "no evaluation recorded yet"}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}

	if changed := envdep.Changed(deps); len(changed) > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d recorded environment value(s) drifted", len(changed)),
		}
	}

	return CheckResult{Status: StatusHealthy, Message: "environment matches last evaluation"}
}

// LastEvaluationChecker checks the most recent evaluation pass.
type LastEvaluationChecker struct {
	getLast func() (time.Time, string)
	maxAge  time.Duration
}

// NewLastEvaluationChecker creates a checker over the daemon's last
// evaluation result. maxAge <= 0 means 24h.
func NewLastEvaluationChecker(getLast func() (time.Time, string), maxAge time.Duration) *LastEvaluationChecker {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &LastEvaluationChecker{getLast: getLast, maxAge: maxAge}
}

func (c *LastEvaluationChecker) Name() string {
	return "last_evaluation"
}

func (c *LastEvaluationChecker) Check(_ context.Context) CheckResult {
	last, lastError := c.getLast()

	if last.IsZero() {
		return CheckResult{Status: StatusUnhealthy, Message: "no evaluation pass yet"}
	}
	if lastError != "" {
		return CheckResult{Status: StatusUnhealthy, Error: lastError, Message: "last evaluation failed"}
	}
	if time.Since(last) > c.maxAge {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last evaluation over %s ago", c.maxAge),
		}
	}

	return CheckResult{Status: StatusHealthy, Message: "last evaluation successful"}
}
