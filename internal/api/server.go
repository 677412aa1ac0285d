// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api provides the HTTP server for the buildcfg daemon.
package api

import (
	"context"
	"time"

	"github.com/ManuGH/buildcfg/internal/cache"
	"github.com/ManuGH/buildcfg/internal/config"
	"github.com/ManuGH/buildcfg/internal/eval"
	"github.com/ManuGH/buildcfg/internal/health"
	"github.com/ManuGH/buildcfg/internal/history"
	"github.com/ManuGH/buildcfg/internal/ratelimit"
	"github.com/ManuGH/buildcfg/internal/snapshot"
	"github.com/ManuGH/buildcfg/internal/store"
)

// Deps holds the dependencies of the API server. Store and Health are
// required; the rest degrade gracefully when absent.
type Deps struct {
	Config  config.AppConfig
	Store   store.Store
	Cache   cache.Cache
	History *history.Store
	Health  *health.Manager
	Limiter *ratelimit.Limiter

	// Evaluate runs one evaluation pass. Nil means eval.Run; tests stub it.
	Evaluate func(context.Context, eval.Options) (*snapshot.Snapshot, error)
}

// Server is the HTTP API server for buildcfg.
type Server struct {
	cfg       config.AppConfig
	store     store.Store
	cache     cache.Cache
	history   *history.Store
	health    *health.Manager
	limiter   *ratelimit.Limiter
	evaluate  func(context.Context, eval.Options) (*snapshot.Snapshot, error)
	startTime time.Time
}

// New creates an API server from its dependencies.
func New(deps Deps) *Server {
	s := &Server{
		cfg:       deps.Config,
		store:     deps.Store,
		cache:     deps.Cache,
		history:   deps.History,
		health:    deps.Health,
		limiter:   deps.Limiter,
		evaluate:  deps.Evaluate,
		startTime: time.Now(),
	}
	if s.cache == nil {
		s.cache = cache.NewNoop()
	}
	if s.evaluate == nil {
		s.evaluate = eval.Run
	}
	return s
}

// Uptime reports how long the server has been running.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}
