// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/buildcfg/internal/buildgraph"
	"github.com/ManuGH/buildcfg/internal/log"
	"github.com/ManuGH/buildcfg/internal/ratelimit"
	"github.com/ManuGH/buildcfg/internal/target"
)

// targetEntry is one target in the listing response. GNLabel and
// NinjaTarget appear with ?labels=true, Type after a type-loading pass.
type targetEntry struct {
	Name        string `json:"name"`
	GNLabel     string `json:"gn_label,omitempty"`
	NinjaTarget string `json:"ninja_target,omitempty"`
	Type        string `json:"type,omitempty"`
}

type targetsResponse struct {
	OutDir  string        `json:"out_dir"`
	Count   int           `json:"count"`
	Types   map[string]int `json:"types,omitempty"`
	Targets []targetEntry `json:"targets"`
}

// handleTargets lists the build targets of the configured out dir.
// Query params: type filters to one target type (forces a metadata pass),
// labels=true includes the GN and ninja labels.
func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	if s.limiter != nil && !s.limiter.Allow(ratelimit.GetClientIP(r), ratelimit.OpTargets) {
		RespondError(w, r, http.StatusTooManyRequests, ErrRateLimitExceeded)
		return
	}

	if s.cfg.OutDir == "" {
		RespondError(w, r, http.StatusNotFound, ErrTargetsUnavailable, "no build output directory configured")
		return
	}

	typeFilter := r.URL.Query().Get("type")
	withLabels := r.URL.Query().Get("labels") == "true"

	if typeFilter != "" && !buildgraph.Type(typeFilter).Valid() {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, map[string]any{
			"field":   "type",
			"value":   typeFilter,
			"allowed": buildgraph.TypeNames(),
		})
		return
	}

	key := "targets:" + typeFilter + ":" + r.URL.Query().Get("labels")
	if body, ok := s.cache.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	g, err := buildgraph.Load(s.cfg.OutDir)
	if err != nil {
		logger.Warn().Err(err).Str("event", "api.targets_unavailable").Str("out_dir", s.cfg.OutDir).Msg("target list load failed")
		RespondError(w, r, http.StatusNotFound, ErrTargetsUnavailable, err.Error())
		return
	}

	entries := g.Entries()
	resp := targetsResponse{OutDir: g.OutDir()}

	if typeFilter != "" {
		if err := g.LoadTypes(r.Context()); err != nil {
			if errors.Is(err, target.ErrInvalidValue) {
				RespondError(w, r, http.StatusUnprocessableEntity, ErrInvalidConfigurationValue, err.Error())
				return
			}
			logger.Error().Err(err).Str("event", "api.targets_metadata_failed").Msg("target metadata pass failed")
			RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
			return
		}
		entries = g.FilterByType(buildgraph.Type(typeFilter))

		stats := g.Stats()
		resp.Types = make(map[string]int, len(stats))
		for t, n := range stats {
			resp.Types[string(t)] = n
		}
	}

	resp.Targets = make([]targetEntry, 0, len(entries))
	for _, entry := range entries {
		item := targetEntry{
			Name: targetName(entry),
			Type: string(entry.Type()),
		}
		if withLabels {
			item.GNLabel = entry.GNLabel()
			item.NinjaTarget = entry.NinjaTarget()
		}
		resp.Targets = append(resp.Targets, item)
	}
	resp.Count = len(resp.Targets)

	body, err := json.Marshal(resp)
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	s.cache.Set(r.Context(), key, body, s.cacheTTL())

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// targetName folds an entry back to the name a developer would use.
func targetName(e *buildgraph.Entry) string {
	ninja := e.NinjaTarget()
	name := ninja
	if i := strings.LastIndex(ninja, ":"); i >= 0 {
		name = ninja[i+1:]
	}
	return buildgraph.TopLevelName(name)
}
