// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ManuGH/buildcfg/internal/eval"
	"github.com/ManuGH/buildcfg/internal/log"
	"github.com/ManuGH/buildcfg/internal/ratelimit"
	"github.com/ManuGH/buildcfg/internal/target"
)

// evaluateRequest is the body of POST /api/v1/evaluate. A nil IsCronetBuild
// leaves the argument-file or default value in force.
type evaluateRequest struct {
	TargetEnvironment string `json:"target_environment,omitempty"`
	TargetCPU         string `json:"target_cpu"`
	IsCronetBuild     *bool  `json:"is_cronet_build,omitempty"`
}

// handleEvaluate runs one evaluation pass with the request's overrides. An
// invalid value produces 422 with the offending field named; nothing is
// stored in that case.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	if s.limiter != nil && !s.limiter.Allow(ratelimit.GetClientIP(r), ratelimit.OpEvaluate) {
		RespondError(w, r, http.StatusTooManyRequests, ErrRateLimitExceeded)
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, "request body is not valid JSON")
		return
	}
	if req.TargetCPU == "" {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, "target_cpu is required")
		return
	}

	overrides := map[string]string{
		"target_cpu": req.TargetCPU,
	}
	if req.TargetEnvironment != "" {
		overrides["target_environment"] = req.TargetEnvironment
	}
	if req.IsCronetBuild != nil {
		overrides["is_cronet_build"] = strconv.FormatBool(*req.IsCronetBuild)
	}

	snap, err := s.evaluate(r.Context(), eval.Options{
		ArgsFile:  s.cfg.ArgsFile,
		Overrides: overrides,
		DataDir:   s.cfg.DataDir,
	})
	if err != nil {
		if errors.Is(err, target.ErrInvalidValue) {
			RespondError(w, r, http.StatusUnprocessableEntity, ErrInvalidConfigurationValue, map[string]string{
				"field": eval.FailureField(err),
				"error": err.Error(),
			})
			return
		}
		logger.Error().Err(err).Str("event", "api.evaluate_failed").Msg("evaluation pass failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}

	if err := s.store.Put(r.Context(), snap); err != nil {
		logger.Error().Err(err).Str("event", "api.snapshot_store_failed").Str("snapshot_id", snap.ID).Msg("snapshot store write failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	if s.history != nil {
		if err := s.history.RecordEvaluation(r.Context(), snap); err != nil {
			// History is best-effort; the snapshot itself is already stored.
			logger.Warn().Err(err).Str("snapshot_id", snap.ID).Msg("history record failed")
		}
	}

	logger.Info().
		Str("event", "api.evaluated").
		Str("snapshot_id", snap.ID).
		Str("target_environment", string(snap.TargetEnvironment)).
		Msg("evaluation pass completed")

	s.serveSnapshot(w, r, snap)
}
