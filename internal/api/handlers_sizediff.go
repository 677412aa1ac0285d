// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"

	"github.com/ManuGH/buildcfg/internal/log"
	"github.com/ManuGH/buildcfg/internal/ratelimit"
)

// handleSizeDiffLatest serves the most recent size-gate result from history.
func (s *Server) handleSizeDiffLatest(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow(ratelimit.GetClientIP(r), ratelimit.OpSizeDiff) {
		RespondError(w, r, http.StatusTooManyRequests, ErrRateLimitExceeded)
		return
	}

	if s.history == nil {
		RespondError(w, r, http.StatusNotFound, ErrNoSizeDiff, "history store is not configured")
		return
	}

	rec, err := s.history.LatestSizeDiff(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("event", "sizediff.read_failed").Msg("size diff read failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	if rec == nil {
		RespondError(w, r, http.StatusNotFound, ErrNoSizeDiff)
		return
	}

	writeJSON(w, r, http.StatusOK, rec)
}
