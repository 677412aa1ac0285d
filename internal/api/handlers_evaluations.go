// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ManuGH/buildcfg/internal/history"
	"github.com/ManuGH/buildcfg/internal/log"
)

const (
	defaultEvaluationsLimit = 20
	maxEvaluationsLimit     = 100
)

// EvaluationsResponse lists recorded evaluation passes, newest first.
type EvaluationsResponse struct {
	Count       int                  `json:"count"`
	Evaluations []history.Evaluation `json:"evaluations"`
}

// handleEvaluationsRecent serves the newest recorded evaluation passes from
// the history store. An empty history is a valid empty listing, distinct
// from a daemon running without a history store at all.
func (s *Server) handleEvaluationsRecent(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		RespondError(w, r, http.StatusNotFound, ErrHistoryUnavailable)
		return
	}

	limit := defaultEvaluationsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxEvaluationsLimit {
			RespondError(w, r, http.StatusBadRequest, ErrInvalidInput,
				fmt.Sprintf("limit must be an integer between 1 and %d", maxEvaluationsLimit))
			return
		}
		limit = n
	}

	evals, err := s.history.RecentEvaluations(r.Context(), limit)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("event", "evaluations.read_failed").Msg("evaluation history read failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	if evals == nil {
		evals = []history.Evaluation{}
	}

	writeJSON(w, r, http.StatusOK, EvaluationsResponse{
		Count:       len(evals),
		Evaluations: evals,
	})
}
