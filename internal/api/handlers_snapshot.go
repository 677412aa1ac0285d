// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ManuGH/buildcfg/internal/log"
	"github.com/ManuGH/buildcfg/internal/snapshot"
	"github.com/go-chi/chi/v5"
)

// handleSnapshotLatest serves the most recent evaluation snapshot. The
// snapshot ID doubles as a strong ETag: snapshots are immutable, so a
// matching ID means identical content.
func (s *Server) handleSnapshotLatest(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Latest(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("event", "snapshot.read_failed").Msg("latest snapshot read failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	if snap == nil {
		RespondError(w, r, http.StatusNotFound, ErrSnapshotNotFound, "no evaluation pass recorded yet")
		return
	}

	s.serveSnapshot(w, r, snap)
}

// handleSnapshotByID serves one stored snapshot by its ID.
func (s *Server) handleSnapshotByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := s.store.Get(r.Context(), id)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("event", "snapshot.read_failed").Str("snapshot_id", id).Msg("snapshot read failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	if snap == nil {
		RespondError(w, r, http.StatusNotFound, ErrSnapshotNotFound, id)
		return
	}

	s.serveSnapshot(w, r, snap)
}

func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request, snap *snapshot.Snapshot) {
	etag := `"` + snap.ID + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	// Snapshots never change under their ID, so the serialized form can be
	// cached indefinitely within the TTL.
	key := "snapshot:" + snap.ID
	if body, ok := s.cache.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	body, err := json.Marshal(snap)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("event", "snapshot.encode_failed").Msg("snapshot marshal failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	s.cache.Set(r.Context(), key, body, s.cacheTTL())

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) cacheTTL() time.Duration {
	if s.cfg.CacheTTL > 0 {
		return s.cfg.CacheTTL
	}
	return time.Minute
}
