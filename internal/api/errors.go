// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ManuGH/buildcfg/internal/api/middleware"
	"github.com/ManuGH/buildcfg/internal/log"
)

// APIError pairs a stable machine-readable code with a human-readable
// message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common API error definitions.
var (
	ErrUnauthorized = &APIError{
		Code:    "UNAUTHORIZED",
		Message: "Authentication required",
	}
	ErrSnapshotNotFound = &APIError{
		Code:    "SNAPSHOT_NOT_FOUND",
		Message: "Snapshot not found",
	}
	ErrNoSizeDiff = &APIError{
		Code:    "NO_SIZE_DIFF",
		Message: "No size comparison recorded yet",
	}
	ErrHistoryUnavailable = &APIError{
		Code:    "HISTORY_UNAVAILABLE",
		Message: "History store is not configured",
	}
	ErrInvalidInput = &APIError{
		Code:    "INVALID_INPUT",
		Message: "Invalid input parameters",
	}
	ErrInvalidConfigurationValue = &APIError{
		Code:    "INVALID_CONFIGURATION_VALUE",
		Message: "Configuration value outside its allowed set",
	}
	ErrRateLimitExceeded = &APIError{
		Code:    "RATE_LIMIT_EXCEEDED",
		Message: "Rate limit exceeded - too many requests",
	}
	ErrTargetsUnavailable = &APIError{
		Code:    "TARGETS_UNAVAILABLE",
		Message: "Build output directory has no target list",
	}
	ErrInternalServer = &APIError{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: "An internal error occurred",
	}
)

// writeJSON writes a JSON response with the given status code. Encoding
// failures are logged; headers are already sent at that point.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).Error().
			Err(err).
			Int("status", code).
			Msg("failed to encode JSON response")
	}
}

// RespondError sends an RFC 7807 problem response for apiErr. An optional
// detail value lands under "details".
func RespondError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError, details ...any) {
	reqID := log.RequestIDFromContext(r.Context())
	if reqID == "" {
		reqID = w.Header().Get(middleware.HeaderRequestID)
	}

	res := map[string]any{
		"type":       "error/" + strings.ToLower(apiErr.Code),
		"title":      apiErr.Message,
		"status":     statusCode,
		"code":       apiErr.Code,
		"request_id": reqID,
	}
	if r.URL != nil {
		res["instance"] = r.URL.EscapedPath()
	}
	if len(details) > 0 && details[0] != nil {
		res["details"] = details[0]
	}

	w.Header().Set(middleware.HeaderRequestID, reqID)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.FromContext(r.Context()).Error().
			Err(err).
			Str("code", apiErr.Code).
			Int("status", statusCode).
			Msg("failed to encode problem response")
	}
}
