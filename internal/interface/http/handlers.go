// Package http implements the REST API of PeerCall Hub.
package http

import (
	"errors"
	"net/http"

	"github.com/peercall/peercall-hub/internal/application/command"
	"github.com/peercall/peercall-hub/internal/application/query"
	"github.com/peercall/peercall-hub/internal/domain/shared"
	"github.com/peercall/peercall-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "PeerCall Hub API",
		"version":     "v1",
		"description": "REST API for PeerCall Hub - peer call pairing and scheduling",
		"endpoints": map[string]string{
			"health":  "/health",
			"match":   "/api/v1/matches/{id}",
			"confirm": "/match/{matchID}/confirm/{userID}",
			"decline": "/match/{matchID}/decline/{userID}",
			"stats":   "/api/v1/stats/allocation",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ONE-CLICK LINK HANDLERS
// These endpoints back the confirm/decline links in notification emails, so
// they are GET by necessity and must be safe to click twice.
// ══════════════════════════════════════════════════════════════════════════════

// handleConfirmMatch handles GET /match/{matchID}/confirm/{userID}
func (s *Server) handleConfirmMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("matchID")
	userID := r.PathValue("userID")
	if matchID == "" || userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Match ID and user ID are required")
		return
	}

	if s.deps.ConfirmMatchHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Confirm handler not configured")
		return
	}

	cmd := command.ConfirmMatchCommand{MatchID: matchID, UserID: userID}

	result, err := s.deps.ConfirmMatchHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err, "failed to confirm match",
			logger.MatchID(matchID), logger.UserID(userID))
		return
	}

	message := "Confirmation received. Waiting for the other participant."
	if result.FullyConfirmed {
		message = "Your call is confirmed. See you there!"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"match_id":        result.Match.ID.String(),
		"status":          result.Match.Status.String(),
		"fully_confirmed": result.FullyConfirmed,
		"message":         message,
	})
}

// handleDeclineMatch handles GET /match/{matchID}/decline/{userID}
func (s *Server) handleDeclineMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("matchID")
	userID := r.PathValue("userID")
	if matchID == "" || userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Match ID and user ID are required")
		return
	}

	if s.deps.DeclineMatchHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Decline handler not configured")
		return
	}

	cmd := command.DeclineMatchCommand{MatchID: matchID, UserID: userID}

	result, err := s.deps.DeclineMatchHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err, "failed to decline match",
			logger.MatchID(matchID), logger.UserID(userID))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"match_id": result.Match.ID.String(),
		"status":   result.Match.Status.String(),
		"message":  "The call has been canceled. You will be re-matched on the next pass.",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MATCH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetMatch handles GET /api/v1/matches/{id}
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	if matchID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Match ID is required")
		return
	}

	if s.deps.GetMatchHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Match handler not configured")
		return
	}

	q := query.GetMatchQuery{MatchID: matchID}

	result, err := s.deps.GetMatchHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err, "failed to get match", logger.MatchID(matchID))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAllocationStats handles GET /api/v1/stats/allocation
func (s *Server) handleGetAllocationStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetAllocationStatsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Stats handler not configured")
		return
	}

	stats, err := s.deps.GetAllocationStatsHandler.Handle(r.Context())
	if err != nil {
		s.logger.Error("failed to get allocation stats", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to get allocation stats")
		return
	}

	if stats == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "No generation pass has run yet")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP status codes. Unrecognized
// errors are logged and reported as 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, logMsg string, fields ...logger.Field) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", "Match or user not found")
	case errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden", "You are not a participant of this match")
	case shared.IsStateTransition(err):
		writeJSONError(w, http.StatusConflict, "conflict", "The match no longer allows this action")
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request parameters")
	default:
		s.logger.Error(logMsg, append(fields, logger.Err(err))...)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
