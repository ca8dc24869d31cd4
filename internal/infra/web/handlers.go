package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
)

// sessionResponse is the envelope for creation and polling: the session
// id plus every job snapshot in submission order.
type sessionResponse struct {
	SessionID string           `json:"session_id"`
	Queries   []model.QueryJob `json:"queries"`
}

type createSessionRequest struct {
	Queries []string `json:"queries"`
}

func (s *Server) createSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		id, jobs, err := s.analysisUC.CreateSession(r.Context(), req.Queries)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrEmptyBatch):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrCapacityExceeded):
				http.Error(w, err.Error(), http.StatusTooManyRequests)
			default:
				s.log.Error().Err(err).Msg("create session failed")
				http.Error(w, "Failed to create session", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id, Queries: jobs})
	}
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		jobs, err := s.analysisUC.Status(id)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			s.log.Error().Err(err).Msg("status failed")
			http.Error(w, "Failed to get status", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Queries: jobs})
	}
}

func (s *Server) deleteSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if err := s.analysisUC.Delete(id); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			s.log.Error().Err(err).Msg("delete failed")
			http.Error(w, "Failed to delete session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type optimizeRequest struct {
	SQL string `json:"sql"`
}

func (s *Server) optimizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req optimizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		res, err := s.optimizeUC.Optimize(r.Context(), req.SQL)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, "sql is required", http.StatusBadRequest)
				return
			}
			s.log.Error().Err(err).Msg("optimize failed")
			http.Error(w, "Optimization failed", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
