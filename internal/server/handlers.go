package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/desertthunder/crate/internal/shared"
	"github.com/go-chi/chi/v5"
)

const defaultLogLimit = 50

type createJobRequest struct {
	PlaylistURL string `json:"playlist_url"`
	CreatedBy   string `json:"created_by,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.deps.Jobs.CreateImportJob(r.Context(), req.PlaylistURL, req.CreatedBy)
	switch {
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("failed to create import job", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create import job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Jobs.GetAllImportJobs(r.Context())
	if err != nil {
		s.logger.Error("failed to list import jobs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list import jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.GetImportJob(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, shared.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.Error("failed to get import job", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get import job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.deps.Jobs.CancelImportJob(id) {
		writeJSON(w, http.StatusConflict, map[string]any{"id": id, "cancelled": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "cancelled": true})
}

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	logs, err := s.deps.Logs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list import logs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list import logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) runNow(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler is not configured")
		return
	}

	switch err := s.deps.Scheduler.Trigger(r.Context()); {
	case errors.Is(err, shared.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func (s *Server) providerStats(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Stats.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"providers":    s.deps.Stats.Providers(),
		"stats":        snap,
		"success_rate": snap.SuccessRate(),
	})
}
