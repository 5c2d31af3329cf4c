// Package api exposes the queue's state over a read-only HTTP/JSON
// surface for dashboards and scripting. Mutations stay on the CLI and
// library; the API never transitions jobs.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/cmdq"
	"github.com/xraph/cmdq/job"
)

// Server wraps an Engine with HTTP handlers.
type Server struct {
	engine *cmdq.Engine
}

// NewServer creates a Server over the given engine.
func NewServer(engine *cmdq.Engine) *Server {
	return &Server{engine: engine}
}

// Router builds the chi router with all read routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Get("/jobs/{jobID}/logs", s.handleJobLogs)
		r.Get("/dlq", s.handleDLQ)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/workers", s.handleWorkers)
		r.Get("/cron", s.handleCron)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Store().Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.StatusSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	state := job.State(r.URL.Query().Get("state"))
	if state != "" && !state.Valid() {
		writeError(w, http.StatusBadRequest, errors.New("unknown state "+string(state)))
		return
	}
	jobs, err := s.engine.ListJobs(r.Context(), state)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.engine.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleJobLogs(w http.ResponseWriter, r *http.Request) {
	j, lines, err := s.engine.JobLogs(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if lines == nil {
		lines = []*job.LogLine{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": j, "logs": lines})
}

func (s *Server) handleDLQ(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.engine.DLQ().List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.MetricSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rows, err := s.engine.Metrics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary, "jobs": rows})
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := s.engine.Workers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, workers)
}

func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.ListCron(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func statusFor(err error) int {
	if errors.Is(err, cmdq.ErrJobNotFound) || errors.Is(err, cmdq.ErrCronNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
