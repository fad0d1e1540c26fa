package designd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/loadcurve/internal/metrics"
	"github.com/GoSim-25-26J-441/loadcurve/internal/policy"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/config"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

const maxBodyBytes = 1 << 20

type HTTPServer struct {
	mux       *http.ServeMux
	store     *DesignStore
	submitter *Submitter
	metrics   *metrics.Collector
	limiter   *policy.RateLimiter
}

// NewHTTPServer wires the designer API. A nil submitter disables :submit and a
// nil collector disables /metrics.
func NewHTTPServer(store *DesignStore, submitter *Submitter, m *metrics.Collector) *HTTPServer {
	s := &HTTPServer{
		mux:       http.NewServeMux(),
		store:     store,
		submitter: submitter,
		metrics:   m,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	if m != nil {
		s.mux.Handle("/metrics", m.Handler())
	}
	s.mux.HandleFunc("/v1/services", s.handleServices)
	s.mux.HandleFunc("/v1/arrival-patterns", s.handleArrivalPatterns)
	s.mux.HandleFunc("/v1/discretize", s.handleDiscretize)
	s.mux.HandleFunc("/v1/experiments", s.handleExperiments)
	s.mux.HandleFunc("/v1/experiments/", s.handleExperimentByID)

	return s
}

// SetRateLimiter throttles API calls per client address; /healthz is exempt
func (s *HTTPServer) SetRateLimiter(l *policy.RateLimiter) {
	s.limiter = l
}

func (s *HTTPServer) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.limiter.Enabled() {
		h = s.rateLimit(h)
	}
	return s.recoverPanics(h)
}

// recoverPanics answers 500 instead of dropping the connection
func (s *HTTPServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("HTTP handler panic", "method", r.Method, "path", r.URL.Path, "panic", rec)
				s.writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		client := clientAddr(r)
		if !s.limiter.Allow(client, time.Now()) {
			logger.Debug("request rate limited", "policy", s.limiter.Name(), "client", client, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr is the remote host without its port
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleServices handles GET /v1/services
func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"services": s.store.Services()})
}

// handleArrivalPatterns handles GET /v1/arrival-patterns
func (s *HTTPServer) handleArrivalPatterns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"arrival_patterns": s.store.ArrivalPatterns()})
}

// handleDiscretize handles POST /v1/discretize, a stateless preview of a curve
func (s *HTTPServer) handleDiscretize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req discretizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := req.run()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleExperiments handles /v1/experiments
func (s *HTTPServer) handleExperiments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateExperiment(w, r)
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, map[string]any{"experiments": s.store.List()})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleExperimentByID handles /v1/experiments/{id} and related endpoints
func (s *HTTPServer) handleExperimentByID(w http.ResponseWriter, r *http.Request) {
	// Parse path: /v1/experiments/{id}, {id}:submit, {id}/export,
	// {id}/workloads, {id}/workloads/{wid} or {id}/workloads/{wid}:reset
	path := strings.TrimPrefix(r.URL.Path, "/v1/experiments/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "experiment ID is required")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1 && strings.HasSuffix(id, ":submit"):
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleSubmit(w, r, strings.TrimSuffix(id, ":submit"))

	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.handleGetExperiment(w, r, id)
		case http.MethodPatch:
			s.handleSetTiming(w, r, id)
		case http.MethodDelete:
			s.handleDeleteExperiment(w, r, id)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	case len(parts) == 2 && parts[1] == "export":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleExport(w, r, id)

	case len(parts) == 2 && parts[1] == "workloads":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleAddWorkload(w, r, id)

	case len(parts) == 3 && parts[1] == "workloads" && strings.HasSuffix(parts[2], ":reset"):
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleResetWorkload(w, r, id, strings.TrimSuffix(parts[2], ":reset"))

	case len(parts) == 3 && parts[1] == "workloads" && parts[2] != "":
		switch r.Method {
		case http.MethodGet:
			s.handleGetWorkload(w, r, id, parts[2])
		case http.MethodPatch:
			s.handleEditWorkload(w, r, id, parts[2])
		case http.MethodDelete:
			s.handleRemoveWorkload(w, r, id, parts[2])
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

// handleCreateExperiment handles POST /v1/experiments
func (s *HTTPServer) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req createExperimentRequest
	if !s.decode(w, r, &req) {
		return
	}
	meta := models.ExperimentMeta{ID: req.ID, Name: req.Name, Creator: req.Creator}

	var (
		view ExperimentView
		err  error
	)
	if req.YAML != "" {
		def, perr := config.ParseExperimentYAMLString(req.YAML)
		if perr != nil {
			s.writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		view, err = s.store.CreateFromDefinition(meta, def)
	} else {
		d, i, terr := parseTiming(req.Duration, req.Interval)
		if terr != nil {
			s.writeDomainError(w, terr)
			return
		}
		view, err = s.store.Create(meta, d, i)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	logger.Info("experiment created (HTTP)", "experiment_id", view.ID, "workloads", len(view.Workloads))
	s.writeJSON(w, http.StatusCreated, map[string]any{"experiment": view})
}

func (s *HTTPServer) handleGetExperiment(w http.ResponseWriter, _ *http.Request, id string) {
	view, err := s.store.Get(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"experiment": view})
}

// handleSetTiming handles PATCH /v1/experiments/{id}; every workload is refreshed
func (s *HTTPServer) handleSetTiming(w http.ResponseWriter, r *http.Request, id string) {
	var req timingRequest
	if !s.decode(w, r, &req) {
		return
	}
	d, i, err := parseTiming(req.Duration, req.Interval)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	var view ExperimentView
	err = s.store.Update(id, func(rec *ExperimentRecord) error {
		curD, curI := rec.Experiment.Timing()
		if d == nil {
			d = &curD
		}
		if i == nil {
			i = &curI
		}
		if err := rec.Experiment.SetTiming(*d, *i); err != nil {
			return err
		}
		view = newExperimentView(rec)
		return nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"experiment": view})
}

func (s *HTTPServer) handleDeleteExperiment(w http.ResponseWriter, _ *http.Request, id string) {
	if err := s.store.Delete(id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	logger.Info("experiment deleted", "experiment_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleExport handles GET /v1/experiments/{id}/export?format=json|yaml
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "yaml" {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q (must be json or yaml)", format))
		return
	}

	var sub models.Submission
	err := s.store.Update(id, func(rec *ExperimentRecord) error {
		sub = models.Submission{Experiment: rec.Meta, Configuration: rec.Experiment.Configuration()}
		return nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if format == "json" {
		s.writeJSON(w, http.StatusOK, sub)
		return
	}
	data, err := yaml.Marshal(sub)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to encode yaml: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".yaml"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Error("failed to write yaml response", "error", err)
	}
}

// handleSubmit handles POST /v1/experiments/{id}:submit. The store lock is not
// held while the engine is contacted.
func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request, id string) {
	if s.submitter == nil {
		s.writeDomainError(w, ErrEngineNotConfigured)
		return
	}

	var sub models.Submission
	err := s.store.Update(id, func(rec *ExperimentRecord) error {
		if err := rec.Experiment.Validate(); err != nil {
			return err
		}
		sub = models.Submission{Experiment: rec.Meta, Configuration: rec.Experiment.Configuration()}
		rec.SubmitStatus = SubmitPending
		rec.SubmitError = ""
		return nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	ref, submitErr := s.submitter.Submit(ctx, sub)
	s.metrics.Submitted(submitErr == nil)

	var view ExperimentView
	err = s.store.Update(id, func(rec *ExperimentRecord) error {
		rec.SubmittedAtUnixMs = nowUnixMs()
		if submitErr != nil {
			rec.SubmitStatus = SubmitFailed
			rec.SubmitError = submitErr.Error()
		} else {
			rec.SubmitStatus = SubmitAccepted
			rec.EngineReference = ref
		}
		view = newExperimentView(rec)
		return nil
	})
	if err != nil {
		// deleted while the submission was in flight
		s.writeDomainError(w, err)
		return
	}
	if submitErr != nil {
		s.writeDomainError(w, submitErr)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"experiment": view})
}

// handleAddWorkload handles POST /v1/experiments/{id}/workloads
func (s *HTTPServer) handleAddWorkload(w http.ResponseWriter, r *http.Request, id string) {
	var req workloadRequest
	if !s.decode(w, r, &req) {
		return
	}

	var view WorkloadView
	var editErr error
	err := s.store.Update(id, func(rec *ExperimentRecord) error {
		ctrl, err := rec.Experiment.AddWorkload(req.curveForm())
		if err != nil {
			return err
		}
		if req.hasParams() {
			editErr = req.apply(rec.Experiment, ctrl, false)
		}
		view = newWorkloadView(ctrl)
		return nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if editErr != nil {
		s.writeJSON(w, httpStatus(editErr), map[string]any{"error": editErr.Error(), "workload": view})
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"workload": view})
}

func (s *HTTPServer) handleGetWorkload(w http.ResponseWriter, _ *http.Request, id, wid string) {
	var view WorkloadView
	err := s.store.Update(id, func(rec *ExperimentRecord) error {
		ctrl, err := rec.Experiment.Workload(wid)
		if err != nil {
			return err
		}
		view = newWorkloadView(ctrl)
		return nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"workload": view})
}

// handleEditWorkload handles PATCH /v1/experiments/{id}/workloads/{wid}.
// A rejected edit leaves the entry with its error active and is reported with the entry.
func (s *HTTPServer) handleEditWorkload(w http.ResponseWriter, r *http.Request, id, wid string) {
	var req workloadRequest
	if !s.decode(w, r, &req) {
		return
	}

	var view WorkloadView
	var editErr error
	err := s.store.Update(id, func(rec *ExperimentRecord) error {
		ctrl, err := rec.Experiment.Workload(wid)
		if err != nil {
			return err
		}
		editErr = req.apply(rec.Experiment, ctrl, true)
		view = newWorkloadView(ctrl)
		return nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if editErr != nil {
		s.writeJSON(w, httpStatus(editErr), map[string]any{"error": editErr.Error(), "workload": view})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"workload": view})
}

// handleResetWorkload handles POST /v1/experiments/{id}/workloads/{wid}:reset
func (s *HTTPServer) handleResetWorkload(w http.ResponseWriter, _ *http.Request, id, wid string) {
	var view WorkloadView
	var resetErr error
	err := s.store.Update(id, func(rec *ExperimentRecord) error {
		ctrl, err := rec.Experiment.Workload(wid)
		if err != nil {
			return err
		}
		resetErr = ctrl.Reset()
		view = newWorkloadView(ctrl)
		return nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if resetErr != nil {
		s.writeJSON(w, httpStatus(resetErr), map[string]any{"error": resetErr.Error(), "workload": view})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"workload": view})
}

func (s *HTTPServer) handleRemoveWorkload(w http.ResponseWriter, _ *http.Request, id, wid string) {
	err := s.store.Update(id, func(rec *ExperimentRecord) error {
		return rec.Experiment.RemoveWorkload(wid)
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v and writes a 400 on failure
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusBadGateway {
		logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]any{
		"error": err.Error(),
		"kind":  metrics.ErrorKind(err),
	})
}
