// Package server exposes the advisory service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/etnz/advisory"
	"github.com/etnz/advisory/renderer"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// statusClientClosedRequest is the nginx convention for a request the client abandoned.
const statusClientClosedRequest = 499

// Server handles advisory requests.
type Server struct {
	svc     *advisory.Service
	log     logrus.FieldLogger
	metrics *Metrics
	router  *mux.Router
}

// New returns a server for svc. It runs a copy of the service pipeline whose Observe feeds the
// server's metrics, then the pipeline's own observer. svc itself is left unchanged.
func New(svc *advisory.Service, log logrus.FieldLogger) *Server {
	reg := prometheus.NewRegistry()
	own := *svc
	s := &Server{
		svc:     &own,
		log:     log,
		metrics: NewMetrics(reg),
		router:  mux.NewRouter(),
	}
	if svc.Pipeline != nil {
		p := *svc.Pipeline
		prev := p.Observe
		p.Observe = func(e advisory.Event) {
			s.metrics.Observe(e)
			if prev != nil {
				prev(e)
			}
		}
		own.Pipeline = &p
	}

	s.router.Use(requestLogger(log))
	s.router.HandleFunc("/users/{id}/advisory", s.advise).Methods("POST")
	s.router.HandleFunc("/users/{id}/inputs", s.inputs).Methods("GET")
	s.router.HandleFunc("/kb", s.knowledge).Methods("GET")
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// advisoryResponse is the body of a successful advisory request.
type advisoryResponse struct {
	RequestID string                   `json:"request_id"`
	Advisory  *advisory.AdvisoryOutput `json:"advisory"`
}

// errorResponse is the body of a failed request.
type errorResponse struct {
	RequestID string                      `json:"request_id,omitempty"`
	Error     string                      `json:"error"`
	Missing   []string                    `json:"missing,omitempty"`
	Attempts  int                         `json:"attempts,omitempty"`
	Failures  []advisory.ValidationResult `json:"failures,omitempty"`
}

// advise runs the pipeline for the user. With ?format=markdown the advisory is rendered.
func (s *Server) advise(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.metrics.Latency.Observe(time.Since(start).Seconds()) }()

	ctx := r.Context()
	id := mux.Vars(r)["id"]
	out, in, err := s.svc.Advise(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.IncrementOutcome("succeeded")
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(renderer.AdvisoryMarkdown(out, in)))
		return
	}
	writeJSON(w, http.StatusOK, advisoryResponse{RequestID: advisory.RequestID(ctx), Advisory: out})
}

// inputs returns the PlanInputs a request for the user would be validated against.
func (s *Server) inputs(w http.ResponseWriter, r *http.Request) {
	in, err := s.svc.Inputs(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) knowledge(w http.ResponseWriter, r *http.Request) {
	refs := []advisory.KBRef{}
	if s.svc.Knowledge != nil {
		refs = s.svc.Knowledge.Refs()
	}
	writeJSON(w, http.StatusOK, refs)
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{RequestID: advisory.RequestID(r.Context()), Error: err.Error()}
	var (
		status   int
		outcome  string
		incomp   *advisory.IncompleteError
		pipeline *advisory.PipelineError
	)
	switch {
	case errors.Is(err, advisory.ErrNotFound):
		status, outcome = http.StatusNotFound, "not_found"
	case errors.As(err, &incomp):
		status, outcome = http.StatusUnprocessableEntity, "incomplete"
		resp.Missing = incomp.Fields
	case errors.Is(err, advisory.ErrInputIncomplete):
		status, outcome = http.StatusUnprocessableEntity, "incomplete"
	case errors.Is(r.Context().Err(), context.Canceled):
		status, outcome = statusClientClosedRequest, "canceled"
	case errors.As(err, &pipeline):
		status, outcome = http.StatusBadGateway, "failed"
		resp.Attempts = pipeline.Attempts
		var aerr *advisory.AuditError
		if errors.As(err, &aerr) {
			resp.Failures = aerr.Failures
		}
	default:
		status, outcome = http.StatusInternalServerError, "error"
	}
	s.metrics.IncrementOutcome(outcome)
	s.log.WithFields(logrus.Fields{"request_id": resp.RequestID, "outcome": outcome}).WithError(err).Warn("advisory request failed")
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
