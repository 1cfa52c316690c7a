// Package httpapi exposes the worker's HTTP surface: job submission and
// polling, result retrieval, profile catalogue and runtime settings.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/klangab/whisper-batch-worker/internal/config"
	"github.com/klangab/whisper-batch-worker/internal/jobs"
	"github.com/klangab/whisper-batch-worker/internal/pipeline"
	"github.com/klangab/whisper-batch-worker/internal/session"
)

const (
	serviceName    = "batch-worker"
	serviceVersion = "1.0.0"
)

type resultStore interface {
	GetResult(ctx context.Context, jobID string) (*pipeline.Result, error)
}

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

type Server struct {
	queue    *jobs.Queue
	results  resultStore
	sessions *session.Storage
	settings runtimeSettingsStore
	apply    runtimeSettingsApplier

	sweepCronExpr string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithSessions(storage *session.Storage) Option {
	return func(s *Server) {
		s.sessions = storage
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func WithSweepSchedule(cronExpr string) Option {
	return func(s *Server) {
		s.sweepCronExpr = cronExpr
	}
}

func NewServer(queue *jobs.Queue, results resultStore, opts ...Option) *Server {
	s := &Server{
		queue:   queue,
		results: results,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/jobs", s.handleJobs)
	s.mux.HandleFunc("/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/jobs/", s.handleJobByID)
	s.mux.HandleFunc("/profiles", s.handleProfiles)
	s.mux.HandleFunc("/settings", s.handleSettings)
	s.mux.HandleFunc("/sweep", s.handleSweep)
}
