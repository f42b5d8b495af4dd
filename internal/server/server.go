// Package server exposes solver jobs over HTTP and JSON-RPC 2.0.
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/tspga/internal/config"
	"github.com/copyleftdev/tspga/internal/logging"
	"github.com/copyleftdev/tspga/internal/optimization"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Server implements the HTTP and JSON-RPC server for the solver service.
// It manages jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg      *config.Config
	logger   Logger
	defaults optimization.OptimizerConfig

	// Job state management
	jobs   map[string]*JobState
	jobsMu sync.RWMutex // Protects jobs and every JobState in it

	// Buffered to Jobs.MaxConcurrent; a job holds a slot while evolving
	slots chan struct{}
	wg    sync.WaitGroup
}

// NewServer creates a new server instance with the given config and logger.
// GA settings from cfg are the defaults that requests may override.
func NewServer(cfg *config.Config, logger Logger) (*Server, error) {
	defaults, err := cfg.OptimizerConfig()
	if err != nil {
		return nil, err
	}

	maxConcurrent := cfg.Jobs.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		defaults: defaults,
		jobs:     make(map[string]*JobState),
		slots:    make(chan struct{}, maxConcurrent),
	}, nil
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/solve/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Close cancels every job and waits for their goroutines to return.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	for _, job := range s.jobs {
		if job.cancel != nil {
			job.cancel()
		}
	}
	s.jobsMu.Unlock()

	s.wg.Wait()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
