// Package server exposes the launch plan workflow over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/launchmesh/artifact"
	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/logging"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Planner produces launch plans.
type Planner interface {
	Run(ctx context.Context, req core.LaunchRequest) (*core.LaunchPlan, error)
}

// Scorer scores arbitrary text for the manual evaluation endpoint.
type Scorer interface {
	Score(text string, criteria core.Criteria, weights core.Weights) core.ScoreBreakdown
}

// Options configures a Server.
type Options struct {
	Version string
	Logger  logging.Logger
	// Stages provides per-stage weights and thresholds for /evaluate.
	Stages []core.StageDefinition
	// Gatherer backs /metrics. Defaults to the default Prometheus registry.
	Gatherer           prometheus.Gatherer
	RateLimitPerMinute int
	AllowedOrigins     []string
	// PlanTimeout bounds one /launch_assistant request; 0 disables.
	PlanTimeout time.Duration
	// Artifacts keeps rendered plan documents for download. Nil disables the
	// /plans routes.
	Artifacts artifact.Store
}

// Server serves the launch plan API.
type Server struct {
	planner Planner
	scorer  Scorer
	stages  map[core.StageID]core.StageDefinition
	opts    Options
	logger  logging.Logger
	handler http.Handler
	started time.Time
	limiter *ipRateLimiter
}

// New creates a Server.
func New(planner Planner, scorer Scorer, optFns ...func(o *Options)) *Server {
	opts := Options{
		Version:            "dev",
		Logger:             logging.NoOpLogger{},
		Gatherer:           prometheus.DefaultGatherer,
		RateLimitPerMinute: 60,
		AllowedOrigins:     []string{"http://localhost:3000"},
		PlanTimeout:        10 * time.Minute,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		planner: planner,
		scorer:  scorer,
		stages:  make(map[core.StageID]core.StageDefinition, len(opts.Stages)),
		opts:    opts,
		logger:  logging.ForComponent(logging.OrNoOp(opts.Logger), "server"),
		started: time.Now(),
	}

	for _, d := range opts.Stages {
		s.stages[d.ID] = d
	}

	if opts.RateLimitPerMinute > 0 {
		s.limiter = newIPRateLimiter(opts.RateLimitPerMinute)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /launch_assistant", s.handleLaunchAssistant)
	mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /health", s.handleHealth)
	if opts.Artifacts != nil {
		mux.HandleFunc("GET /plans/{id}/files", s.handleListFiles)
		mux.HandleFunc("GET /plans/{id}/files/{name}", s.handleGetFile)
	}

	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	s.handler = s.withLogging(s.withSecurityHeaders(s.withCORS(s.withRateLimit(mux))))

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "addr", addr, "version", s.opts.Version)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.logger.Info("shutting down server")

	return srv.Shutdown(shutdownCtx)
}
