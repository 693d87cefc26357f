// Package launchmesh wires configuration, model providers, search, tracing and
// the stage workflow into a ready-to-use launch plan generator. Most
// applications interact with this package by:
//  1. Loading a config.Config (config.NewLoader().Load)
//  2. Creating a LaunchMesh via New()
//  3. Calling Run for each launch request, or serving it via Server
//
// Every dependency can be overridden through Options for tests and embedding.
package launchmesh

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/launchmesh/artifact"
	badgerstore "github.com/hupe1980/launchmesh/artifact/badger"
	"github.com/hupe1980/launchmesh/config"
	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/evaluation"
	"github.com/hupe1980/launchmesh/generation"
	"github.com/hupe1980/launchmesh/logging"
	"github.com/hupe1980/launchmesh/model"
	anthropicmodel "github.com/hupe1980/launchmesh/model/anthropic"
	openaimodel "github.com/hupe1980/launchmesh/model/openai"
	"github.com/hupe1980/launchmesh/search"
	"github.com/hupe1980/launchmesh/search/serper"
	"github.com/hupe1980/launchmesh/server"
	"github.com/hupe1980/launchmesh/trace"
	"github.com/hupe1980/launchmesh/workflow"
)

// Version is the launchmesh release reported by the CLI and /health.
const Version = "0.3.0"

// Options overrides the components New would otherwise build from config.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
	// Registerer receives trace metrics. Defaults to prometheus.DefaultRegisterer;
	// set DisableMetrics to skip registration entirely.
	Registerer     prometheus.Registerer
	DisableMetrics bool
	// Model and Fallback replace the configured providers.
	Model    model.Model
	Fallback model.Model
	// SearchProvider replaces the Serper provider.
	SearchProvider search.Provider
	// Publisher replaces the NATS connection built from Trace.NATSURL.
	Publisher trace.Publisher
	// Evaluator replaces the heuristic evaluator.
	Evaluator workflow.Evaluator
	// Artifacts replaces the document store built from cfg.Artifacts.
	Artifacts artifact.Store
}

// LaunchMesh aggregates the configured workflow and its supporting services.
type LaunchMesh struct {
	cfg          *config.Config
	stages       []core.StageDefinition
	orchestrator *workflow.Orchestrator
	recorder     *trace.Recorder
	evaluator    workflow.Evaluator
	artifacts    artifact.Store
	logger       logging.Logger
	conn         *nats.Conn
	db           *badgerstore.Store
}

// New builds a LaunchMesh from cfg.
func New(cfg *config.Config, optFns ...func(o *Options)) (*LaunchMesh, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	opts := Options{
		Logger:     logging.NoOpLogger{},
		Registerer: prometheus.DefaultRegisterer,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.OrNoOp(opts.Logger)

	primary := opts.Model
	if primary == nil {
		m, err := NewModel(cfg, cfg.ModelName)
		if err != nil {
			return nil, err
		}
		primary = m
	}

	fallback := opts.Fallback
	if fallback == nil && cfg.FallbackModelName != "" {
		m, err := NewModel(cfg, cfg.FallbackModelName)
		if err != nil {
			return nil, err
		}
		fallback = m
	}

	client := generation.NewClient(primary, func(o *generation.Options) {
		o.Fallback = fallback
		o.Timeout = cfg.RequestTimeout
		o.Logger = logging.ForComponent(logger, "generation")
	})

	provider := opts.SearchProvider
	if provider == nil && cfg.SerperAPIKey != "" {
		provider = serper.New(cfg.SerperAPIKey)
	}

	augmenter := search.NewAugmenter(provider, func(o *search.Options) {
		o.MaxResults = cfg.SearchMaxResults
		o.Timeout = cfg.SearchTimeout
		o.Logger = logging.ForComponent(logger, "search")
	})

	m := &LaunchMesh{cfg: cfg, stages: cfg.StageDefinitions(), logger: logger}

	sinks := trace.MultiSink{trace.NewLogSink(logging.ForComponent(logger, "trace"))}

	if !opts.DisableMetrics && opts.Registerer != nil {
		sinks = append(sinks, trace.NewMetricsSink(opts.Registerer))
	}

	publisher := opts.Publisher
	if publisher == nil && cfg.Trace.NATSURL != "" {
		conn, err := trace.ConnectNATS(cfg.Trace.NATSURL, "launchmesh")
		if err != nil {
			return nil, fmt.Errorf("failed to connect trace publisher: %w", err)
		}
		m.conn = conn
		publisher = conn
	}

	if publisher != nil {
		sinks = append(sinks, trace.NewNATSSink(publisher, cfg.Trace.NATSSubject))
	}

	m.recorder = trace.NewRecorder(func(o *trace.RecorderOptions) {
		o.Sink = sinks
		o.Logger = logging.ForComponent(logger, "trace")
	})

	m.artifacts = opts.Artifacts
	if m.artifacts == nil {
		if cfg.Artifacts.Dir != "" {
			db, err := badgerstore.Open(cfg.Artifacts.Dir, func(o *badgerstore.Options) { o.TTL = cfg.Artifacts.TTL })
			if err != nil {
				_ = m.Close()
				return nil, err
			}
			m.db = db
			m.artifacts = db
		} else {
			m.artifacts = artifact.NewInMemoryStore(func(o *artifact.InMemoryOptions) { o.MaxRequests = cfg.Artifacts.MaxRequests })
		}
	}

	m.evaluator = opts.Evaluator
	if m.evaluator == nil {
		m.evaluator = evaluation.New()
	}

	orchestrator, err := workflow.NewOrchestrator(client, m.evaluator, func(o *workflow.Options) {
		o.Stages = m.stages
		o.MaxConcurrency = cfg.MaxConcurrency
		o.MaxModelCalls = cfg.MaxModelCalls
		o.Searcher = augmenter
		o.Recorder = m.recorder
		o.Logger = logging.ForComponent(logger, "workflow")
		o.Backoff = workflow.ExponentialBackoff(cfg.BackoffBase, cfg.BackoffMax)
	})
	if err != nil {
		_ = m.Close()
		return nil, err
	}

	m.orchestrator = orchestrator

	return m, nil
}

// NewModel creates the model named name for cfg.Provider.
func NewModel(cfg *config.Config, name string) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if name != "" {
				o.Model = name
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if name != "" {
				o.Model = anthropic.Model(name)
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
		}), nil
	case config.ProviderMock:
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, config.ProviderMock), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// Run generates a launch plan for req.
func (m *LaunchMesh) Run(ctx context.Context, req core.LaunchRequest) (*core.LaunchPlan, error) {
	return m.orchestrator.Run(ctx, req)
}

// Evaluate scores text against the weights of stage. Unknown stages use the
// default weights and quality threshold.
func (m *LaunchMesh) Evaluate(text string, criteria core.Criteria, stage core.StageID) (core.ScoreBreakdown, bool) {
	weights := evaluation.WeightsFor(stage)
	threshold := workflow.DefaultQualityThreshold

	if def, ok := m.orchestrator.Graph().Stage(stage); ok {
		weights = def.Weights
		threshold = def.QualityThreshold
	}

	score := m.evaluator.Score(text, criteria, weights)

	return score, evaluation.Verdict(score, threshold)
}

// Attempts returns the recorded attempts of a request.
func (m *LaunchMesh) Attempts(requestID string) []core.StageAttempt {
	return m.recorder.Attempts(requestID)
}

// Artifacts returns the plan document store.
func (m *LaunchMesh) Artifacts() artifact.Store { return m.artifacts }

// Config returns the configuration m was built from.
func (m *LaunchMesh) Config() *config.Config { return m.cfg }

// Server creates an HTTP server for m.
func (m *LaunchMesh) Server(optFns ...func(o *server.Options)) *server.Server {
	return server.New(m, m.evaluator, append([]func(o *server.Options){func(o *server.Options) {
		o.Version = Version
		o.Logger = m.logger
		o.Stages = m.stages
		o.RateLimitPerMinute = m.cfg.Server.RateLimitPerMinute
		o.Artifacts = m.artifacts
	}}, optFns...)...)
}

// Close releases the trace publisher connection and the durable document
// store, if any.
func (m *LaunchMesh) Close() error {
	var errs []error

	if m.conn != nil {
		if err := m.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, fmt.Errorf("failed to drain trace publisher: %w", err))
		}
		m.conn = nil
	}

	if m.db != nil {
		if err := m.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close artifact store: %w", err))
		}
		m.db = nil
	}

	return errors.Join(errs...)
}
