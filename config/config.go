// Package config provides layered configuration loading for launchmesh:
// built-in defaults, an optional YAML file and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/search"
	"github.com/hupe1980/launchmesh/workflow"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// DefaultArtifactTTL bounds how long durable plan documents stay downloadable.
const DefaultArtifactTTL = time.Hour

// Config represents the complete launchmesh configuration
type Config struct {
	Provider          string  `yaml:"provider"`
	ModelName         string  `yaml:"model_name"`
	FallbackModelName string  `yaml:"fallback_model_name"`
	BaseURL           string  `yaml:"base_url"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`

	RequestTimeout   time.Duration `yaml:"request_timeout"`
	SearchTimeout    time.Duration `yaml:"search_timeout"`
	SearchMaxResults int           `yaml:"search_max_results"`

	MaxConcurrency int           `yaml:"max_concurrency"`
	MaxModelCalls  int           `yaml:"max_model_calls"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffMax     time.Duration `yaml:"backoff_max"`

	// Stages overrides individual fields of the default stage definitions.
	Stages map[core.StageID]StageConfig `yaml:"stages"`

	Log       LogConfig      `yaml:"log"`
	Server    ServerConfig   `yaml:"server"`
	Trace     TraceConfig    `yaml:"trace"`
	Artifacts ArtifactConfig `yaml:"artifacts"`

	// Secrets are only read from the environment.
	APIKey       string `yaml:"-"`
	SerperAPIKey string `yaml:"-"`
}

// StageConfig overrides one stage. Nil and empty fields keep the default.
type StageConfig struct {
	MaxAttempts      int            `yaml:"max_attempts"`
	QualityThreshold *float64       `yaml:"quality_threshold"`
	Weights          *core.Weights  `yaml:"weights"`
	DependsOn        []core.StageID `yaml:"depends_on"`
	Grounded         *bool          `yaml:"grounded"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr               string `yaml:"addr"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// TraceConfig configures attempt trace export
type TraceConfig struct {
	// NATSURL enables publishing attempts to NATS when set.
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

// ArtifactConfig configures storage of rendered plan documents
type ArtifactConfig struct {
	// Dir selects the durable store; empty keeps documents in memory.
	Dir string `yaml:"dir"`
	// TTL expires durable documents; 0 keeps them.
	TTL time.Duration `yaml:"ttl"`
	// MaxRequests bounds the in-memory store.
	MaxRequests int `yaml:"max_requests"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		ModelName:         "gpt-4o-mini",
		Temperature:       0.7,
		MaxTokens:         4096,
		RequestTimeout:    45 * time.Second,
		SearchTimeout:     search.DefaultTimeout,
		SearchMaxResults:  search.DefaultMaxResults,
		MaxConcurrency:    workflow.DefaultMaxConcurrency,
		BackoffBase:       workflow.DefaultBackoffBase,
		BackoffMax:        workflow.DefaultBackoffMax,
		Stages:            map[core.StageID]StageConfig{},
		Log:               LogConfig{Level: "info", Format: "json"},
		Server:            ServerConfig{Addr: ":8080", RateLimitPerMinute: 60},
		Trace:             TraceConfig{NATSSubject: "launchmesh.trace"},
		Artifacts:         ArtifactConfig{TTL: DefaultArtifactTTL, MaxRequests: 256},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("provider must be one of %s, %s, %s", ProviderOpenAI, ProviderAnthropic, ProviderMock)
	}

	if c.ModelName == "" && c.Provider != ProviderMock {
		return fmt.Errorf("model_name is required")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}

	if c.SearchMaxResults < 1 {
		return fmt.Errorf("search_max_results must be >= 1")
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be >= 1")
	}

	if c.MaxModelCalls < 0 {
		return fmt.Errorf("max_model_calls must not be negative")
	}

	if c.BackoffBase < 0 || c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("backoff_max must be >= backoff_base >= 0")
	}

	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rate_limit_per_minute must not be negative")
	}

	if c.Artifacts.TTL < 0 || c.Artifacts.MaxRequests < 0 {
		return fmt.Errorf("artifacts.ttl and artifacts.max_requests must not be negative")
	}

	if _, err := workflow.NewGraph(c.StageDefinitions()); err != nil {
		return err
	}

	return nil
}

// StageDefinitions applies the stage overrides to workflow.DefaultStages.
// Stages not among the defaults are appended with default settings.
func (c *Config) StageDefinitions() []core.StageDefinition {
	defs := workflow.DefaultStages()

	known := make(map[core.StageID]int, len(defs))
	for i, d := range defs {
		known[d.ID] = i
	}

	extra := make([]core.StageID, 0)
	for id := range c.Stages {
		if _, ok := known[id]; !ok {
			extra = append(extra, id)
		}
	}
	core.SortStages(extra)

	for _, id := range extra {
		known[id] = len(defs)
		defs = append(defs, core.StageDefinition{
			ID:               id,
			MaxAttempts:      workflow.DefaultMaxAttempts,
			QualityThreshold: workflow.DefaultQualityThreshold,
			Weights:          core.DefaultWeights,
		})
	}

	for id, sc := range c.Stages {
		d := &defs[known[id]]

		if sc.MaxAttempts != 0 {
			d.MaxAttempts = sc.MaxAttempts
		}

		if sc.QualityThreshold != nil {
			d.QualityThreshold = *sc.QualityThreshold
		}

		if sc.Weights != nil {
			d.Weights = *sc.Weights
		}

		if len(sc.DependsOn) > 0 {
			d.DependsOn = sc.DependsOn
		}

		if sc.Grounded != nil {
			d.Grounded = *sc.Grounded
		}
	}

	return defs
}

// Secrets returns the configured secret values for log redaction.
func (c *Config) Secrets() []string {
	var out []string
	for _, s := range []string{c.APIKey, c.SerperAPIKey} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoadFromFile loads a configuration layer from a YAML file
func LoadFromFile(path string) (*Config, error) {
	config, _, err := loadFile(path)
	return config, err
}

func loadFile(path string) (*Config, *explicitValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	explicit := &explicitValues{}
	if err := yaml.Unmarshal(data, explicit); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, explicit, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
