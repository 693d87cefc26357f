package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"

	"github.com/hupe1980/launchmesh/logging"
)

// EnvPrefix prefixes every launchmesh environment variable.
const EnvPrefix = "LAUNCHMESH_"

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger logging.Logger
	getenv func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader(logger logging.Logger) *Loader {
	return &Loader{logger: logging.OrNoOp(logger), getenv: os.Getenv}
}

// Load loads configuration with layered precedence:
//  1. Default config
//  2. YAML file at path (skipped when path is empty)
//  3. Environment variables
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		fileConfig, explicit, err := loadFile(path)
		if err != nil {
			return nil, err
		}

		if err := mergo.Merge(config, fileConfig, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config file: %w", err)
		}

		explicit.apply(config)

		l.logger.Debug("Loaded config file", "path", path)
	}

	if err := l.applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// explicitValues captures file settings whose zero value is meaningful.
// mergo treats zero source fields as unset, so these are applied after the
// merge whenever the file names them.
type explicitValues struct {
	Temperature   *float64       `yaml:"temperature"`
	MaxModelCalls *int           `yaml:"max_model_calls"`
	BackoffBase   *time.Duration `yaml:"backoff_base"`
	BackoffMax    *time.Duration `yaml:"backoff_max"`
	Server        struct {
		RateLimitPerMinute *int `yaml:"rate_limit_per_minute"`
	} `yaml:"server"`
	Artifacts struct {
		TTL         *time.Duration `yaml:"ttl"`
		MaxRequests *int           `yaml:"max_requests"`
	} `yaml:"artifacts"`
}

func (e *explicitValues) apply(c *Config) {
	set(&c.Temperature, e.Temperature)
	set(&c.MaxModelCalls, e.MaxModelCalls)
	set(&c.BackoffBase, e.BackoffBase)
	set(&c.BackoffMax, e.BackoffMax)
	set(&c.Server.RateLimitPerMinute, e.Server.RateLimitPerMinute)
	set(&c.Artifacts.TTL, e.Artifacts.TTL)
	set(&c.Artifacts.MaxRequests, e.Artifacts.MaxRequests)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (l *Loader) applyEnv(c *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(l.getenv(name)); v != "" {
			*dst = v
		}
	}

	num := func(name string, dst *int) error {
		v := strings.TrimSpace(l.getenv(name))
		if v == "" {
			return nil
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		*dst = n

		return nil
	}

	str(EnvPrefix+"PROVIDER", &c.Provider)
	str(EnvPrefix+"MODEL_NAME", &c.ModelName)
	str(EnvPrefix+"FALLBACK_MODEL_NAME", &c.FallbackModelName)
	str(EnvPrefix+"BASE_URL", &c.BaseURL)
	str(EnvPrefix+"LOG_LEVEL", &c.Log.Level)
	str(EnvPrefix+"LOG_FORMAT", &c.Log.Format)
	str(EnvPrefix+"ADDR", &c.Server.Addr)
	str(EnvPrefix+"ARTIFACT_DIR", &c.Artifacts.Dir)
	str("NATS_URL", &c.Trace.NATSURL)
	str("SERPER_API_KEY", &c.SerperAPIKey)

	switch c.Provider {
	case ProviderAnthropic:
		str("ANTHROPIC_API_KEY", &c.APIKey)
	default:
		str("OPENAI_API_KEY", &c.APIKey)
	}

	str(EnvPrefix+"API_KEY", &c.APIKey)

	if err := num(EnvPrefix+"MAX_CONCURRENCY", &c.MaxConcurrency); err != nil {
		return err
	}

	return num(EnvPrefix+"MAX_MODEL_CALLS", &c.MaxModelCalls)
}
