package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/logging"
	"github.com/hupe1980/launchmesh/model"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 45 * time.Second

// Input is everything one generation call needs.
type Input struct {
	Stage   core.StageID
	Attempt int
	Request core.LaunchRequest
	// Context holds the accepted text of upstream stages.
	Context  map[core.StageID]string
	Snippets []core.Snippet
	// Feedback describes the shortfall of the previous attempt, if any.
	Feedback string
	// UseFallback routes the call to the fallback model when one is configured.
	UseFallback bool
	// Limiter enforces the per-request model call budget. Nil means unlimited.
	Limiter *core.CallLimiter
}

// Output is the raw text produced by one call.
type Output struct {
	Text  string
	Model string
	Usage *model.TokenUsage
}

// Options configures a Client.
type Options struct {
	Fallback     model.Model
	Timeout      time.Duration
	Instructions string
	Stream       bool
	Logger       logging.Logger
}

// Client issues stage generation calls against a model.
type Client struct {
	primary      model.Model
	fallback     model.Model
	timeout      time.Duration
	instructions string
	stream       bool
	logger       logging.Logger
}

// NewClient creates a Client backed by primary.
func NewClient(primary model.Model, optFns ...func(o *Options)) *Client {
	opts := Options{
		Timeout:      DefaultTimeout,
		Instructions: SystemInstructions,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{
		primary:      primary,
		fallback:     opts.Fallback,
		timeout:      opts.Timeout,
		instructions: opts.Instructions,
		stream:       opts.Stream,
		logger:       logging.OrNoOp(opts.Logger),
	}
}

// HasFallback reports whether a fallback model is configured.
func (c *Client) HasFallback() bool { return c.fallback != nil }

// Generate performs exactly one model call for in. Every failure, including
// timeouts, an exhausted call budget and empty completions, is returned as a
// *core.GenerationError.
func (c *Client) Generate(ctx context.Context, in Input) (Output, error) {
	m := c.primary
	if in.UseFallback && c.fallback != nil {
		m = c.fallback
	}

	fail := func(err error) (Output, error) {
		return Output{Model: m.Info().Name}, core.NewGenerationError(in.Stage, in.Attempt, err)
	}

	if err := in.Limiter.Increment(); err != nil {
		return fail(err)
	}

	prompt, err := RenderPrompt(in)
	if err != nil {
		return fail(err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()

	resp, err := model.Complete(ctx, m, model.Request{
		Instructions: c.instructions,
		Prompt:       prompt,
		Stream:       c.stream,
	})

	logging.LogLLMCall(c.logger, m.Info().Name, time.Since(start), err == nil, err)

	if err != nil {
		return fail(fmt.Errorf("model %s: %w", m.Info().Name, err))
	}

	return Output{
		Text:  strings.TrimSpace(resp.Text),
		Model: m.Info().Name,
		Usage: resp.Usage,
	}, nil
}
