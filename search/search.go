package search

import (
	"context"
	"time"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/logging"
)

// Provider is a black-box web search service.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]core.Snippet, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, query string, maxResults int) ([]core.Snippet, error)

// Search calls f.
func (f ProviderFunc) Search(ctx context.Context, query string, maxResults int) ([]core.Snippet, error) {
	return f(ctx, query, maxResults)
}

// Default augmenter settings.
const (
	DefaultMaxResults = 5
	DefaultTimeout    = 8 * time.Second
)

// Options configures an Augmenter.
type Options struct {
	MaxResults int
	Timeout    time.Duration
	Logger     logging.Logger
	// Normalize converts provider markup to plain markdown. Defaults to a
	// Normalizer; set to nil via WithoutNormalization to keep raw text.
	Normalize func(string) string
}

// WithoutNormalization disables markup cleanup of snippet text.
func WithoutNormalization(o *Options) { o.Normalize = nil }

// Augmenter turns a query into a bounded snippet list.
type Augmenter struct {
	provider  Provider
	max       int
	timeout   time.Duration
	logger    logging.Logger
	normalize func(string) string
}

// NewAugmenter creates an Augmenter around provider. A nil provider yields an
// Augmenter that always returns no snippets.
func NewAugmenter(provider Provider, optFns ...func(o *Options)) *Augmenter {
	opts := Options{
		MaxResults: DefaultMaxResults,
		Timeout:    DefaultTimeout,
		Logger:     logging.NoOpLogger{},
		Normalize:  NewNormalizer().Normalize,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}

	return &Augmenter{
		provider:  provider,
		max:       opts.MaxResults,
		timeout:   opts.Timeout,
		logger:    logging.OrNoOp(opts.Logger),
		normalize: opts.Normalize,
	}
}

// MaxResults returns the snippet bound.
func (a *Augmenter) MaxResults() int { return a.max }

// Search returns at most MaxResults snippets for query. Provider errors,
// timeouts and cancellations degrade to an empty result.
func (a *Augmenter) Search(ctx context.Context, query string) []core.Snippet {
	if a == nil || a.provider == nil || query == "" {
		return nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()

	snippets, err := a.provider.Search(ctx, query, a.max)
	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		a.logger.Warn("search unavailable, continuing without grounding",
			"error", core.NewSearchError(query, err).Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		return nil
	}

	out := make([]core.Snippet, 0, min(len(snippets), a.max))
	for _, s := range snippets {
		if len(out) == a.max {
			break
		}

		if a.normalize != nil {
			s.Title = a.normalize(s.Title)
			s.Text = a.normalize(s.Text)
		}

		if s.Text == "" && s.Title == "" {
			continue
		}

		out = append(out, s)
	}

	a.logger.Debug("search completed",
		"query", query,
		"snippets", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return out
}

// StaticProvider returns a fixed snippet list for every query.
type StaticProvider struct {
	Snippets []core.Snippet
	Err      error
}

// Search implements Provider.
func (p *StaticProvider) Search(ctx context.Context, _ string, maxResults int) ([]core.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.Err != nil {
		return nil, p.Err
	}

	if maxResults > 0 && len(p.Snippets) > maxResults {
		return p.Snippets[:maxResults], nil
	}

	return p.Snippets, nil
}
