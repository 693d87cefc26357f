// Package serper implements search.Provider on top of the Serper Google
// search API.
package serper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/hupe1980/launchmesh/core"
)

// DefaultBaseURL is the public Serper endpoint.
const DefaultBaseURL = "https://google.serper.dev"

// ErrMissingAPIKey is returned when the provider has no API key.
var ErrMissingAPIKey = errors.New("serper: missing api key")

// Options configures the Serper provider.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Provider queries Serper.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Serper provider.
func New(apiKey string, optFns ...func(o *Options)) *Provider {
	opts := Options{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		HTTPClient: http.DefaultClient,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Provider{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  opts.HTTPClient,
	}
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num,omitempty"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
	KnowledgeGraph *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"knowledgeGraph"`
	AnswerBox *struct {
		Title  string `json:"title"`
		Answer string `json:"answer"`
	} `json:"answerBox"`
}

// Search implements search.Provider. The answer box and knowledge graph
// description, when present, are placed ahead of the organic results.
func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]core.Snippet, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(searchRequest{Query: query, Num: maxResults})
	if err != nil {
		return nil, fmt.Errorf("serper: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serper: build request: %w", err)
	}

	req.Header.Set("X-API-KEY", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("serper: decode response: %w", err)
	}

	var snippets []core.Snippet

	if out.AnswerBox != nil && out.AnswerBox.Answer != "" {
		snippets = append(snippets, core.Snippet{Title: "Quick Answer", Text: out.AnswerBox.Answer})
	}

	if out.KnowledgeGraph != nil && out.KnowledgeGraph.Description != "" {
		snippets = append(snippets, core.Snippet{Title: "Overview", Text: out.KnowledgeGraph.Description})
	}

	for _, r := range out.Organic {
		snippets = append(snippets, core.Snippet{Title: r.Title, Text: r.Snippet, Source: r.Link})
	}

	if maxResults > 0 && len(snippets) > maxResults {
		snippets = snippets[:maxResults]
	}

	return snippets, nil
}
