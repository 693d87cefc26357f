package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/model"
)

// FuncModel is a model.Model whose completion is computed by Fn.
type FuncModel struct {
	Name string
	Fn   func(ctx context.Context, req model.Request) (string, error)

	mu    sync.Mutex
	calls []model.Request
}

// NewFuncModel creates a FuncModel named name.
func NewFuncModel(name string, fn func(ctx context.Context, req model.Request) (string, error)) *FuncModel {
	return &FuncModel{Name: name, Fn: fn}
}

// Calls returns a snapshot of the requests received so far.
func (m *FuncModel) Calls() []model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Request(nil), m.calls...)
}

// Generate implements model.Model.
func (m *FuncModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		text, err := m.Fn(ctx, req)
		if err != nil {
			errCh <- err
			return
		}

		respCh <- model.Response{Text: text, FinishReason: "stop"}
	}()

	return respCh, errCh
}

// Info implements model.Model.
func (m *FuncModel) Info() model.Info { return model.Info{Name: m.Name, Provider: "test"} }

// TextEvaluator scores text by lookup. Unknown texts score Default.
type TextEvaluator struct {
	Totals  map[string]float64
	Default float64

	mu    sync.Mutex
	calls int
}

// Score implements the evaluator contract used by the workflow executor.
func (e *TextEvaluator) Score(text string, _ core.Criteria, _ core.Weights) core.ScoreBreakdown {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	total, ok := e.Totals[text]
	if !ok {
		total = e.Default
	}

	return core.ScoreBreakdown{
		ContentQuality:   total,
		StructureClarity: total,
		Relevance:        total,
		Actionability:    total,
		Completeness:     total,
		Conciseness:      total,
		Total:            total,
	}
}

// Calls returns how often Score was called.
func (e *TextEvaluator) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
