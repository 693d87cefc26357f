package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/generation"
)

type step struct {
	text string
	err  error
}

type call struct {
	seq   int
	input generation.Input
}

// scriptedGenerator returns per-stage scripted steps in call order. Stages
// without a script (or past its end) produce "<stage> attempt <n>".
type scriptedGenerator struct {
	mu        sync.Mutex
	scripts   map[core.StageID][]step
	calls     map[core.StageID][]call
	seq       int
	active    int
	maxActive int
	delay     time.Duration
	onCall    func(in generation.Input)
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		scripts: map[core.StageID][]step{},
		calls:   map[core.StageID][]call{},
	}
}

func (g *scriptedGenerator) script(stage core.StageID, steps ...step) *scriptedGenerator {
	g.scripts[stage] = steps
	return g
}

func (g *scriptedGenerator) Generate(ctx context.Context, in generation.Input) (generation.Output, error) {
	if err := in.Limiter.Increment(); err != nil {
		return generation.Output{Model: "scripted"}, core.NewGenerationError(in.Stage, in.Attempt, err)
	}

	g.mu.Lock()
	g.seq++
	n := len(g.calls[in.Stage])
	g.calls[in.Stage] = append(g.calls[in.Stage], call{seq: g.seq, input: in})

	s := step{text: fmt.Sprintf("%s attempt %d", in.Stage, n+1)}
	if script := g.scripts[in.Stage]; n < len(script) {
		s = script[n]
	}

	g.active++
	if g.active > g.maxActive {
		g.maxActive = g.active
	}
	onCall := g.onCall
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
	}()

	if onCall != nil {
		onCall(in)
	}

	if g.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(g.delay):
		}
	}

	if err := ctx.Err(); err != nil {
		return generation.Output{Model: "scripted"}, core.NewGenerationError(in.Stage, in.Attempt, err)
	}

	if s.err != nil {
		return generation.Output{Model: "scripted"}, core.NewGenerationError(in.Stage, in.Attempt, s.err)
	}

	model := "scripted"
	if in.UseFallback {
		model = "scripted-fallback"
	}

	return generation.Output{Text: s.text, Model: model}, nil
}

func (g *scriptedGenerator) callsFor(stage core.StageID) []call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]call(nil), g.calls[stage]...)
}

func (g *scriptedGenerator) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// evalFunc scores every criterion with the value returned for text.
type evalFunc func(text string) float64

func (f evalFunc) Score(text string, _ core.Criteria, _ core.Weights) core.ScoreBreakdown {
	v := f(text)
	return core.ScoreBreakdown{
		ContentQuality:   v,
		StructureClarity: v,
		Relevance:        v,
		Actionability:    v,
		Completeness:     v,
		Conciseness:      v,
		Total:            v,
	}
}

func constEval(v float64) evalFunc { return func(string) float64 { return v } }

// sleepRecorder replaces real backoff sleeps.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type searchRecorder struct {
	mu      sync.Mutex
	queries []string
	result  []core.Snippet
}

func (s *searchRecorder) Search(_ context.Context, query string) []core.Snippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return s.result
}

func stageDef(id core.StageID, maxAttempts int, deps ...core.StageID) core.StageDefinition {
	return core.StageDefinition{
		ID:               id,
		DependsOn:        deps,
		MaxAttempts:      maxAttempts,
		QualityThreshold: DefaultQualityThreshold,
		Weights:          core.DefaultWeights,
	}
}
