package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/generation"
	"github.com/hupe1980/launchmesh/internal/testutil"
	"github.com/hupe1980/launchmesh/search"
	"github.com/hupe1980/launchmesh/trace"
)

func newTestOrchestrator(t *testing.T, gen Generator, eval Evaluator, optFns ...func(o *Options)) *Orchestrator {
	t.Helper()

	sleeps := &sleepRecorder{}
	o, err := NewOrchestrator(gen, eval, append([]func(o *Options){func(o *Options) {
		o.Sleep = sleeps.Sleep
		o.NewID = func() string { return "req-1" }
	}}, optFns...)...)
	require.NoError(t, err)

	return o
}

// assertDependencyOrder checks that every call of a stage happened after the
// last call of each of its dependencies and saw their text as context.
func assertDependencyOrder(t *testing.T, g *Graph, gen *scriptedGenerator) {
	t.Helper()

	for _, id := range g.Order() {
		def, _ := g.Stage(id)
		calls := gen.callsFor(id)

		for _, dep := range def.DependsOn {
			depCalls := gen.callsFor(dep)
			require.NotEmpty(t, depCalls, "%s ran before dependency %s", id, dep)

			for _, c := range calls {
				assert.Greater(t, c.seq, depCalls[len(depCalls)-1].seq, "%s started before %s finished", id, dep)
				assert.Contains(t, c.input.Context, dep)
			}
		}
	}
}

func TestRun_AllAcceptedOnFirstAttempt(t *testing.T) {
	gen := newScriptedGenerator()
	recorder := trace.NewRecorder()
	o := newTestOrchestrator(t, gen, constEval(9), func(o *Options) { o.Recorder = recorder })

	plan, err := o.Run(context.Background(), testutil.NewRequestBuilder().Build())
	require.NoError(t, err)

	assert.Equal(t, "req-1", plan.RequestID)
	assert.Equal(t, "EcoBottle", plan.ProductName)
	require.Len(t, plan.Sections, 5)

	for _, id := range core.AllStages {
		assert.NotEmpty(t, strings.TrimSpace(plan.Section(id)), id)
		assert.Equal(t, core.StatusAccepted, plan.Results[id].Status, id)
		assert.Len(t, plan.Results[id].Attempts, 1, id)
	}

	assert.Equal(t, core.AllStages, plan.OrderedStages())
	assert.Len(t, recorder.Attempts("req-1"), 5)
	assert.Equal(t, 5, gen.totalCalls())
	assertDependencyOrder(t, o.Graph(), gen)
}

func TestRun_StageAcceptedOnFinalAttempt(t *testing.T) {
	gen := newScriptedGenerator()
	eval := evalFunc(func(text string) float64 {
		if strings.HasPrefix(text, string(core.StagePricingStrategy)) && !strings.HasSuffix(text, "attempt 3") {
			return 2
		}
		return 9
	})

	plan, err := newTestOrchestrator(t, gen, eval).Run(context.Background(), testutil.NewRequestBuilder().Build())
	require.NoError(t, err)

	res := plan.Results[core.StagePricingStrategy]
	assert.Equal(t, core.StatusAccepted, res.Status)
	assert.Len(t, res.Attempts, DefaultMaxAttempts)
	assert.Equal(t, "pricing_strategy attempt 3", res.FinalText)
}

func TestRun_FailedStageCascadesToDependents(t *testing.T) {
	gen := newScriptedGenerator()
	eval := evalFunc(func(text string) float64 {
		if strings.HasPrefix(text, string(core.StageProductDescription)) {
			return 2
		}
		return 9
	})

	plan, err := newTestOrchestrator(t, gen, eval).Run(context.Background(), testutil.NewRequestBuilder().Build())
	require.NoError(t, err)

	pd := plan.Results[core.StageProductDescription]
	assert.Equal(t, core.StatusFailedExhausted, pd.Status)
	assert.Equal(t, "product_description attempt 1", pd.FinalText)
	assert.Len(t, pd.Attempts, DefaultMaxAttempts)

	for _, id := range []core.StageID{core.StagePricingStrategy, core.StageLaunchPlan, core.StageMarketingContent} {
		res := plan.Results[id]
		assert.Equal(t, core.StatusFailedExhausted, res.Status, id)
		assert.Empty(t, res.Attempts, id)
		assert.Empty(t, gen.callsFor(id), id)
		assert.Equal(t, core.SkippedText(id, core.StageProductDescription), res.FinalText)
	}

	assert.Equal(t, core.StatusAccepted, plan.Results[core.StageMarketResearch].Status)
}

func TestRun_SkipCascadesTransitively(t *testing.T) {
	gen := newScriptedGenerator().script("a", step{err: errors.New("down")})

	o := newTestOrchestrator(t, gen, constEval(9), func(o *Options) {
		o.Stages = []core.StageDefinition{stageDef("a", 1), stageDef("b", 1, "a"), stageDef("c", 1, "b")}
	})

	plan, err := o.Run(context.Background(), testutil.NewRequestBuilder().Build())
	require.NoError(t, err)

	assert.Equal(t, core.FallbackText("a", 1), plan.Section("a"))
	assert.Equal(t, core.SkippedText("b", "a"), plan.Section("b"))
	assert.Equal(t, core.SkippedText("c", "b"), plan.Section("c"))
	assert.Equal(t, 1, gen.totalCalls())
}

func TestRun_RandomizedGraphsRespectDependencies(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 25; iter++ {
		n := 2 + rng.Intn(7)

		ids := make([]core.StageID, n)
		for i := range ids {
			ids[i] = core.StageID(fmt.Sprintf("s%d", i))
		}

		defs := make([]core.StageDefinition, n)
		for i, id := range ids {
			var deps []core.StageID
			for j := 0; j < i; j++ {
				if rng.Intn(3) == 0 {
					deps = append(deps, ids[j])
				}
			}
			defs[i] = stageDef(id, 1, deps...)
		}

		rng.Shuffle(len(defs), func(i, j int) { defs[i], defs[j] = defs[j], defs[i] })

		gen := newScriptedGenerator()
		o := newTestOrchestrator(t, gen, constEval(9), func(o *Options) {
			o.Stages = defs
			o.MaxConcurrency = 1 + rng.Intn(4)
		})

		plan, err := o.Run(context.Background(), testutil.NewRequestBuilder().Build())
		require.NoError(t, err)
		require.Len(t, plan.Sections, n)

		for _, id := range ids {
			assert.Equal(t, core.StatusAccepted, plan.Results[id].Status)
		}

		assertDependencyOrder(t, o.Graph(), gen)
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var defs []core.StageDefinition
	for i := 0; i < 6; i++ {
		defs = append(defs, stageDef(core.StageID(fmt.Sprintf("p%d", i)), 1))
	}

	gen := newScriptedGenerator()
	gen.delay = 20 * time.Millisecond

	_, err := newTestOrchestrator(t, gen, constEval(9), func(o *Options) {
		o.Stages = defs
		o.MaxConcurrency = 2
	}).Run(context.Background(), testutil.NewRequestBuilder().Build())
	require.NoError(t, err)

	assert.Equal(t, 6, gen.totalCalls())
	assert.LessOrEqual(t, gen.maxActive, 2)
}

func TestRun_ValidationError(t *testing.T) {
	gen := newScriptedGenerator()
	o := newTestOrchestrator(t, gen, constEval(9))

	for _, req := range []core.LaunchRequest{
		testutil.NewRequestBuilder().Product("   ").Build(),
		testutil.NewRequestBuilder().Market("").Build(),
		testutil.NewRequestBuilder().Details(strings.Repeat("x", core.MaxProductDetailsLen+1)).Build(),
		testutil.NewRequestBuilder().Details("ships with ransomware inside").Build(),
	} {
		plan, err := o.Run(context.Background(), req)
		assert.Nil(t, plan)
		assert.True(t, core.IsValidation(err), "%v", err)
	}

	assert.Zero(t, gen.totalCalls())
}

func TestRun_TrimsInput(t *testing.T) {
	plan, err := newTestOrchestrator(t, newScriptedGenerator(), constEval(9)).
		Run(context.Background(), testutil.NewRequestBuilder().Product("  EcoBottle \n").Build())
	require.NoError(t, err)

	assert.Equal(t, "EcoBottle", plan.ProductName)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := newScriptedGenerator()
	plan, err := newTestOrchestrator(t, gen, constEval(9)).Run(ctx, testutil.NewRequestBuilder().Build())

	assert.Nil(t, plan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, gen.totalCalls())
}

func TestRun_CancelledMidRoundStopsScheduling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := newScriptedGenerator()
	gen.onCall = func(in generation.Input) {
		if in.Stage == core.StageMarketResearch {
			cancel()
		}
	}

	plan, err := newTestOrchestrator(t, gen, constEval(9)).Run(ctx, testutil.NewRequestBuilder().Build())

	assert.Nil(t, plan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, core.IsWorkflow(err))
	assert.Empty(t, gen.callsFor(core.StageProductDescription))
}

func TestRun_ModelCallBudget(t *testing.T) {
	gen := newScriptedGenerator()

	plan, err := newTestOrchestrator(t, gen, constEval(9), func(o *Options) { o.MaxModelCalls = 1 }).
		Run(context.Background(), testutil.NewRequestBuilder().Build())
	require.NoError(t, err)

	assert.Equal(t, core.StatusAccepted, plan.Results[core.StageMarketResearch].Status)

	pd := plan.Results[core.StageProductDescription]
	assert.Equal(t, core.StatusFailedExhausted, pd.Status)
	assert.Equal(t, core.FallbackText(core.StageProductDescription, DefaultMaxAttempts), pd.FinalText)
	assert.Equal(t, 1, gen.totalCalls())
}

func TestRun_SearchFailureIsNotFatal(t *testing.T) {
	gen := newScriptedGenerator()
	augmenter := search.NewAugmenter(&search.StaticProvider{Err: errors.New("quota exceeded")})

	plan, err := newTestOrchestrator(t, gen, constEval(9), func(o *Options) { o.Searcher = augmenter }).
		Run(context.Background(), testutil.NewRequestBuilder().Build())
	require.NoError(t, err)

	assert.Equal(t, core.StatusAccepted, plan.Results[core.StageMarketResearch].Status)
	assert.Empty(t, gen.callsFor(core.StageMarketResearch)[0].input.Snippets)
}

func TestRun_RecentEvents(t *testing.T) {
	long := strings.Repeat("ü", core.EventPreviewChars+50)
	gen := newScriptedGenerator().script(core.StageMarketResearch, step{text: long})

	plan, err := newTestOrchestrator(t, gen, constEval(9)).Run(context.Background(), testutil.NewRequestBuilder().Build())
	require.NoError(t, err)

	require.Len(t, plan.RecentEvents, 5)
	assert.Equal(t, core.StageMarketResearch, plan.RecentEvents[0].Section)
	assert.Equal(t, core.EventPreviewChars, utf8.RuneCountInString(plan.RecentEvents[0].Preview))
	assert.Equal(t, core.StageMarketingContent, plan.RecentEvents[4].Section)
}

func TestRun_ConcurrentRequestsAreIndependent(t *testing.T) {
	gen := newScriptedGenerator()
	o, err := NewOrchestrator(gen, constEval(9))
	require.NoError(t, err)

	plans := make(chan *core.LaunchPlan, 4)
	errs := make(chan error, 4)

	for i := 0; i < 4; i++ {
		go func() {
			p, err := o.Run(context.Background(), testutil.NewRequestBuilder().Build())
			plans <- p
			errs <- err
		}()
	}

	ids := map[string]bool{}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-errs)
		p := <-plans
		ids[p.RequestID] = true
		assert.Len(t, p.Sections, 5)
	}

	assert.Len(t, ids, 4)
	assert.Equal(t, 20, gen.totalCalls())
}

func TestRun_DefaultOptionsKeepGeneratedText(t *testing.T) {
	o, err := NewOrchestrator(newScriptedGenerator(), constEval(9))
	require.NoError(t, err)

	plan, err := o.Run(context.Background(), testutil.NewRequestBuilder().Build())
	require.NoError(t, err)

	for _, id := range o.Graph().Order() {
		res := plan.Results[id]
		best, ok := res.BestAttempt()
		require.True(t, ok, id)
		assert.Equal(t, best.GeneratedText, res.FinalText, id)
		assert.Equal(t, string(id)+" attempt 1", plan.Sections[id])
	}
}

func TestNewOrchestrator_InvalidGraph(t *testing.T) {
	_, err := NewOrchestrator(newScriptedGenerator(), constEval(9), func(o *Options) {
		o.Stages = []core.StageDefinition{stageDef("a", 1, "b"), stageDef("b", 1, "a")}
	})
	assert.True(t, core.IsWorkflow(err))

	_, err = NewOrchestrator(nil, constEval(9))
	assert.True(t, core.IsWorkflow(err))
}
