package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/logging"
	"github.com/hupe1980/launchmesh/trace"
)

// DefaultMaxConcurrency bounds concurrent stage executions within a round.
const DefaultMaxConcurrency = 4

// Options configures an Orchestrator.
type Options struct {
	// Stages defaults to DefaultStages().
	Stages         []core.StageDefinition
	MaxConcurrency int
	// MaxModelCalls caps generation calls per request; 0 means unlimited.
	MaxModelCalls int
	Searcher      Searcher
	Recorder      *trace.Recorder
	Logger        logging.Logger
	Backoff       Backoff
	Sleep         func(ctx context.Context, d time.Duration) error
	Now           func() time.Time
	NewID         func() string
}

// Orchestrator turns a LaunchRequest into a LaunchPlan. Its configuration is
// read-only after construction, so one Orchestrator serves concurrent
// requests; all per-request state lives inside Run.
type Orchestrator struct {
	graph          *Graph
	executor       *Executor
	maxConcurrency int
	maxModelCalls  int
	logger         logging.Logger
	now            func() time.Time
	newID          func() string
}

// NewOrchestrator validates the stage graph and wires the executor. An
// invalid graph is reported as a *core.WorkflowError.
func NewOrchestrator(gen Generator, eval Evaluator, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		MaxConcurrency: DefaultMaxConcurrency,
		Logger:         logging.NoOpLogger{},
		Now:            time.Now,
		NewID:          uuid.NewString,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Stages == nil {
		opts.Stages = DefaultStages()
	}

	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}

	if gen == nil || eval == nil {
		return nil, core.NewWorkflowError("generator and evaluator are required", nil)
	}

	graph, err := NewGraph(opts.Stages)
	if err != nil {
		return nil, err
	}

	logger := logging.OrNoOp(opts.Logger)

	executor := NewExecutor(gen, eval, func(eo *ExecutorOptions) {
		eo.Searcher = opts.Searcher
		eo.Recorder = opts.Recorder
		eo.Logger = logging.ForComponent(logger, "executor")
		eo.Now = opts.Now

		if opts.Backoff != nil {
			eo.Backoff = opts.Backoff
		}

		if opts.Sleep != nil {
			eo.Sleep = opts.Sleep
		}
	})

	return &Orchestrator{
		graph:          graph,
		executor:       executor,
		maxConcurrency: opts.MaxConcurrency,
		maxModelCalls:  opts.MaxModelCalls,
		logger:         logging.ForComponent(logger, "orchestrator"),
		now:            opts.Now,
		newID:          opts.NewID,
	}, nil
}

// Graph returns the validated stage graph.
func (o *Orchestrator) Graph() *Graph { return o.graph }

// Run validates req and executes every stage to a terminal status.
//
// Only three kinds of error escape: *core.ValidationError for bad input,
// *core.WorkflowError for a scheduling invariant violation, and the context
// error when ctx is cancelled. Generation failures are absorbed by the
// executor into fallback or best-effort section text.
func (o *Orchestrator) Run(ctx context.Context, req core.LaunchRequest) (*core.LaunchPlan, error) {
	req = req.Sanitized()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID := o.newID()
	logger := logging.ForRequest(o.logger, requestID)
	start := o.now()

	run := &planRun{
		requestID: requestID,
		request:   req,
		results:   make(map[core.StageID]core.StageResult, o.graph.Len()),
		limiter:   core.NewCallLimiter(o.maxModelCalls),
	}

	rounds := 0

	for len(run.results) < o.graph.Len() {
		if err := ctx.Err(); err != nil {
			logging.LogWorkflow(logger, rounds, o.now().Sub(start), false, err)
			return nil, fmt.Errorf("launch plan %s cancelled: %w", requestID, err)
		}

		o.resolveSkipped(run)

		ready := o.readyStages(run)
		if len(ready) == 0 {
			if len(run.results) == o.graph.Len() {
				break
			}

			err := core.NewWorkflowError(fmt.Sprintf("no ready stages with %d of %d stages terminal", len(run.results), o.graph.Len()), nil)
			logging.LogWorkflow(logger, rounds, o.now().Sub(start), false, err)

			return nil, err
		}

		rounds++
		logger.Debug("round started", "round", rounds, "stages", ready)

		stop := logging.StartTimer(logger, "round", "round", rounds)
		results := o.runRound(ctx, run, ready)
		stop()

		if err := ctx.Err(); err != nil {
			logging.LogWorkflow(logger, rounds, o.now().Sub(start), false, err)
			return nil, fmt.Errorf("launch plan %s cancelled: %w", requestID, err)
		}

		for _, r := range results {
			if !r.Status.Terminal() {
				return nil, core.NewWorkflowError(fmt.Sprintf("stage %q returned non-terminal status %q", r.StageID, r.Status), nil)
			}

			run.complete(r, o.now())
		}
	}

	plan := o.assemble(run)
	logging.LogWorkflow(logger, rounds, o.now().Sub(start), true, nil)

	return plan, nil
}

// planRun is the in-flight state of one request. It is owned by Run and only
// mutated between rounds.
type planRun struct {
	requestID string
	request   core.LaunchRequest
	results   map[core.StageID]core.StageResult
	events    []core.StageEvent
	limiter   *core.CallLimiter
}

func (r *planRun) complete(res core.StageResult, now time.Time) {
	r.results[res.StageID] = res

	r.events = append(r.events, core.NewStageEvent(res.StageID, res.Status, res.FinalText, now))
	if len(r.events) > core.MaxRecentEvents {
		r.events = r.events[len(r.events)-core.MaxRecentEvents:]
	}
}

// resolveSkipped marks every pending stage with a failed dependency as
// failed_exhausted. Walking in topological order cascades within one pass.
func (o *Orchestrator) resolveSkipped(run *planRun) {
	for _, id := range o.graph.order {
		if _, done := run.results[id]; done {
			continue
		}

		def := o.graph.stages[id]
		for _, dep := range def.DependsOn {
			if res, ok := run.results[dep]; ok && res.Status == core.StatusFailedExhausted {
				run.complete(core.StageResult{
					StageID:   id,
					FinalText: core.SkippedText(id, dep),
					Status:    core.StatusFailedExhausted,
				}, o.now())

				break
			}
		}
	}
}

// readyStages returns pending stages whose dependencies are all accepted.
func (o *Orchestrator) readyStages(run *planRun) []core.StageID {
	var ready []core.StageID

	for _, id := range o.graph.order {
		if _, done := run.results[id]; done {
			continue
		}

		ok := true
		for _, dep := range o.graph.stages[id].DependsOn {
			if res, done := run.results[dep]; !done || res.Status != core.StatusAccepted {
				ok = false
				break
			}
		}

		if ok {
			ready = append(ready, id)
		}
	}

	return ready
}

// runRound executes ready concurrently and waits for all of them.
func (o *Orchestrator) runRound(ctx context.Context, run *planRun, ready []core.StageID) []core.StageResult {
	results := make([]core.StageResult, len(ready))

	var g errgroup.Group
	g.SetLimit(o.maxConcurrency)

	for i, id := range ready {
		def := o.graph.stages[id]

		upstream := make(map[core.StageID]string, len(def.DependsOn))
		for _, dep := range def.DependsOn {
			upstream[dep] = run.results[dep].FinalText
		}

		task := Task{
			RequestID: run.requestID,
			Stage:     def,
			Request:   run.request,
			Context:   upstream,
			Limiter:   run.limiter,
		}

		g.Go(func() error {
			results[i] = o.executor.Execute(ctx, task)
			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (o *Orchestrator) assemble(run *planRun) *core.LaunchPlan {
	plan := &core.LaunchPlan{
		RequestID:      run.requestID,
		ProductName:    run.request.ProductName,
		ProductDetails: run.request.ProductDetails,
		TargetMarket:   run.request.TargetMarket,
		Sections:       make(map[core.StageID]string, len(run.results)),
		Results:        make(map[core.StageID]core.StageResult, len(run.results)),
		RecentEvents:   append([]core.StageEvent(nil), run.events...),
		CreatedAt:      o.now(),
	}

	for _, id := range o.graph.order {
		res := run.results[id]
		plan.Sections[id] = res.FinalText
		plan.Results[id] = res
	}

	return plan
}
