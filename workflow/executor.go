package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/generation"
	"github.com/hupe1980/launchmesh/logging"
	"github.com/hupe1980/launchmesh/search"
	"github.com/hupe1980/launchmesh/trace"
)

// Generator produces the raw text of one stage attempt.
type Generator interface {
	Generate(ctx context.Context, in generation.Input) (generation.Output, error)
}

// Evaluator scores generated text.
type Evaluator interface {
	Score(text string, criteria core.Criteria, weights core.Weights) core.ScoreBreakdown
}

// Searcher returns grounding snippets for a query. It never fails.
type Searcher interface {
	Search(ctx context.Context, query string) []core.Snippet
}

// Task is one stage execution within a request.
type Task struct {
	RequestID string
	Stage     core.StageDefinition
	Request   core.LaunchRequest
	// Context holds the accepted text of the stage's dependencies.
	Context map[core.StageID]string
	Limiter *core.CallLimiter
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Searcher Searcher
	Recorder *trace.Recorder
	Logger   logging.Logger
	Backoff  Backoff
	// Sleep waits between retries; replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Executor runs the generate, evaluate and retry loop of a single stage.
type Executor struct {
	gen      Generator
	eval     Evaluator
	searcher Searcher
	recorder *trace.Recorder
	logger   logging.Logger
	backoff  Backoff
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// NewExecutor creates an Executor.
func NewExecutor(gen Generator, eval Evaluator, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Logger:  logging.NoOpLogger{},
		Backoff: ExponentialBackoff(DefaultBackoffBase, DefaultBackoffMax),
		Sleep:   sleepContext,
		Now:     time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		gen:      gen,
		eval:     eval,
		searcher: opts.Searcher,
		recorder: opts.Recorder,
		logger:   logging.OrNoOp(opts.Logger),
		backoff:  opts.Backoff,
		sleep:    opts.Sleep,
		now:      opts.Now,
	}
}

// Execute runs task to a terminal status. It makes at most
// task.Stage.MaxAttempts generation calls and always returns a result:
//   - accepted with the first attempt whose total meets the threshold
//   - failed_exhausted with the highest-scoring attempt's text (earliest on ties)
//   - failed_exhausted with placeholder text when no attempt produced text
//
// Cancellation of ctx stops the loop early with the same resolution rules.
func (e *Executor) Execute(ctx context.Context, task Task) core.StageResult {
	def := task.Stage
	logger := logging.ForRequest(e.logger, task.RequestID)

	result := core.StageResult{StageID: def.ID, Status: core.StatusPending}
	criteria := core.Criteria{ProductName: task.Request.ProductName, TargetMarket: task.Request.TargetMarket}

	var (
		feedback string
		failures int
	)

	for attempt := 1; attempt <= def.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}

		var snippets []core.Snippet
		if def.Grounded && e.searcher != nil {
			snippets = e.searcher.Search(ctx, search.QueryFor(def.ID, task.Request, attempt))
		}

		start := e.now()

		out, err := e.gen.Generate(ctx, generation.Input{
			Stage:       def.ID,
			Attempt:     attempt,
			Request:     task.Request,
			Context:     task.Context,
			Snippets:    snippets,
			Feedback:    feedback,
			UseFallback: attempt == def.MaxAttempts && attempt > 1 && failures == attempt-1,
			Limiter:     task.Limiter,
		})

		record := core.StageAttempt{
			RequestID:     task.RequestID,
			StageID:       def.ID,
			AttemptNumber: attempt,
			Model:         out.Model,
			Timestamp:     start,
		}

		if err != nil {
			failures++
			record.Error = err.Error()
			record.Duration = e.now().Sub(start)
			e.append(ctx, &result, record)
			logging.LogStageAttempt(logger, string(def.ID), attempt, 0, false, err)

			if attempt < def.MaxAttempts {
				if err := e.sleep(ctx, e.backoff(failures)); err != nil {
					break
				}
			}

			continue
		}

		score := e.eval.Score(out.Text, criteria, def.Weights)

		record.GeneratedText = out.Text
		record.Score = score
		record.Accepted = score.Total >= def.QualityThreshold
		record.Duration = e.now().Sub(start)
		e.append(ctx, &result, record)
		logging.LogStageAttempt(logger, string(def.ID), attempt, score.Total, record.Accepted, nil)

		if record.Accepted {
			result.Status = core.StatusAccepted
			result.FinalText = out.Text

			return result
		}

		feedback = shortfall(score, def.QualityThreshold)
	}

	result.Status = core.StatusFailedExhausted

	if best, ok := result.BestAttempt(); ok {
		result.FinalText = best.GeneratedText
	} else {
		result.FinalText = core.FallbackText(def.ID, len(result.Attempts))
	}

	logger.Warn("stage exhausted attempts",
		"stage", def.ID,
		"attempts", len(result.Attempts),
		"generation_failures", failures,
	)

	return result
}

func (e *Executor) append(ctx context.Context, result *core.StageResult, a core.StageAttempt) {
	result.Attempts = append(result.Attempts, a)
	e.recorder.Record(context.WithoutCancel(ctx), a)
}

// shortfall describes why an attempt missed the threshold, naming its two
// weakest criteria.
func shortfall(s core.ScoreBreakdown, threshold float64) string {
	criteria := []struct {
		name  string
		value float64
	}{
		{"content quality", s.ContentQuality},
		{"structure and clarity", s.StructureClarity},
		{"relevance", s.Relevance},
		{"actionability", s.Actionability},
		{"completeness", s.Completeness},
		{"conciseness", s.Conciseness},
	}

	sort.SliceStable(criteria, func(i, j int) bool { return criteria[i].value < criteria[j].value })

	return fmt.Sprintf("the previous draft scored %.1f/10 against a bar of %.1f; improve %s (%.1f) and %s (%.1f)",
		s.Total, threshold, criteria[0].name, criteria[0].value, criteria[1].name, criteria[1].value)
}
