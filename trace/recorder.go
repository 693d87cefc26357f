package trace

import (
	"context"
	"sync"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/logging"
)

// DefaultMaxRequests bounds how many request logs a Recorder retains.
const DefaultMaxRequests = 256

// Sink receives every recorded attempt.
type Sink interface {
	Record(ctx context.Context, attempt core.StageAttempt) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, attempt core.StageAttempt) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, attempt core.StageAttempt) error { return f(ctx, attempt) }

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	Sink        Sink
	MaxRequests int
	Logger      logging.Logger
}

// Recorder is an append-only, process-local attempt log keyed by request id.
// Attempts are never modified once recorded. When more than MaxRequests
// requests are tracked the oldest log is dropped.
//
// Concurrency: protected by RWMutex; sinks are called outside the lock.
type Recorder struct {
	mu       sync.RWMutex
	attempts map[string][]core.StageAttempt // requestID -> attempts in record order
	order    []string

	sink   Sink
	max    int
	logger logging.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(optFns ...func(o *RecorderOptions)) *Recorder {
	opts := RecorderOptions{
		MaxRequests: DefaultMaxRequests,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Recorder{
		attempts: make(map[string][]core.StageAttempt),
		sink:     opts.Sink,
		max:      opts.MaxRequests,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Record appends attempt to its request log and forwards it to the sink. Sink
// failures are logged and never propagate to the workflow.
func (r *Recorder) Record(ctx context.Context, attempt core.StageAttempt) {
	if r == nil {
		return
	}

	r.mu.Lock()
	if _, exists := r.attempts[attempt.RequestID]; !exists {
		r.order = append(r.order, attempt.RequestID)
		r.evictLocked()
	}
	r.attempts[attempt.RequestID] = append(r.attempts[attempt.RequestID], attempt)
	r.mu.Unlock()

	if r.sink == nil {
		return
	}

	if err := r.sink.Record(ctx, attempt); err != nil {
		r.logger.Warn("trace sink failed",
			"request_id", attempt.RequestID,
			"stage", attempt.StageID,
			"attempt", attempt.AttemptNumber,
			"error", err.Error(),
		)
	}
}

func (r *Recorder) evictLocked() {
	if r.max <= 0 {
		return
	}

	for len(r.order) > r.max {
		delete(r.attempts, r.order[0])
		r.order = r.order[1:]
	}
}

// Attempts returns a copy of the attempts recorded for requestID in record order.
func (r *Recorder) Attempts(requestID string) []core.StageAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]core.StageAttempt(nil), r.attempts[requestID]...)
}

// StageAttempts returns the attempts of one stage of requestID.
func (r *Recorder) StageAttempts(requestID string, stage core.StageID) []core.StageAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []core.StageAttempt
	for _, a := range r.attempts[requestID] {
		if a.StageID == stage {
			out = append(out, a)
		}
	}

	return out
}

// Forget drops the log of requestID.
func (r *Recorder) Forget(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.attempts[requestID]; !ok {
		return
	}

	delete(r.attempts, requestID)

	for i, id := range r.order {
		if id == requestID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
