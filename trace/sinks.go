package trace

import (
	"context"
	"errors"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/logging"
)

// LogSink writes each attempt as a structured log line.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logging.OrNoOp(logger)}
}

// Record implements Sink.
func (s *LogSink) Record(_ context.Context, a core.StageAttempt) error {
	args := []any{
		"request_id", a.RequestID,
		"stage", a.StageID,
		"attempt", a.AttemptNumber,
		"score", a.Score.Total,
		"accepted", a.Accepted,
		"model", a.Model,
		"duration_ms", a.Duration.Milliseconds(),
	}

	if a.Failed() {
		s.logger.Warn("stage attempt failed", append(args, "error", a.Error)...)
		return nil
	}

	s.logger.Info("stage attempt", args...)

	return nil
}

// MultiSink fans out to every sink and joins their errors.
type MultiSink []Sink

// Record implements Sink.
func (m MultiSink) Record(ctx context.Context, a core.StageAttempt) error {
	var errs []error

	for _, s := range m {
		if s == nil {
			continue
		}

		if err := s.Record(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
