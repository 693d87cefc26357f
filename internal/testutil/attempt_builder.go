package testutil

import (
	"time"

	"github.com/hupe1980/launchmesh/core"
)

// AttemptBuilder provides a fluent helper for constructing stage attempts.
// Example:
//
//	a := NewAttemptBuilder(core.StageLaunchPlan).Number(2).Text("plan").Total(8).Accepted().Build()
type AttemptBuilder struct {
	a core.StageAttempt
}

// NewAttemptBuilder creates a builder for stage with attempt number 1.
func NewAttemptBuilder(stage core.StageID) *AttemptBuilder {
	return &AttemptBuilder{a: core.StageAttempt{
		RequestID:     "req-1",
		StageID:       stage,
		AttemptNumber: 1,
		Timestamp:     time.Unix(0, 0).UTC(),
	}}
}

// Request sets the request id (chainable).
func (b *AttemptBuilder) Request(id string) *AttemptBuilder { b.a.RequestID = id; return b }

// Number sets the attempt number (chainable).
func (b *AttemptBuilder) Number(n int) *AttemptBuilder { b.a.AttemptNumber = n; return b }

// Text sets the generated text (chainable).
func (b *AttemptBuilder) Text(t string) *AttemptBuilder { b.a.GeneratedText = t; return b }

// Total sets the total score (chainable).
func (b *AttemptBuilder) Total(v float64) *AttemptBuilder { b.a.Score.Total = v; return b }

// Accepted marks the attempt as accepted (chainable).
func (b *AttemptBuilder) Accepted() *AttemptBuilder { b.a.Accepted = true; return b }

// Failed records a generation error message (chainable).
func (b *AttemptBuilder) Failed(msg string) *AttemptBuilder { b.a.Error = msg; return b }

// Build returns the attempt.
func (b *AttemptBuilder) Build() core.StageAttempt { return b.a }
