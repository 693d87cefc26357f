package core

import (
	"errors"
	"fmt"
)

// Error kinds reported to callers of the transport layer.
const (
	KindValidation = "validation_error"
	KindGeneration = "generation_error"
	KindSearch     = "search_error"
	KindWorkflow   = "workflow_error"
)

// ValidationError reports a malformed or empty request field. It is raised
// before any stage runs and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError constructs a *ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// GenerationError reports a failed or timed out provider call for one stage
// attempt. The executor absorbs it into the stage result.
type GenerationError struct {
	Stage   StageID
	Attempt int
	err     error
}

// NewGenerationError wraps err as a generation failure for stage.
func NewGenerationError(stage StageID, attempt int, err error) *GenerationError {
	return &GenerationError{Stage: stage, Attempt: attempt, err: err}
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for %s (attempt %d): %v", e.Stage, e.Attempt, e.err)
}

func (e *GenerationError) Unwrap() error {
	return e.err
}

// SearchError reports a failed search provider call. It is always recovered
// locally by substituting an empty snippet list.
type SearchError struct {
	Query string
	err   error
}

// NewSearchError wraps err as a search failure for query.
func NewSearchError(query string, err error) *SearchError {
	return &SearchError{Query: query, err: err}
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed for %q: %v", e.Query, e.err)
}

func (e *SearchError) Unwrap() error {
	return e.err
}

// WorkflowError reports a violated scheduling or configuration invariant.
// It is a defect, not a runtime condition, and is fatal to the request.
type WorkflowError struct {
	Message string
	err     error
}

// NewWorkflowError constructs a *WorkflowError optionally wrapping a cause.
func NewWorkflowError(message string, err error) *WorkflowError {
	return &WorkflowError{Message: message, err: err}
}

func (e *WorkflowError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("workflow error: %s: %v", e.Message, e.err)
	}

	return "workflow error: " + e.Message
}

func (e *WorkflowError) Unwrap() error {
	return e.err
}

// IsValidation returns true if err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsGeneration returns true if err is or wraps a *GenerationError.
func IsGeneration(err error) bool {
	var target *GenerationError
	return errors.As(err, &target)
}

// IsSearch returns true if err is or wraps a *SearchError.
func IsSearch(err error) bool {
	var target *SearchError
	return errors.As(err, &target)
}

// IsWorkflow returns true if err is or wraps a *WorkflowError.
func IsWorkflow(err error) bool {
	var target *WorkflowError
	return errors.As(err, &target)
}

// Kind maps err onto one of the Kind* constants. Unknown errors are reported
// as workflow errors.
func Kind(err error) string {
	switch {
	case IsValidation(err):
		return KindValidation
	case IsGeneration(err):
		return KindGeneration
	case IsSearch(err):
		return KindSearch
	default:
		return KindWorkflow
	}
}
