package core

import (
	"fmt"
	"time"
)

// StageID names one of the plan sections.
type StageID string

// The five plan sections, in canonical (aggregation) order.
const (
	StageMarketResearch     StageID = "market_research"
	StageProductDescription StageID = "product_description"
	StagePricingStrategy    StageID = "pricing_strategy"
	StageLaunchPlan         StageID = "launch_plan"
	StageMarketingContent   StageID = "marketing_content"
)

// AllStages lists every stage id in canonical order.
var AllStages = []StageID{
	StageMarketResearch,
	StageProductDescription,
	StagePricingStrategy,
	StageLaunchPlan,
	StageMarketingContent,
}

// Title returns a human readable section title.
func (s StageID) Title() string {
	switch s {
	case StageMarketResearch:
		return "Market Research"
	case StageProductDescription:
		return "Product Description"
	case StagePricingStrategy:
		return "Pricing Strategy"
	case StageLaunchPlan:
		return "Launch Plan"
	case StageMarketingContent:
		return "Marketing Content"
	default:
		return string(s)
	}
}

// Order returns the canonical position of s, or len(AllStages) for unknown ids
// so that they sort last.
func (s StageID) Order() int {
	for i, id := range AllStages {
		if id == s {
			return i
		}
	}

	return len(AllStages)
}

// StageDefinition is the static configuration of one stage.
type StageDefinition struct {
	ID               StageID
	DependsOn        []StageID
	Grounded         bool
	MaxAttempts      int
	QualityThreshold float64
	Weights          Weights
}

// StageStatus is the lifecycle state of a stage within one request.
type StageStatus string

const (
	// StatusPending marks a stage that has not reached a terminal state.
	StatusPending StageStatus = "pending"
	// StatusAccepted marks a stage whose output met the quality gate.
	StatusAccepted StageStatus = "accepted"
	// StatusFailedExhausted marks a stage that ran out of attempts or whose
	// dependencies failed.
	StatusFailedExhausted StageStatus = "failed_exhausted"
)

// Terminal reports whether s is a final status.
func (s StageStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusFailedExhausted
}

// StageAttempt records one generation round of a stage.
type StageAttempt struct {
	RequestID     string         `json:"request_id"`
	StageID       StageID        `json:"stage_id"`
	AttemptNumber int            `json:"attempt_number"`
	GeneratedText string         `json:"generated_text,omitempty"`
	Score         ScoreBreakdown `json:"score_breakdown"`
	Accepted      bool           `json:"accepted"`
	Model         string         `json:"model,omitempty"`
	Error         string         `json:"error,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Duration      time.Duration  `json:"duration"`
}

// Failed reports whether the attempt ended in a generation error.
func (a StageAttempt) Failed() bool { return a.Error != "" }

// StageResult is the terminal outcome of one stage.
type StageResult struct {
	StageID   StageID        `json:"stage_id"`
	FinalText string         `json:"final_text"`
	Attempts  []StageAttempt `json:"attempts"`
	Status    StageStatus    `json:"status"`
}

// BestAttempt returns the successful attempt with the highest total score.
// Ties resolve to the earliest attempt. ok is false if no attempt produced text.
func (r StageResult) BestAttempt() (best StageAttempt, ok bool) {
	for _, a := range r.Attempts {
		if a.Failed() {
			continue
		}

		if !ok || a.Score.Total > best.Score.Total {
			best, ok = a, true
		}
	}

	return best, ok
}

// FallbackText returns the deterministic placeholder used when a stage has no
// usable generated output.
func FallbackText(stage StageID, attempts int) string {
	return fmt.Sprintf("⚠️ %s generation failed after %d attempt(s). Please regenerate this section.", stage.Title(), attempts)
}

// SkippedText returns the deterministic placeholder for a stage whose
// dependency did not get accepted.
func SkippedText(stage, dependency StageID) string {
	return fmt.Sprintf("⚠️ %s was not generated because %s did not meet the quality bar.", stage.Title(), dependency.Title())
}
