package core

import (
	"fmt"
	"math"
)

// MaxScore is the upper bound of every criterion and of the weighted total.
const MaxScore = 10.0

// weightTolerance bounds floating point drift when checking that weights sum to 1.
const weightTolerance = 1e-6

// ScoreBreakdown holds the six criterion scores (each in [0,10]) and their
// weighted total. It is a value type and never mutated after creation.
type ScoreBreakdown struct {
	ContentQuality   float64 `json:"content_quality"`
	StructureClarity float64 `json:"structure_clarity"`
	Relevance        float64 `json:"relevance"`
	Actionability    float64 `json:"actionability"`
	Completeness     float64 `json:"completeness"`
	Conciseness      float64 `json:"conciseness"`
	Total            float64 `json:"total"`
}

func (s ScoreBreakdown) String() string {
	return fmt.Sprintf(
		"Total: %.2f/10 | Quality: %.1f | Structure: %.1f | Relevance: %.1f | Actionable: %.1f | Complete: %.1f | Concise: %.1f",
		s.Total, s.ContentQuality, s.StructureClarity, s.Relevance, s.Actionability, s.Completeness, s.Conciseness,
	)
}

// Weights assigns the relative importance of each criterion. A valid set sums to 1.0.
type Weights struct {
	ContentQuality   float64 `json:"content_quality" yaml:"content_quality"`
	StructureClarity float64 `json:"structure_clarity" yaml:"structure_clarity"`
	Relevance        float64 `json:"relevance" yaml:"relevance"`
	Actionability    float64 `json:"actionability" yaml:"actionability"`
	Completeness     float64 `json:"completeness" yaml:"completeness"`
	Conciseness      float64 `json:"conciseness" yaml:"conciseness"`
}

// DefaultWeights mirrors the weighting used for general sections.
var DefaultWeights = Weights{
	ContentQuality:   0.25,
	StructureClarity: 0.15,
	Relevance:        0.20,
	Actionability:    0.20,
	Completeness:     0.15,
	Conciseness:      0.05,
}

// Sum returns the sum of all weights.
func (w Weights) Sum() float64 {
	return w.ContentQuality + w.StructureClarity + w.Relevance + w.Actionability + w.Completeness + w.Conciseness
}

// Validate checks that every weight is non-negative and that they sum to 1.0.
func (w Weights) Validate() error {
	for _, v := range []float64{w.ContentQuality, w.StructureClarity, w.Relevance, w.Actionability, w.Completeness, w.Conciseness} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weights must be non-negative numbers")
		}
	}

	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %.6f", sum)
	}

	return nil
}

// Apply returns s with Total set to the weighted sum of its sub-scores,
// clamped to [0, MaxScore].
func (w Weights) Apply(s ScoreBreakdown) ScoreBreakdown {
	total := w.ContentQuality*s.ContentQuality +
		w.StructureClarity*s.StructureClarity +
		w.Relevance*s.Relevance +
		w.Actionability*s.Actionability +
		w.Completeness*s.Completeness +
		w.Conciseness*s.Conciseness

	s.Total = math.Max(0, math.Min(total, MaxScore))

	return s
}

// Criteria carries the request context a score is evaluated against.
type Criteria struct {
	ProductName  string
	TargetMarket string
}
