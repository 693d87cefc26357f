// Package evaluation scores generated plan sections against six rule-based
// criteria (content quality, structure & clarity, relevance, actionability,
// completeness and conciseness). Each criterion yields a value in [0,10];
// the composite total is the weighted sum using per-stage weights.
//
// Scoring is a pure function of its inputs: the same text, criteria and
// weights always produce the same ScoreBreakdown.
package evaluation
