// Package core provides the foundational domain types shared by every layer
// of launchmesh. It defines:
//
//   - LaunchRequest (the immutable, validated user input)
//   - StageDefinition / StageAttempt / StageResult (per-section workflow records)
//   - ScoreBreakdown / Weights (quality evaluation values)
//   - LaunchPlan (the assembled result handed back to callers)
//   - The error taxonomy surfaced by the workflow (validation, generation,
//     search and workflow errors)
//
// The package intentionally keeps implementation concerns (model providers,
// search backends, orchestration) out of scope so that every other package can
// depend on it without import cycles.
package core
