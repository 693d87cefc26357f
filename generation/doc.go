// Package generation renders stage prompts and performs exactly one model call
// per Generate invocation. Retries, scoring and fallback text are the concern
// of the workflow executor; this package only reports failures as
// *core.GenerationError.
package generation
