package generation

import "github.com/hupe1980/launchmesh/core"

// TimelineDiagram is the mermaid launch timeline appended to launch plans.
const TimelineDiagram = "```mermaid\n" + `graph TD
    A[Pre-Launch Phase] --> B[Market Research]
    B --> C[Product Development]
    C --> D[Beta Testing]
    D --> E[Launch Phase]
    E --> F[Marketing Campaign]
    F --> G[Sales Launch]
    G --> H[Post-Launch Phase]
    H --> I[Customer Feedback]
    I --> J[Performance Analysis]
    J --> K[Optimization]

    style A fill:#e1f5fe
    style E fill:#f3e5f5
    style H fill:#e8f5e8
` + "```"

const timelineHeader = "--- VISUAL TIMELINE ---"

// Decorate post-processes the final text of a stage. Launch plans get the
// timeline diagram appended.
func Decorate(stage core.StageID, text string) string {
	if stage != core.StageLaunchPlan || text == "" {
		return text
	}

	return text + "\n\n" + timelineHeader + "\n" + TimelineDiagram
}
