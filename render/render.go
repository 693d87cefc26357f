// Package render turns a LaunchPlan into markdown documents.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/generation"
	"github.com/hupe1980/launchmesh/internal/util"
)

// Downloadable file names.
const (
	ChecklistFile = "launch_checklist.md"
	CalendarFile  = "marketing_calendar.md"
	PlanFile      = "launch_plan.md"
)

// Markdown renders every section of plan in canonical order. The launch plan
// section carries the timeline diagram.
func Markdown(plan *core.LaunchPlan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Launch Plan\n\n", plan.ProductName)
	fmt.Fprintf(&b, "- **Target market:** %s\n", plan.TargetMarket)
	fmt.Fprintf(&b, "- **Request:** %s\n", plan.RequestID)
	fmt.Fprintf(&b, "- **Created:** %s\n", plan.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))

	for _, id := range plan.OrderedStages() {
		fmt.Fprintf(&b, "\n## %s\n\n", id.Title())

		if res, ok := plan.Results[id]; ok && res.Status != core.StatusAccepted {
			fmt.Fprintf(&b, "> Status: %s after %d attempt(s)\n\n", res.Status, len(res.Attempts))
		}

		b.WriteString(generation.Decorate(id, strings.TrimSpace(plan.Section(id))))
		b.WriteString("\n")
	}

	return b.String()
}

// Summary renders a one-line status per stage with its best score.
func Summary(plan *core.LaunchPlan) string {
	var b strings.Builder

	for _, id := range plan.OrderedStages() {
		res := plan.Results[id]

		score := "n/a"
		if best, ok := res.BestAttempt(); ok {
			score = fmt.Sprintf("%.2f", best.Score.Total)
		}

		fmt.Fprintf(&b, "%-22s %-17s attempts=%d score=%s\n", id, res.Status, len(res.Attempts), score)
	}

	return b.String()
}

const checklistTemplate = `# {{.Product}} Launch Checklist

## Pre-Launch (8 weeks before)
- [ ] Complete market research analysis
- [ ] Finalize product description and messaging
- [ ] Set pricing strategy
- [ ] Build landing page
- [ ] Create marketing materials
- [ ] Set up analytics tracking
- [ ] Prepare customer support resources

## Launch Week
- [ ] Execute marketing campaigns
- [ ] Monitor performance metrics
- [ ] Respond to customer feedback
- [ ] Track sales and conversions

## Post-Launch (8 weeks after)
- [ ] Analyze performance data
- [ ] Gather customer feedback
- [ ] Optimize based on learnings
- [ ] Plan next iteration

Generated on: {{.Date}}
`

const calendarTemplate = `# {{.Product}} Marketing Calendar

## Week 1-2: Pre-Launch Buzz
- Social media teasers
- Influencer outreach
- Email list building

## Week 3-4: Launch Preparation
- Press releases
- Partner announcements
- Final content creation

## Launch Week
- Launch announcement
- Social media campaigns
- Email marketing blast

## Post-Launch Weeks
- Customer testimonials
- Performance optimization
- Retargeting campaigns
`

// Files returns the downloadable companion documents of plan keyed by file name.
func Files(plan *core.LaunchPlan) (map[string]string, error) {
	data := struct {
		Product string
		Date    string
	}{plan.ProductName, plan.CreatedAt.UTC().Format("2006-01-02")}

	checklist, err := util.RenderTemplate(checklistTemplate, data)
	if err != nil {
		return nil, err
	}

	calendar, err := util.RenderTemplate(calendarTemplate, data)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		ChecklistFile: checklist,
		CalendarFile:  calendar,
		PlanFile:      Markdown(plan),
	}, nil
}

// WriteFiles writes files into dir, creating it if needed.
func WriteFiles(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if filepath.Base(name) != name {
			return fmt.Errorf("invalid file name %q", name)
		}

		if err := os.WriteFile(filepath.Join(dir, name), []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	return nil
}
