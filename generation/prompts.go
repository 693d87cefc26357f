package generation

import (
	"text/template"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/internal/util"
)

// MaxContextChars bounds each upstream section quoted into a prompt.
const MaxContextChars = 1500

// SystemInstructions is sent as the system message of every call.
const SystemInstructions = `You are a senior product launch strategist. Write clear, structured, actionable
markdown for the requested section only. Use headings and bullet lists, cite concrete numbers where
the provided data supports them, and stay specific to the product and target market.`

// ContextSection is one upstream section made available to a prompt.
type ContextSection struct {
	Title string
	Text  string
}

// promptData is the template input.
type promptData struct {
	Section  string
	Product  string
	Details  string
	Market   string
	Context  []ContextSection
	Snippets []core.Snippet
	Feedback string
	Limit    int
}

const sharedTail = `{{if .Context}}
Previously approved sections:
{{range .Context}}
### {{.Title}}
{{truncate $.Limit .Text}}
{{end}}{{end}}{{if .Snippets}}
Live web data:
{{range .Snippets}}- {{if .Title}}{{.Title}}: {{end}}{{.Text}}{{if .Source}} (Source: {{.Source}}){{end}}
{{end}}{{end}}{{if .Feedback}}
Reviewer feedback on the previous draft: {{.Feedback}}
{{end}}`

var stageTemplates = map[core.StageID]string{
	core.StageMarketResearch: `Conduct comprehensive market research for '{{.Product}}' targeting '{{.Market}}'.
Product details: {{.Details}}

Provide analysis on:
1. Key competitors and market positioning
2. Current market trends and opportunities
3. Target audience insights
4. Market size and growth potential
5. SWOT analysis
` + sharedTail,

	core.StageProductDescription: `Write a compelling e-commerce product description for '{{.Product}}'.
Product details: {{.Details}}
Target market: {{.Market}}
` + sharedTail,

	core.StagePricingStrategy: `Create a comprehensive pricing strategy for '{{.Product}}' targeting '{{.Market}}'.
Product details: {{.Details}}

Include:
1. Competitive pricing analysis
2. Recommended pricing tiers
3. Value-based pricing justification
4. Discount and promotion strategies
5. Revenue projections
` + sharedTail,

	core.StageLaunchPlan: `Create a comprehensive step-by-step launch plan for '{{.Product}}' targeting '{{.Market}}'.

Include:
1. Pre-launch phase (8 weeks before)
2. Launch phase (launch week)
3. Post-launch phase (8 weeks after)
4. Key milestones and deadlines
5. Success metrics and KPIs
6. Risk mitigation strategies

Focus ONLY on the launch timeline, activities and execution plan. Do not include pricing information.
` + sharedTail,

	core.StageMarketingContent: `Generate comprehensive marketing content for '{{.Product}}'.

Create:
1. Social media posts (Twitter/X, Instagram, LinkedIn)
2. Email marketing campaigns (subject lines + content)
3. Trending hashtags and keywords
4. Influencer collaboration briefs
5. Press release template
6. Content calendar suggestions

Make it engaging, trendy and tailored to {{.Market}}.
` + sharedTail,
}

const genericTemplate = `Write the '{{.Section}}' section of a product launch plan for '{{.Product}}' targeting '{{.Market}}'.
Product details: {{.Details}}
` + sharedTail

var (
	compiled = compileTemplates()
	generic  = template.Must(util.NewTemplate("generic", genericTemplate))
)

func compileTemplates() map[core.StageID]*template.Template {
	out := make(map[core.StageID]*template.Template, len(stageTemplates))
	for id, text := range stageTemplates {
		out[id] = template.Must(util.NewTemplate(string(id), text))
	}
	return out
}

// RenderPrompt builds the user prompt for in.
func RenderPrompt(in Input) (string, error) {
	data := promptData{
		Section:  in.Stage.Title(),
		Product:  in.Request.ProductName,
		Details:  in.Request.ProductDetails,
		Market:   in.Request.TargetMarket,
		Snippets: in.Snippets,
		Feedback: in.Feedback,
		Limit:    MaxContextChars,
	}

	ids := make([]core.StageID, 0, len(in.Context))
	for id := range in.Context {
		ids = append(ids, id)
	}
	core.SortStages(ids)

	for _, id := range ids {
		data.Context = append(data.Context, ContextSection{Title: id.Title(), Text: in.Context[id]})
	}

	if tmpl, ok := compiled[in.Stage]; ok {
		return util.Execute(tmpl, data)
	}

	return util.Execute(generic, data)
}
