package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/internal/testutil"
	"github.com/hupe1980/launchmesh/model"
)

func echoModel(name string) *testutil.FuncModel {
	return testutil.NewFuncModel(name, func(_ context.Context, req model.Request) (string, error) {
		return "  generated by " + name + "  ", nil
	})
}

func TestGenerate_Success(t *testing.T) {
	m := echoModel("primary")
	c := NewClient(m)

	out, err := c.Generate(context.Background(), Input{
		Stage:   core.StageMarketResearch,
		Attempt: 1,
		Request: testutil.NewRequestBuilder().Build(),
	})
	require.NoError(t, err)

	assert.Equal(t, "generated by primary", out.Text)
	assert.Equal(t, "primary", out.Model)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, SystemInstructions, calls[0].Instructions)
	assert.Contains(t, calls[0].Prompt, "Conduct comprehensive market research for 'EcoBottle'")
}

func TestGenerate_ProviderErrorIsGenerationError(t *testing.T) {
	c := NewClient(testutil.NewFuncModel("p", func(context.Context, model.Request) (string, error) {
		return "", errors.New("503")
	}))

	_, err := c.Generate(context.Background(), Input{Stage: core.StageLaunchPlan, Attempt: 2, Request: testutil.NewRequestBuilder().Build()})
	require.Error(t, err)
	assert.True(t, core.IsGeneration(err))

	var ge *core.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, core.StageLaunchPlan, ge.Stage)
	assert.Equal(t, 2, ge.Attempt)
}

func TestGenerate_EmptyCompletionIsGenerationError(t *testing.T) {
	c := NewClient(testutil.NewFuncModel("p", func(context.Context, model.Request) (string, error) {
		return "   ", nil
	}))

	_, err := c.Generate(context.Background(), Input{Stage: core.StageLaunchPlan, Attempt: 1, Request: testutil.NewRequestBuilder().Build()})
	assert.True(t, core.IsGeneration(err))
	assert.ErrorIs(t, err, model.ErrEmptyCompletion)
}

func TestGenerate_Timeout(t *testing.T) {
	c := NewClient(testutil.NewFuncModel("slow", func(ctx context.Context, _ model.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), func(o *Options) { o.Timeout = 10 * time.Millisecond })

	_, err := c.Generate(context.Background(), Input{Stage: core.StageMarketResearch, Attempt: 1, Request: testutil.NewRequestBuilder().Build()})
	assert.True(t, core.IsGeneration(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerate_UsesFallbackOnlyWhenAsked(t *testing.T) {
	primary, fallback := echoModel("primary"), echoModel("fallback")
	c := NewClient(primary, func(o *Options) { o.Fallback = fallback })
	require.True(t, c.HasFallback())

	in := Input{Stage: core.StagePricingStrategy, Attempt: 3, Request: testutil.NewRequestBuilder().Build()}

	out, err := c.Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "primary", out.Model)

	in.UseFallback = true
	out, err = c.Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "fallback", out.Model)
	assert.Len(t, fallback.Calls(), 1)
}

func TestGenerate_CallBudget(t *testing.T) {
	m := echoModel("primary")
	c := NewClient(m)
	limiter := core.NewCallLimiter(1)

	in := Input{Stage: core.StageMarketResearch, Attempt: 1, Request: testutil.NewRequestBuilder().Build(), Limiter: limiter}

	_, err := c.Generate(context.Background(), in)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), in)
	assert.True(t, core.IsGeneration(err))
	assert.Len(t, m.Calls(), 1)
}

func TestRenderPrompt_IncludesContextSnippetsAndFeedback(t *testing.T) {
	prompt, err := RenderPrompt(Input{
		Stage:   core.StageMarketingContent,
		Request: testutil.NewRequestBuilder().Build(),
		Context: map[core.StageID]string{
			core.StageLaunchPlan:         "week 1: teaser",
			core.StageProductDescription: "A bottle that keeps drinks cold & fresh",
		},
		Snippets: []core.Snippet{{Title: "Trend", Text: "#hydration is trending", Source: "https://x.example"}},
		Feedback: "add more hashtags",
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "### Product Description\nA bottle that keeps drinks cold & fresh")
	assert.Less(t, strings.Index(prompt, "### Product Description"), strings.Index(prompt, "### Launch Plan"))
	assert.Contains(t, prompt, "- Trend: #hydration is trending (Source: https://x.example)")
	assert.Contains(t, prompt, "Reviewer feedback on the previous draft: add more hashtags")
}

func TestRenderPrompt_TruncatesContext(t *testing.T) {
	prompt, err := RenderPrompt(Input{
		Stage:   core.StagePricingStrategy,
		Request: testutil.NewRequestBuilder().Build(),
		Context: map[core.StageID]string{core.StageProductDescription: strings.Repeat("x", MaxContextChars+100)},
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, strings.Repeat("x", MaxContextChars)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", MaxContextChars+1))
}

func TestRenderPrompt_EveryStageHasTemplate(t *testing.T) {
	for _, id := range core.AllStages {
		prompt, err := RenderPrompt(Input{Stage: id, Request: testutil.NewRequestBuilder().Build()})
		require.NoError(t, err)
		assert.Contains(t, prompt, "EcoBottle", id)
		assert.NotContains(t, prompt, "Previously approved sections", id)
	}

	prompt, err := RenderPrompt(Input{Stage: "faq", Request: testutil.NewRequestBuilder().Build()})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Write the 'faq' section")
}

func TestDecorate(t *testing.T) {
	assert.Equal(t, "text", Decorate(core.StageMarketResearch, "text"))
	assert.Equal(t, "", Decorate(core.StageLaunchPlan, ""))

	out := Decorate(core.StageLaunchPlan, "plan")
	assert.True(t, strings.HasPrefix(out, "plan\n\n--- VISUAL TIMELINE ---\n```mermaid"))
}
