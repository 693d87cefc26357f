package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() LaunchRequest {
	return LaunchRequest{
		ProductName:    "Eco Tote Bags",
		ProductDetails: "Reusable organic cotton bags with recycled trims.",
		TargetMarket:   "Gen Z",
	}
}

func TestLaunchRequest_Validate(t *testing.T) {
	assert.NoError(t, validRequest().Validate())

	missing := validRequest()
	missing.TargetMarket = "   "
	err := missing.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "target_market", ve.Field)

	long := validRequest()
	long.ProductName = strings.Repeat("x", MaxProductNameLen+1)
	assert.True(t, IsValidation(long.Validate()))

	banned := validRequest()
	banned.ProductDetails = "Ships with a free exploit kit"
	assert.True(t, IsValidation(banned.Validate()))
}

func TestLaunchRequest_Sanitized(t *testing.T) {
	r := LaunchRequest{ProductName: "  Tote ", ProductDetails: "\tbag\n", TargetMarket: " Gen Z"}
	assert.Equal(t, LaunchRequest{ProductName: "Tote", ProductDetails: "bag", TargetMarket: "Gen Z"}, r.Sanitized())
}

func TestWeights_ValidateAndApply(t *testing.T) {
	require.NoError(t, DefaultWeights.Validate())

	bad := DefaultWeights
	bad.Conciseness = 0.5
	assert.Error(t, bad.Validate())

	neg := DefaultWeights
	neg.Conciseness = -0.05
	neg.ContentQuality = 0.35
	assert.Error(t, neg.Validate())

	s := ScoreBreakdown{ContentQuality: 8, StructureClarity: 6, Relevance: 7, Actionability: 5, Completeness: 9, Conciseness: 10}
	got := DefaultWeights.Apply(s)
	want := 0.25*8 + 0.15*6 + 0.20*7 + 0.20*5 + 0.15*9 + 0.05*10
	assert.InDelta(t, want, got.Total, 1e-9)
	assert.Equal(t, s.Relevance, got.Relevance)
}

func TestStageResult_BestAttempt(t *testing.T) {
	r := StageResult{Attempts: []StageAttempt{
		{AttemptNumber: 1, GeneratedText: "a", Score: ScoreBreakdown{Total: 4}},
		{AttemptNumber: 2, Error: "timeout"},
		{AttemptNumber: 3, GeneratedText: "c", Score: ScoreBreakdown{Total: 6}},
		{AttemptNumber: 4, GeneratedText: "d", Score: ScoreBreakdown{Total: 6}},
	}}

	best, ok := r.BestAttempt()
	require.True(t, ok)
	assert.Equal(t, 3, best.AttemptNumber)

	_, ok = StageResult{Attempts: []StageAttempt{{Error: "boom"}}}.BestAttempt()
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("provider down")
	genErr := NewGenerationError(StageLaunchPlan, 2, cause)

	assert.ErrorIs(t, genErr, cause)
	assert.Equal(t, KindGeneration, Kind(genErr))
	assert.Equal(t, KindSearch, Kind(NewSearchError("q", cause)))
	assert.Equal(t, KindWorkflow, Kind(NewWorkflowError("cycle", nil)))
	assert.Equal(t, KindValidation, Kind(NewValidationError("product_name", "is required")))
	assert.Contains(t, genErr.Error(), "launch_plan")
}

func TestCallLimiter(t *testing.T) {
	l := NewCallLimiter(2)
	assert.NoError(t, l.Increment())
	assert.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())
	assert.Error(t, l.Increment())
	assert.Equal(t, 3, l.Count())

	assert.Equal(t, -1, NewCallLimiter(0).Remaining())

	var nilLimiter *CallLimiter
	assert.NoError(t, nilLimiter.Increment())
}

func TestLaunchPlan_OrderedStages(t *testing.T) {
	p := &LaunchPlan{Sections: map[StageID]string{
		"zz_custom":           "z",
		StageMarketingContent: "m",
		StageMarketResearch:   "r",
	}}

	assert.Equal(t, []StageID{StageMarketResearch, StageMarketingContent, "zz_custom"}, p.OrderedStages())
}

func TestNewStageEvent_TruncatesPreview(t *testing.T) {
	ev := NewStageEvent(StageLaunchPlan, StatusAccepted, strings.Repeat("é", EventPreviewChars+10), time.Time{})
	assert.Len(t, []rune(ev.Preview), EventPreviewChars)
}
