package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/launchmesh/core"
)

func TestDefaultStages_Valid(t *testing.T) {
	g, err := NewGraph(DefaultStages())
	require.NoError(t, err)

	assert.Equal(t, 5, g.Len())
	assert.Equal(t, []core.StageID{
		core.StageMarketResearch,
		core.StageProductDescription,
		core.StagePricingStrategy,
		core.StageLaunchPlan,
		core.StageMarketingContent,
	}, g.Order())

	mr, ok := g.Stage(core.StageMarketResearch)
	require.True(t, ok)
	assert.True(t, mr.Grounded)
	assert.Empty(t, mr.DependsOn)

	for _, d := range DefaultStages() {
		if d.ID != core.StageMarketResearch {
			assert.False(t, d.Grounded, d.ID)
		}
	}
}

func TestNewGraph_Rejects(t *testing.T) {
	badWeights := stageDef("a", 1)
	badWeights.Weights.Relevance = 0.9

	badThreshold := stageDef("a", 1)
	badThreshold.QualityThreshold = 11

	tests := map[string][]core.StageDefinition{
		"empty":         nil,
		"empty id":      {stageDef("", 1)},
		"duplicate":     {stageDef("a", 1), stageDef("a", 1)},
		"zero attempts": {stageDef("a", 0)},
		"self":          {stageDef("a", 1, "a")},
		"unknown":       {stageDef("a", 1, "missing")},
		"cycle":         {stageDef("a", 1, "c"), stageDef("b", 1, "a"), stageDef("c", 1, "b")},
		"weights":       {badWeights},
		"threshold":     {badThreshold},
	}

	for name, defs := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewGraph(defs)
			require.Error(t, err)
			assert.True(t, core.IsWorkflow(err))
		})
	}
}

func TestNewGraph_CopiesDependencies(t *testing.T) {
	deps := []core.StageID{"a"}
	g, err := NewGraph([]core.StageDefinition{stageDef("a", 1), stageDef("b", 1, deps...)})
	require.NoError(t, err)

	deps[0] = "mutated"

	b, _ := g.Stage("b")
	assert.Equal(t, []core.StageID{"a"}, b.DependsOn)
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(time.Second, 8*time.Second)

	assert.Equal(t, time.Duration(0), b(0))
	assert.Equal(t, time.Second, b(1))
	assert.Equal(t, 2*time.Second, b(2))
	assert.Equal(t, 4*time.Second, b(3))
	assert.Equal(t, 8*time.Second, b(4))
	assert.Equal(t, 8*time.Second, b(10))
}
