package evaluation

import "github.com/hupe1980/launchmesh/core"

// stageWeights tilts each section towards what matters most for it: research
// leans on relevance, marketing content on actionability.
var stageWeights = map[core.StageID]core.Weights{
	core.StageMarketResearch: {
		ContentQuality: 0.20, StructureClarity: 0.10, Relevance: 0.30,
		Actionability: 0.15, Completeness: 0.20, Conciseness: 0.05,
	},
	core.StageProductDescription: {
		ContentQuality: 0.25, StructureClarity: 0.15, Relevance: 0.25,
		Actionability: 0.10, Completeness: 0.10, Conciseness: 0.15,
	},
	core.StagePricingStrategy: {
		ContentQuality: 0.25, StructureClarity: 0.15, Relevance: 0.15,
		Actionability: 0.25, Completeness: 0.15, Conciseness: 0.05,
	},
	core.StageLaunchPlan: {
		ContentQuality: 0.20, StructureClarity: 0.20, Relevance: 0.15,
		Actionability: 0.25, Completeness: 0.15, Conciseness: 0.05,
	},
	core.StageMarketingContent: {
		ContentQuality: 0.15, StructureClarity: 0.15, Relevance: 0.20,
		Actionability: 0.35, Completeness: 0.10, Conciseness: 0.05,
	},
}

// WeightsFor returns the default weights of stage, or core.DefaultWeights for
// stages without a dedicated profile.
func WeightsFor(stage core.StageID) core.Weights {
	if w, ok := stageWeights[stage]; ok {
		return w
	}
	return core.DefaultWeights
}
