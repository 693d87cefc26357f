package workflow

import (
	"fmt"
	"math"

	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/evaluation"
)

// Stage defaults.
const (
	DefaultMaxAttempts      = 3
	DefaultQualityThreshold = 7.0
)

// DefaultStages returns the five plan stages with their default dependencies.
// Only market research is grounded with search results.
func DefaultStages() []core.StageDefinition {
	deps := map[core.StageID][]core.StageID{
		core.StageMarketResearch:     nil,
		core.StageProductDescription: {core.StageMarketResearch},
		core.StagePricingStrategy:    {core.StageProductDescription},
		core.StageLaunchPlan:         {core.StageProductDescription},
		core.StageMarketingContent:   {core.StageProductDescription, core.StageLaunchPlan},
	}

	defs := make([]core.StageDefinition, 0, len(core.AllStages))
	for _, id := range core.AllStages {
		defs = append(defs, core.StageDefinition{
			ID:               id,
			DependsOn:        deps[id],
			Grounded:         id == core.StageMarketResearch,
			MaxAttempts:      DefaultMaxAttempts,
			QualityThreshold: DefaultQualityThreshold,
			Weights:          evaluation.WeightsFor(id),
		})
	}

	return defs
}

// Graph is a validated, acyclic stage dependency graph. It is immutable and
// safe to share across requests.
type Graph struct {
	stages map[core.StageID]core.StageDefinition
	order  []core.StageID // topological, canonical order within a level
}

// NewGraph validates defs and builds a Graph. Every violation is reported as
// a *core.WorkflowError.
func NewGraph(defs []core.StageDefinition) (*Graph, error) {
	if len(defs) == 0 {
		return nil, core.NewWorkflowError("no stages defined", nil)
	}

	stages := make(map[core.StageID]core.StageDefinition, len(defs))

	for _, d := range defs {
		if d.ID == "" {
			return nil, core.NewWorkflowError("stage with empty id", nil)
		}

		if _, dup := stages[d.ID]; dup {
			return nil, core.NewWorkflowError(fmt.Sprintf("duplicate stage %q", d.ID), nil)
		}

		if d.MaxAttempts < 1 {
			return nil, core.NewWorkflowError(fmt.Sprintf("stage %q: max_attempts must be >= 1", d.ID), nil)
		}

		if d.QualityThreshold < 0 || d.QualityThreshold > core.MaxScore || math.IsNaN(d.QualityThreshold) {
			return nil, core.NewWorkflowError(fmt.Sprintf("stage %q: quality_threshold must be within [0,10]", d.ID), nil)
		}

		if err := d.Weights.Validate(); err != nil {
			return nil, core.NewWorkflowError(fmt.Sprintf("stage %q", d.ID), err)
		}

		d.DependsOn = append([]core.StageID(nil), d.DependsOn...)
		stages[d.ID] = d
	}

	for _, d := range stages {
		for _, dep := range d.DependsOn {
			if dep == d.ID {
				return nil, core.NewWorkflowError(fmt.Sprintf("stage %q depends on itself", d.ID), nil)
			}

			if _, ok := stages[dep]; !ok {
				return nil, core.NewWorkflowError(fmt.Sprintf("stage %q depends on unknown stage %q", d.ID, dep), nil)
			}
		}
	}

	order, err := topoSort(stages)
	if err != nil {
		return nil, err
	}

	return &Graph{stages: stages, order: order}, nil
}

// topoSort orders stages with Kahn's algorithm, level by level.
func topoSort(stages map[core.StageID]core.StageDefinition) ([]core.StageID, error) {
	indegree := make(map[core.StageID]int, len(stages))
	dependents := make(map[core.StageID][]core.StageID, len(stages))

	for id, d := range stages {
		indegree[id] += 0
		for _, dep := range d.DependsOn {
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var level []core.StageID
	for id, n := range indegree {
		if n == 0 {
			level = append(level, id)
		}
	}

	order := make([]core.StageID, 0, len(stages))

	for len(level) > 0 {
		core.SortStages(level)
		order = append(order, level...)

		var next []core.StageID
		for _, id := range level {
			for _, dep := range dependents[id] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}

		level = next
	}

	if len(order) != len(stages) {
		return nil, core.NewWorkflowError("stage dependencies contain a cycle", nil)
	}

	return order, nil
}

// Stage returns the definition of id.
func (g *Graph) Stage(id core.StageID) (core.StageDefinition, bool) {
	d, ok := g.stages[id]
	return d, ok
}

// Order returns the stage ids in topological order.
func (g *Graph) Order() []core.StageID {
	return append([]core.StageID(nil), g.order...)
}

// Len returns the number of stages.
func (g *Graph) Len() int { return len(g.stages) }
