package search

import (
	"fmt"
	"strings"

	"github.com/hupe1980/launchmesh/core"
)

// broadenHint widens a research query after a low-scoring attempt.
const broadenHint = "broaden keywords and include competitor names"

// QueryFor builds the search query for stage. Attempts after the first widen
// the query so that a retry sees different grounding.
func QueryFor(stage core.StageID, req core.LaunchRequest, attempt int) string {
	var q string

	switch stage {
	case core.StagePricingStrategy:
		q = fmt.Sprintf("%s pricing competitor prices %s", req.ProductName, req.TargetMarket)
	case core.StageMarketingContent:
		q = fmt.Sprintf("viral marketing campaigns %s trending hashtags", req.TargetMarket)
	default:
		q = fmt.Sprintf("%s %s market trends competitors", req.ProductName, req.TargetMarket)
	}

	if attempt > 1 {
		q += " " + broadenHint
	}

	return strings.Join(strings.Fields(q), " ")
}
