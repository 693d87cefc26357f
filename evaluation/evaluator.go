package evaluation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/hupe1980/launchmesh/core"
)

var (
	properNounRe   = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	numberedLineRe = regexp.MustCompile(`(?m)^\s*\d+\.`)
	headingRe      = regexp.MustCompile(`(?m)^\s*#{1,6}\s+\S`)
)

var (
	businessTerms      = []string{"market share", "penetration", "adoption rate", "customer lifetime value", "conversion rate", "retention"}
	dataIndicators     = []string{"%", "percent", "million", "billion", "study shows", "research indicates", "according to"}
	strategicTerms     = []string{"competitive advantage", "market positioning", "brand positioning", "unique selling", "value proposition", "differentiat"}
	sectionIndicators  = []string{"overview:", "key players:", "market trends:", "analysis:", "summary:", "timeline:", "objectives:"}
	flowWords          = []string{"however", "therefore", "additionally", "furthermore", "in contrast", "meanwhile"}
	audienceTerms      = []string{"social media", "sustainability", "convenience", "wellness", "lifestyle", "community"}
	actionWords        = []string{"should", "recommend", "suggest", "consider", "focus on", "target", "leverage"}
	recommendPhrases   = []string{"opportunity to", "potential for", "could benefit", "strategy should", "next step"}
	concreteTerms      = []string{"launch", "price", "position", "market", "partner", "develop", "create"}
	quantitySymbols    = []string{"$", "%", "€", "£"}
	failureIndicators  = []string{"generation failed", "api error:", "search api error:", "web search unavailable:", "failed to generate", "unable to generate", "generation error:", "api unavailable"}
	placeholderPhrases = []string{"placeholder text", "sample content", "example text", "lorem ipsum", "to be filled", "coming soon"}
)

// completenessAreas are the coverage buckets checked by scoreCompleteness, in a
// fixed order so that scoring stays deterministic.
var completenessAreas = [][]string{
	{"competitor", "rival", "competition", "market leader"},
	{"trend", "growing", "emerging", "shifting"},
	{"opportunity", "potential", "gap", "untapped"},
	{"market size", "market value", "revenue", "billion", "million"},
	{"customer", "consumer", "buyer", "demographic"},
	{"challenge", "barrier", "obstacle", "risk"},
	{"region", "country", "global", "local", "geographic"},
	{"price", "cost", "pricing", "affordable", "premium"},
}

// Evaluator scores text with the rule-based heuristics. The zero value is ready to use.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Score evaluates text against criteria and returns the sub-scores with the
// weighted total computed from weights.
func (e *Evaluator) Score(text string, criteria core.Criteria, weights core.Weights) core.ScoreBreakdown {
	lower := strings.ToLower(text)

	s := core.ScoreBreakdown{
		ContentQuality:   scoreContentQuality(text, lower),
		StructureClarity: scoreStructureClarity(text, lower),
		Relevance:        scoreRelevance(lower, criteria),
		Actionability:    scoreActionability(text, lower),
		Completeness:     scoreCompleteness(lower),
		Conciseness:      scoreConciseness(text),
	}

	if isDegenerate(lower) {
		s.ContentQuality = 0
		s.Completeness = 0
	}

	return weights.Apply(s)
}

// Verdict reports whether score meets the quality threshold.
func Verdict(score core.ScoreBreakdown, threshold float64) bool {
	return score.Total >= threshold
}

// Summary renders a human readable verdict for score against threshold.
func Summary(score core.ScoreBreakdown, threshold float64) string {
	verdict := "below quality bar"
	if Verdict(score, threshold) {
		verdict = "meets quality bar"
	}

	return fmt.Sprintf("%s (threshold %.1f): %s", verdict, threshold, score)
}

// isDegenerate flags provider error echoes and placeholder output.
func isDegenerate(lower string) bool {
	return countPresent(lower, failureIndicators) > 0 || countPresent(lower, placeholderPhrases) > 0
}

func scoreContentQuality(text, lower string) float64 {
	score := 5.0

	score += math.Min(float64(countPresent(lower, businessTerms))*0.3, 2.0)

	if countPresent(lower, dataIndicators) > 0 {
		score += 1.0
	}

	if countPresent(lower, strategicTerms) > 0 {
		score += 1.5
	}

	if len(properNounRe.FindAllString(text, -1)) >= 3 {
		score += 0.5
	}

	return clamp(score)
}

func scoreStructureClarity(text, lower string) float64 {
	score := 5.0

	sections := countPresent(lower, sectionIndicators) + len(headingRe.FindAllString(text, -1))
	score += math.Min(float64(sections)*0.5, 2.0)

	if strings.Contains(text, "•") || strings.Contains(text, "*") || strings.Contains(text, "\n- ") ||
		len(numberedLineRe.FindAllString(text, -1)) >= 2 {
		score += 1.5
	}

	if len(strings.Split(text, "\n\n")) >= 3 {
		score += 1.0
	}

	if countPresent(lower, flowWords) > 0 {
		score += 0.5
	}

	return clamp(score)
}

func scoreRelevance(lower string, criteria core.Criteria) float64 {
	score := 3.0

	product := strings.ToLower(strings.TrimSpace(criteria.ProductName))
	if product != "" && strings.Contains(lower, product) {
		score += 2.0
	}

	market := strings.ToLower(strings.TrimSpace(criteria.TargetMarket))
	score += math.Min(float64(marketMatches(lower, market))*0.5, 2.0)

	score += math.Min(float64(countPresent(lower, significantWords(product)))*0.5, 2.0)

	if strings.Contains(lower, "target market") || strings.Contains(lower, "target audience") {
		if countPresent(lower, audienceTerms) > 0 {
			score += 1.0
		}
	}

	return clamp(score)
}

func scoreActionability(text, lower string) float64 {
	score := 4.0

	score += math.Min(float64(countPresent(lower, actionWords))*0.3, 2.0)

	if countPresent(lower, recommendPhrases) > 0 {
		score += 2.0
	}

	score += math.Min(float64(countPresent(lower, concreteTerms))*0.2, 1.5)

	if countPresent(text, quantitySymbols) > 0 {
		score += 0.5
	}

	return clamp(score)
}

func scoreCompleteness(lower string) float64 {
	score := 2.0

	for _, keywords := range completenessAreas {
		if countPresent(lower, keywords) > 0 {
			score += 1.0
		}
	}

	return clamp(score)
}

// scoreConciseness rewards 150-400 words and penalizes drift in either direction.
func scoreConciseness(text string) float64 {
	words := len(strings.Fields(text))

	switch {
	case words >= 150 && words <= 400:
		return 10.0
	case words >= 100 && words < 150, words > 400 && words <= 600:
		return 7.0
	case words >= 50 && words < 100, words > 600 && words <= 800:
		return 4.0
	default:
		return 2.0
	}
}

// countPresent returns how many of terms occur in s.
func countPresent(s string, terms []string) int {
	n := 0
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			n++
		}
	}
	return n
}

// significantWords returns the words of s longer than three characters.
func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

// marketMatches counts the significant words of market that appear as whole
// words in lower. A market without significant words is matched as a phrase.
func marketMatches(lower, market string) int {
	terms := significantWords(market)
	if len(terms) == 0 && market != "" {
		terms = []string{market}
	}

	n := 0
	for _, t := range terms {
		if containsWord(lower, t) {
			n++
		}
	}
	return n
}

func containsWord(s, word string) bool {
	re := regexp.MustCompile(`(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(word) + `(?:$|[^\p{L}\p{N}])`)
	return re.MatchString(s)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(v, core.MaxScore))
}
