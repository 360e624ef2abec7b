// Package classify implements the TaskClassifier (C5): a pure, locale-
// independent function from free text to model.Classification. It performs
// no I/O and depends only on static, case-folded lexicon tables, per the
// redesign note against the source's locale-sensitive class-level
// dictionaries.
package classify

import (
	"strings"

	"github.com/andywolf/cde/internal/model"
)

var epicKeywords = []string{
	"rewrite entire", "rewrite the entire", "microservices architecture",
	"microservices", "full rewrite", "complete overhaul", "ground up",
	"from scratch",
}

var complexKeywords = []string{
	"refactor", "architecture", "redesign", "migrate", "migration",
	"restructure", "oauth2", "authentication module", "distributed",
}

var moderateKeywords = []string{
	"feature", "module", "multi-file", "add support", "integrate", "endpoint",
}

var simpleKeywords = []string{
	"fix typo", "typo", "rename", "small fix", "tweak", "adjust",
}

var techComplexityBonus = []string{
	"kubernetes", "distributed", "concurrency", "race condition", "consensus",
}

var scopeBonusPhrases = []string{
	"system-wide", "entire system", "across the codebase", "whole project",
}

var approvalPhrases = []string{
	"require plan approval", "need approval", "please approve", "get sign-off",
}

var highRiskPatterns = []string{
	"delete data", "drop table", "breaking change", "force push", "rm -rf",
}

// domainLexicons maps each of the ~10 fixed domain tags to its keyword set.
// Order matters: it is the tie-break order used when multiple domains score
// equally.
var domainOrder = []string{
	"security", "architecture", "documentation", "testing", "performance",
	"infrastructure", "data", "ui", "api", "general",
}

var domainLexicons = map[string][]string{
	"security":       {"auth", "oauth", "security", "vulnerability", "encrypt", "credential"},
	"architecture":   {"architecture", "microservices", "redesign", "restructure", "system design"},
	"documentation":  {"readme", "docs", "documentation", "typo", "comment"},
	"testing":        {"test", "coverage", "unit test", "integration test", "flaky"},
	"performance":    {"performance", "latency", "throughput", "slow", "optimi"},
	"infrastructure": {"deploy", "ci/cd", "pipeline", "docker", "kubernetes", "terraform"},
	"data":           {"database", "schema", "migration", "query", "index"},
	"ui":             {"ui", "frontend", "component", "css", "layout"},
	"api":            {"api", "endpoint", "rest", "graphql", "route"},
	"general":        {},
}

// domainShapeOverrides drops phases for domains whose workflow naturally
// skips design/implementation machinery (e.g. documentation-only changes).
var domainShapeOverrides = map[string][]string{
	"documentation": {"implement", "test"},
}

// Classify maps prompt to a deterministic Classification. It never touches
// the filesystem, network, or locale-sensitive case folding.
func Classify(prompt string) model.Classification {
	lower := asciiLower(prompt)

	score := weightedKeywordScore(lower)
	score += bonusScore(lower, techComplexityBonus, 1.0)
	score += bonusScore(lower, scopeBonusPhrases, 1.5)
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}

	complexity := complexityForScore(score)

	requirePlanApproval := containsAny(lower, approvalPhrases) || containsAny(lower, highRiskPatterns)

	contextLines := estimateContextLines(lower)

	domain, domainScore := bestDomain(lower)

	shape := domainShapeOverrides[domain]

	caps := map[model.Capability]bool{}
	if requirePlanApproval {
		caps[model.CapabilityPlanApproval] = true
	}
	if complexity.AtLeast(model.ComplexityComplex) {
		caps[model.CapabilityFullContext] = true
	}

	confidence := 0.5 + densityBonus(lower, score) + lengthBonus(lower)
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	reasoning := buildReasoning(complexity, domain, score, domainScore, shape)

	return model.Classification{
		Complexity:           complexity,
		Domain:                domain,
		RequiredCapabilities:  caps,
		EstContextLines:       contextLines,
		Confidence:            confidence,
		Reasoning:             reasoning,
	}
}

// DroppedPhases returns the workflow phase ids a Classification's domain
// drops by convention (step 6 of the classification algorithm).
func DroppedPhases(c model.Classification) []string {
	return domainShapeOverrides[c.Domain]
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func weightedKeywordScore(lower string) float64 {
	var score float64
	score += float64(countMatches(lower, epicKeywords)) * 3
	score += float64(countMatches(lower, complexKeywords)) * 2
	score += float64(countMatches(lower, moderateKeywords)) * 1
	score += float64(countMatches(lower, simpleKeywords)) * -0.5
	return score
}

func countMatches(lower string, lexicon []string) int {
	n := 0
	for _, kw := range lexicon {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func bonusScore(lower string, lexicon []string, weight float64) float64 {
	return float64(countMatches(lower, lexicon)) * weight
}

func containsAny(lower string, lexicon []string) bool {
	for _, kw := range lexicon {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func complexityForScore(score float64) model.Complexity {
	switch {
	case score >= 8:
		return model.ComplexityEpic
	case score >= 6:
		return model.ComplexityComplex
	case score >= 4:
		return model.ComplexityModerate
	case score >= 2:
		return model.ComplexitySimple
	default:
		return model.ComplexityTrivial
	}
}

func estimateContextLines(lower string) int {
	switch {
	case containsAny(lower, []string{"architecture", "system", "refactor", "migration"}):
		return 50000
	case containsAny(lower, []string{"feature", "module", "multi-file"}):
		return 10000
	case containsAny(lower, []string{"fix", "typo", "single-file"}):
		return 500
	default:
		return 1000
	}
}

func bestDomain(lower string) (string, int) {
	bestDomainName := "general"
	bestScore := -1
	for _, name := range domainOrder {
		score := countMatches(lower, domainLexicons[name])
		if score > bestScore {
			bestScore = score
			bestDomainName = name
		}
	}
	if bestScore <= 0 {
		return "general", 0
	}
	return bestDomainName, bestScore
}

func densityBonus(lower string, score float64) float64 {
	words := strings.Fields(lower)
	if len(words) == 0 {
		return 0
	}
	density := score / float64(len(words))
	bonus := density * 2
	if bonus > 0.3 {
		bonus = 0.3
	}
	return bonus
}

func lengthBonus(lower string) float64 {
	n := len(strings.Fields(lower))
	switch {
	case n >= 20:
		return 0.2
	case n >= 8:
		return 0.1
	default:
		return 0
	}
}

func buildReasoning(complexity model.Complexity, domain string, score float64, domainScore int, shape []string) string {
	var b strings.Builder
	b.WriteString("complexity=")
	b.WriteString(string(complexity))
	b.WriteString(" domain=")
	b.WriteString(domain)
	if len(shape) > 0 {
		b.WriteString(" drops=")
		b.WriteString(strings.Join(shape, ","))
	}
	return b.String()
}
