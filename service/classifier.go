package service

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"

	"clauseguard-backend/models"
)

const (
	boilerplateRisk       = 0.1
	boilerplateConfidence = 0.9
	lengthyClauseChars    = 500
	normalizeCacheLimit   = 1000
)

var (
	nonWordPattern        = regexp.MustCompile(`[^\w\s]`)
	definitionPattern     = regexp.MustCompile(`(?i)"[^"]+" (means|shall mean|refers to)`)
	crossReferencePattern = regexp.MustCompile(`(?i)(section|clause|article)\s+\d+`)

	precedingHighRiskKeywords = []string{"liability", "indemnify", "damages"}
	exceptionKeywords         = []string{"notwithstanding", "except", "provided that"}
)

// compiledRule is a rule with its pattern compiled for case-insensitive matching
type compiledRule struct {
	re       *regexp.Regexp
	baseRisk float64
}

// compiledCategory holds the compiled rule list for one category
type compiledCategory struct {
	category models.ClauseCategory
	rules    []compiledRule
}

// Classifier assigns a legal category, confidence, and context-adjusted risk
// score to each clause using the static pattern rule set. It is pure and
// deterministic: the same clause list always yields the same output.
type Classifier struct {
	compiled []compiledCategory

	// Bounded memoization of text normalization, keyed by exact input.
	cacheMu   sync.Mutex
	normCache map[string]string
}

// NewClassifier creates a classifier with all rule patterns compiled once
func NewClassifier() *Classifier {
	c := &Classifier{
		normCache: make(map[string]string),
	}

	for _, cat := range classificationRules {
		cc := compiledCategory{category: cat.Category}
		for _, rule := range cat.Rules {
			cc.rules = append(cc.rules, compiledRule{
				re:       regexp.MustCompile(`(?i)` + rule.Pattern),
				baseRisk: rule.BaseRisk,
			})
		}
		c.compiled = append(c.compiled, cc)
	}

	return c
}

// classificationMetadata carries intermediate classification state for one clause
type classificationMetadata struct {
	matchedKeywords []string
	confidence      float64
	allScores       []models.CategoryScore
}

// Classify classifies an ordered list of clauses. It never fails: a clause
// matching no rule is classified STANDARD_BOILERPLATE, and an unexpected
// panic while processing the batch is recovered at the batch boundary and
// yields an empty list. Callers must treat an empty result as
// "classification unavailable", not "zero risk".
func (c *Classifier) Classify(clauses []models.Clause) (results []models.ClassifiedClause) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("CRITICAL classifier failure: %v", r)
			results = []models.ClassifiedClause{}
		}
	}()

	results = make([]models.ClassifiedClause, 0, len(clauses))

	for idx, clause := range clauses {
		category, riskScore, metadata := c.determineCategoryAndRisk(clause.Text)

		contextFlags := c.analyzeContext(clause, clauses, idx)

		adjustedRisk := adjustRiskForContext(riskScore, contextFlags)

		riskSummary := generateRiskSummary(category, adjustedRisk, metadata.matchedKeywords, metadata.confidence)

		results = append(results, models.ClassifiedClause{
			ClauseID:              clause.ID,
			Text:                  clause.Text,
			Heading:               clause.Heading,
			Level:                 clause.Level,
			Category:              category,
			RiskScore:             adjustedRisk,
			Confidence:            metadata.confidence,
			MatchedKeywords:       metadata.matchedKeywords,
			ContextFlags:          contextFlags,
			RiskSummary:           riskSummary,
			AlternativeCategories: alternativeCategories(metadata.allScores),
		})
	}

	c.logBreakdown(results)

	return results
}

// determineCategoryAndRisk evaluates every category's rules against the
// clause text and picks the highest-scoring category
func (c *Classifier) determineCategoryAndRisk(text string) (models.ClauseCategory, float64, classificationMetadata) {
	// Normalization is memoized; the normalized form drives neighbor keyword
	// checks while rule patterns match the original text case-insensitively.
	c.normalize(text)

	var scores []models.CategoryScore
	matchedByCategory := make(map[models.ClauseCategory][]string)

	for _, cat := range c.compiled {
		maxScore := 0.0
		var matches []string

		for _, rule := range cat.rules {
			if m := rule.re.FindString(text); m != "" {
				if rule.baseRisk > maxScore {
					maxScore = rule.baseRisk
				}
				matches = append(matches, m)
			}
		}

		if maxScore > 0 {
			scores = append(scores, models.CategoryScore{Category: cat.category, Score: maxScore})
			matchedByCategory[cat.category] = matches
		}
	}

	if len(scores) == 0 {
		return models.CategoryStandardBoilerplate, boilerplateRisk, classificationMetadata{
			confidence: boilerplateConfidence,
			allScores: []models.CategoryScore{
				{Category: models.CategoryStandardBoilerplate, Score: boilerplateRisk},
			},
		}
	}

	sortScoresDescending(scores)
	best := scores[0]
	finalRisk := models.ClampScore(best.Score)

	return best.Category, finalRisk, classificationMetadata{
		matchedKeywords: matchedByCategory[best.Category],
		confidence:      calculateConfidence(scores),
		allScores:       scores,
	}
}

// calculateConfidence derives confidence from how dominant the winning
// category is over the runner-up, not from the absolute score
func calculateConfidence(scores []models.CategoryScore) float64 {
	if len(scores) == 1 {
		return 0.95
	}

	gap := scores[0].Score - scores[1].Score
	confidence := 0.5 + gap*0.5
	if confidence > 0.99 {
		confidence = 0.99
	}
	return confidence
}

// sortScoresDescending orders category scores high to low, breaking ties by
// category name so output is stable
func sortScoresDescending(scores []models.CategoryScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Category < scores[j].Category
	})
}

// alternativeCategories returns the 2nd and 3rd highest-scoring categories
func alternativeCategories(scores []models.CategoryScore) []models.CategoryScore {
	if len(scores) <= 1 {
		return nil
	}
	end := 3
	if len(scores) < end {
		end = len(scores)
	}
	return scores[1:end]
}

// analyzeContext derives context flags from the clause's neighbors in the
// supplied order and from its internal structure. The first and last clause
// simply skip the missing side.
func (c *Classifier) analyzeContext(current models.Clause, all []models.Clause, idx int) []models.ContextFlag {
	flags := make([]models.ContextFlag, 0)

	if idx > 0 {
		prevText := c.normalize(all[idx-1].Text)
		for _, keyword := range precedingHighRiskKeywords {
			if strings.Contains(prevText, keyword) {
				flags = append(flags, models.FlagAdjacentHighRisk)
				break
			}
		}
	}

	if idx < len(all)-1 {
		nextText := c.normalize(all[idx+1].Text)
		for _, keyword := range exceptionKeywords {
			if strings.Contains(nextText, keyword) {
				flags = append(flags, models.FlagFollowedByException)
				break
			}
		}
	}

	if definitionPattern.MatchString(current.Text) {
		flags = append(flags, models.FlagContainsDefinition)
	}

	if crossReferencePattern.MatchString(current.Text) {
		flags = append(flags, models.FlagContainsCrossReference)
	}

	if len(current.Text) > lengthyClauseChars {
		flags = append(flags, models.FlagLengthyClause)
	}

	return flags
}

// adjustRiskForContext applies the multiplicative context adjustments in a
// fixed order, clamping to 1.0 after each step
func adjustRiskForContext(riskScore float64, flags []models.ContextFlag) float64 {
	adjusted := riskScore

	if hasFlag(flags, models.FlagAdjacentHighRisk) {
		adjusted = models.ClampScore(adjusted * 1.15)
	}
	if hasFlag(flags, models.FlagFollowedByException) {
		adjusted = models.ClampScore(adjusted * 1.10)
	}
	if hasFlag(flags, models.FlagLengthyClause) {
		adjusted = models.ClampScore(adjusted * 1.05)
	}

	return adjusted
}

func hasFlag(flags []models.ContextFlag, flag models.ContextFlag) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

// normalize lowercases text and strips punctuation to single spaces. The
// result is memoized per input string, bounded to normalizeCacheLimit
// entries; normalization is an idempotent function of the raw text.
func (c *Classifier) normalize(text string) string {
	c.cacheMu.Lock()
	if cached, ok := c.normCache[text]; ok {
		c.cacheMu.Unlock()
		return cached
	}
	c.cacheMu.Unlock()

	normalized := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")
	normalized = strings.Join(strings.Fields(normalized), " ")

	c.cacheMu.Lock()
	if len(c.normCache) < normalizeCacheLimit {
		c.normCache[text] = normalized
	}
	c.cacheMu.Unlock()

	return normalized
}

// logBreakdown reports aggregate classification stats for the batch
func (c *Classifier) logBreakdown(results []models.ClassifiedClause) {
	categoryCounts := make(map[models.ClauseCategory]int)
	highRiskCount := 0
	lowConfidenceCount := 0

	for _, r := range results {
		categoryCounts[r.Category]++
		if r.RiskScore > 0.8 {
			highRiskCount++
		}
		if r.Confidence < 0.7 {
			lowConfidenceCount++
		}
	}

	log.Printf("Classification breakdown: %v", categoryCounts)
	log.Printf("High-risk clauses: %d", highRiskCount)
	log.Printf("Low-confidence classifications: %d", lowConfidenceCount)
}

// generateRiskSummary produces a human-readable risk summary via the
// category-specific rule table, falling back to a generic severity-banded
// sentence. A low-confidence classification overrides the generic bands with
// an uncertainty notice.
func generateRiskSummary(category models.ClauseCategory, riskScore float64, matchedKeywords []string, confidence float64) string {
	switch category {
	case models.CategoryLiability:
		if riskScore > 0.9 {
			return "CRITICAL: Unlimited liability exposure detected. REQUIRES IMMEDIATE LEGAL REVIEW."
		}
		if matchedContains(matchedKeywords, "consequential") {
			return "HIGH: Broad consequential damages inclusion. Negotiate cap or exclusion."
		}
		if riskScore > 0.8 {
			return "HIGH: Significant liability terms. Review limitation provisions carefully."
		}

	case models.CategoryIndemnity:
		if riskScore > 0.75 {
			return "HIGH: One-sided indemnification favoring counterparty. Propose mutual indemnity."
		}
		return "MEDIUM: Indemnification clause requires review for scope and limitations."

	case models.CategoryDataPrivacy:
		if riskScore > 0.8 {
			return "HIGH: Data privacy obligations with potential regulatory implications. Verify compliance."
		}
		return "MEDIUM: Data privacy terms present. Ensure alignment with company policies."

	case models.CategoryWarranties:
		if matchedContains(matchedKeywords, "as-is") || matchedContains(matchedKeywords, "without warranty") {
			return "HIGH: Warranty disclaimer or as-is provision. Assess risk acceptance."
		}
		return "MEDIUM: Warranty or representation clause. Verify accuracy and limitations."

	case models.CategoryIntellectualProperty:
		if riskScore > 0.75 {
			return "HIGH: Significant IP rights transfer or assignment. Verify scope and limitations."
		}
		return "MEDIUM: IP-related terms. Review ownership and licensing provisions."

	case models.CategoryTermination:
		if riskScore > 0.75 {
			return "MEDIUM-HIGH: Termination for convenience or broad termination rights. Review implications."
		}
		return "MEDIUM: Standard termination provisions. Verify notice periods align with policy."
	}

	if confidence < 0.7 {
		return fmt.Sprintf("UNCERTAIN: Low confidence classification as %s. Manual review recommended.", category)
	}

	if riskScore > 0.8 {
		return fmt.Sprintf("HIGH: %s clause contains non-standard or high-risk terms.", category)
	} else if riskScore > 0.5 {
		return fmt.Sprintf("MEDIUM: %s clause requires legal review for standard adherence.", category)
	} else if riskScore > 0.2 {
		return fmt.Sprintf("LOW-MEDIUM: %s clause warrants brief review.", category)
	}
	return fmt.Sprintf("LOW: %s appears to contain standard administrative language.", category)
}

// matchedContains reports whether any matched keyword contains the substring,
// case-insensitively
func matchedContains(keywords []string, substring string) bool {
	for _, k := range keywords {
		if strings.Contains(strings.ToLower(k), substring) {
			return true
		}
	}
	return false
}
