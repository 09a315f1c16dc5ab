package service

import (
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"clauseguard-backend/models"
)

// Rule categories for deterministic lint rules
const (
	RuleCategoryHighRiskTerms     = "HIGH_RISK_TERMS"
	RuleCategoryMissingElements   = "MISSING_ELEMENTS"
	RuleCategoryFormatConsistency = "FORMAT_CONSISTENCY"
)

// lintRule is a deterministic check applied to a single clause
type lintRule struct {
	ID          string
	Category    string
	Description string
	FlagMessage string
	Check       func(text string, category models.ClauseCategory) bool
}

var (
	oneSidedTerminationPattern = regexp.MustCompile(`(?i)Party \w may terminate.*Party \w cannot`)
	bareAmountPattern          = regexp.MustCompile(`\s\d{4,}`)
)

// RuleEngine applies a fixed set of deterministic lint rules to clauses.
// Unlike the classifier it does not score: it raises discrete flags for
// language that always warrants attention regardless of category risk.
type RuleEngine struct {
	rules []lintRule
}

// NewRuleEngine creates a rule engine with the built-in rule set
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{
		rules: []lintRule{
			{
				ID:          "R001",
				Category:    RuleCategoryHighRiskTerms,
				Description: "Flag unlimited liability language.",
				FlagMessage: "Clause contains 'Unlimited Liability', which is highly restricted.",
				Check: func(text string, _ models.ClauseCategory) bool {
					return strings.Contains(strings.ToLower(text), "unlimited liability")
				},
			},
			{
				ID:          "R002",
				Category:    RuleCategoryHighRiskTerms,
				Description: "Flag explicit one-sided termination language (e.g., 'Party A may terminate... Party B cannot.').",
				FlagMessage: "Clause suggests a significantly unbalanced termination right.",
				Check: func(text string, _ models.ClauseCategory) bool {
					return oneSidedTerminationPattern.MatchString(text)
				},
			},
			{
				ID:          "R003",
				Category:    RuleCategoryMissingElements,
				Description: "In Indemnity clauses, verify the presence of the word 'indemnify'.",
				FlagMessage: "Indemnity clause may be missing the key operative word 'indemnify'.",
				Check: func(text string, category models.ClauseCategory) bool {
					return category == models.CategoryIndemnity &&
						!strings.Contains(strings.ToLower(text), "indemnify")
				},
			},
			{
				ID:          "R004",
				Category:    RuleCategoryFormatConsistency,
				Description: "Check if a number greater than 1000 appears without a currency symbol ($€£).",
				FlagMessage: "Potential monetary amount detected without an explicit currency denomination.",
				Check:       hasBareMonetaryAmount,
			},
		},
	}
}

// hasBareMonetaryAmount reports whether a 4+ digit number appears without a
// preceding currency symbol
func hasBareMonetaryAmount(text string, _ models.ClauseCategory) bool {
	for _, loc := range bareAmountPattern.FindAllStringIndex(text, -1) {
		if loc[0] == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
		if prev != '$' && prev != '€' && prev != '£' {
			return true
		}
	}
	return false
}

// Apply runs every rule against the clause and returns the triggered flags
func (e *RuleEngine) Apply(clauseText string, category models.ClauseCategory) []models.RuleFlag {
	if clauseText == "" {
		log.Printf("Warning: empty clause text provided to rule engine")
		return []models.RuleFlag{}
	}

	triggered := make([]models.RuleFlag, 0)
	for _, rule := range e.rules {
		if rule.Check(clauseText, category) {
			triggered = append(triggered, models.RuleFlag{
				RuleID:      rule.ID,
				Category:    rule.Category,
				Description: rule.Description,
				Flag:        rule.FlagMessage,
			})
		}
	}

	return triggered
}
