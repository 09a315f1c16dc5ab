package models

import (
	"database/sql/driver"
	"encoding/json"
)

// ClauseCategory represents the legal category assigned to a clause
type ClauseCategory string

const (
	CategoryLiability            ClauseCategory = "LIABILITY"
	CategoryIndemnity            ClauseCategory = "INDEMNITY"
	CategoryTermination          ClauseCategory = "TERMINATION"
	CategoryConfidentiality      ClauseCategory = "CONFIDENTIALITY"
	CategoryForceMajeure         ClauseCategory = "FORCE_MAJEURE"
	CategoryGoverningLaw         ClauseCategory = "GOVERNING_LAW"
	CategoryPaymentTerms         ClauseCategory = "PAYMENT_TERMS"
	CategoryIntellectualProperty ClauseCategory = "INTELLECTUAL_PROPERTY"
	CategoryDataPrivacy          ClauseCategory = "DATA_PRIVACY"
	CategoryWarranties           ClauseCategory = "WARRANTIES"
	CategoryNonCompete           ClauseCategory = "NON_COMPETE"
	CategoryAssignment           ClauseCategory = "ASSIGNMENT"
	CategoryInsurance            ClauseCategory = "INSURANCE"
	CategoryAuditRights          ClauseCategory = "AUDIT_RIGHTS"
	CategoryStandardBoilerplate  ClauseCategory = "STANDARD_BOILERPLATE"
)

// ContextFlag is a boolean signal derived from a clause's neighbors or
// internal structure, used to adjust its risk score
type ContextFlag string

const (
	FlagAdjacentHighRisk       ContextFlag = "adjacent_high_risk"
	FlagFollowedByException    ContextFlag = "followed_by_exception"
	FlagContainsDefinition     ContextFlag = "contains_definition"
	FlagContainsCrossReference ContextFlag = "contains_cross_reference"
	FlagLengthyClause          ContextFlag = "lengthy_clause"
)

// Clause represents one structurally distinct unit of contract text as
// produced by segmentation. Ordering is significant: adjacency drives
// context analysis in the classifier.
type Clause struct {
	ID      string  `json:"clause_id"`
	Text    string  `json:"text"`
	Heading *string `json:"heading,omitempty"`
	Level   int     `json:"level"`
}

// CategoryScore pairs a category with the score it achieved during
// classification
type CategoryScore struct {
	Category ClauseCategory `json:"category"`
	Score    float64        `json:"score"`
}

// RuleFlag is a deterministic lint flag raised by the rule engine
type RuleFlag struct {
	RuleID      string `json:"rule_id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Flag        string `json:"flag"`
}

// ClassifiedClause represents a clause after classification
type ClassifiedClause struct {
	ClauseID              string          `json:"clause_id"`
	Text                  string          `json:"text"`
	Heading               *string         `json:"heading,omitempty"`
	Level                 int             `json:"level"`
	Category              ClauseCategory  `json:"category"`
	RiskScore             float64         `json:"risk_score"`
	Confidence            float64         `json:"confidence"`
	MatchedKeywords       []string        `json:"matched_keywords"`
	ContextFlags          []ContextFlag   `json:"context_flags"`
	RiskSummary           string          `json:"risk_summary"`
	AlternativeCategories []CategoryScore `json:"alternative_categories,omitempty"`
	RuleFlags             []RuleFlag      `json:"rule_flags,omitempty"`
}

// ClassifiedClauses represents an ordered list of classified clauses
type ClassifiedClauses []ClassifiedClause

// Value implements driver.Valuer for JSONB
func (c ClassifiedClauses) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB
func (c *ClassifiedClauses) Scan(value interface{}) error {
	if value == nil {
		*c = make(ClassifiedClauses, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*c = make(ClassifiedClauses, 0)
		return nil
	}

	if len(bytes) == 0 {
		*c = make(ClassifiedClauses, 0)
		return nil
	}

	return json.Unmarshal(bytes, c)
}
