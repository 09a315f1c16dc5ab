package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// FindingType represents the type of a compliance finding
type FindingType string

const (
	FindingPolicyViolation FindingType = "policy_violation"
	FindingMissingClause   FindingType = "missing_clause"
	FindingWeakProvision   FindingType = "weak_provision"
	FindingLegalRisk       FindingType = "legal_risk"
	FindingFinancialRisk   FindingType = "financial_risk"
	FindingRedFlag         FindingType = "red_flag"
)

// ComplianceDomain represents the domain a finding belongs to
type ComplianceDomain string

const (
	DomainPolicyCompliance  ComplianceDomain = "policy_compliance"
	DomainFinancial         ComplianceDomain = "financial"
	DomainLegal             ComplianceDomain = "legal"
	DomainDataPrivacy       ComplianceDomain = "data_privacy"
	DomainPaymentTerms      ComplianceDomain = "payment_terms"
	DomainDisputeResolution ComplianceDomain = "dispute_resolution"
	DomainIndemnification   ComplianceDomain = "indemnification"
	DomainConfidentiality   ComplianceDomain = "confidentiality"
)

// Severity represents how severe a finding is
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// ImpactLevel represents the business impact if a finding is not addressed
type ImpactLevel string

const (
	ImpactSevere      ImpactLevel = "severe"
	ImpactSignificant ImpactLevel = "significant"
	ImpactModerate    ImpactLevel = "moderate"
	ImpactMinimal     ImpactLevel = "minimal"
)

// AnalyzerID identifies which analyzer produced a finding
type AnalyzerID string

const (
	AnalyzerCompliance     AnalyzerID = "compliance_analyzer"
	AnalyzerFinancial      AnalyzerID = "financial_analyzer"
	AnalyzerExternalReview AnalyzerID = "external_review_analyzer"
	AnalyzerOrchestrator   AnalyzerID = "orchestrator"
)

// PolicyReference points to a specific company policy requirement
type PolicyReference struct {
	PolicyName  string  `json:"policy_name"`
	Requirement string  `json:"requirement"`
	Section     *string `json:"section,omitempty"`
}

// AffectedClause references the clause(s) a finding applies to
type AffectedClause struct {
	ClauseID string  `json:"clause_id"`
	Heading  *string `json:"heading,omitempty"`
	Excerpt  *string `json:"excerpt,omitempty"`
}

// RemediationAction is a recommended action to address a finding
type RemediationAction struct {
	ActionType  string `json:"action_type"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// Finding represents a single discrete risk or compliance issue
type Finding struct {
	ID                  string              `json:"finding_id"`
	Type                FindingType         `json:"finding_type"`
	Domain              ComplianceDomain    `json:"domain"`
	Severity            Severity            `json:"severity"`
	Impact              ImpactLevel         `json:"impact"`
	Confidence          float64             `json:"confidence_score"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	AffectedClauses     []AffectedClause    `json:"affected_clauses"`
	PolicyViolations    []PolicyReference   `json:"policy_violations,omitempty"`
	RemediationActions  []RemediationAction `json:"remediation_actions,omitempty"`
	BusinessConsequence *string             `json:"business_consequence,omitempty"`
	Source              AnalyzerID          `json:"source"`
}

// AnalyzerResult is the normalized output of one analyzer. It is constructed
// even when the analyzer fails: empty findings and score 1.0 ("assume
// compliant on failure").
type AnalyzerResult struct {
	Findings []Finding `json:"findings"`
	Score    float64   `json:"compliance_score"`

	// Neutral marks the safe default substituted when output could not be
	// obtained or trusted. Not part of the analyzer wire format.
	Neutral bool `json:"-"`
}

// NeutralResult returns the safe default used whenever an analyzer's output
// cannot be trusted or obtained
func NeutralResult() *AnalyzerResult {
	return &AnalyzerResult{
		Findings: []Finding{},
		Score:    1.0,
		Neutral:  true,
	}
}

// Metrics holds detailed metrics about one compliance check
type Metrics struct {
	OverallScore           float64            `json:"overall_score"`
	CompletenessScore      float64            `json:"completeness_score"`
	TotalFindings          int                `json:"total_findings"`
	CriticalCount          int                `json:"critical_count"`
	HighCount              int                `json:"high_count"`
	MediumCount            int                `json:"medium_count"`
	LowCount               int                `json:"low_count"`
	DomainsAnalyzed        []ComplianceDomain `json:"domains_analyzed"`
	MissingCriticalClauses []string           `json:"missing_critical_clauses"`
}

// Report is the consolidated result of a multi-analyzer compliance check
type Report struct {
	Findings          []Finding    `json:"findings"`
	Metrics           Metrics      `json:"metrics"`
	ContractID        string       `json:"contract_id"`
	AnalysisTimestamp time.Time    `json:"analysis_timestamp"`
	AnalyzersUsed     []AnalyzerID `json:"analyzers_used"`
	ExecutiveSummary  string       `json:"executive_summary"`
	Recommendation    string       `json:"recommendation"`
	RequiredActions   []string     `json:"required_actions"`
}

// Value implements driver.Valuer for JSONB
func (r Report) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *Report) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// ClampScore clamps a score into [0,1]. Every score field is clamped before
// being stored or returned.
func ClampScore(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
