package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"clauseguard-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAnalyzer is a canned analyzer for orchestrator tests
type stubAnalyzer struct {
	name   string
	source models.AnalyzerID
	output string
	err    error
	delay  time.Duration
}

func (s *stubAnalyzer) Name() string              { return s.name }
func (s *stubAnalyzer) Source() models.AnalyzerID { return s.source }

func (s *stubAnalyzer) Invoke(ctx context.Context, prompt string) (string, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.output, s.err
}

func findingJSON(id string, severity models.Severity, score float64) string {
	return fmt.Sprintf(`{
		"findings": [{
			"finding_id": %q,
			"finding_type": "legal_risk",
			"domain": "legal",
			"severity": %q,
			"impact": "moderate",
			"confidence_score": 0.9,
			"title": "Finding %s",
			"description": "test",
			"affected_clauses": []
		}],
		"compliance_score": %v
	}`, id, severity, id, score)
}

func testClauses() []models.Clause {
	heading := "Liability"
	return []models.Clause{
		{ID: "1", Text: "The Supplier accepts unlimited liability.", Heading: &heading},
	}
}

func TestCheckComplianceMergesInDispatchOrder(t *testing.T) {
	// The slower analyzer is dispatched first; its findings must still come
	// first in the merged report
	slow := &stubAnalyzer{
		name:   "slow",
		source: models.AnalyzerCompliance,
		output: findingJSON("A-1", models.SeverityHigh, 0.6),
		delay:  50 * time.Millisecond,
	}
	fast := &stubAnalyzer{
		name:   "fast",
		source: models.AnalyzerFinancial,
		output: findingJSON("B-1", models.SeverityMedium, 0.8),
	}

	s := NewComplianceService(ComplianceWithAnalyzers(slow, fast))
	report := s.CheckCompliance(context.Background(), testClauses(), "contract-1")

	require.Len(t, report.Findings, 2)
	assert.Equal(t, "A-1", report.Findings[0].ID)
	assert.Equal(t, "B-1", report.Findings[1].ID)
	assert.Equal(t, []models.AnalyzerID{models.AnalyzerCompliance, models.AnalyzerFinancial}, report.AnalyzersUsed)
	assert.InDelta(t, 0.7, report.Metrics.OverallScore, 1e-9)
}

func TestCheckComplianceTimedOutAnalyzerIsNeutral(t *testing.T) {
	hung := &stubAnalyzer{
		name:   "hung",
		source: models.AnalyzerCompliance,
		output: findingJSON("A-1", models.SeverityCritical, 0.1),
		delay:  500 * time.Millisecond,
	}
	fast := &stubAnalyzer{
		name:   "fast",
		source: models.AnalyzerFinancial,
		output: findingJSON("B-1", models.SeverityLow, 0.8),
	}

	s := NewComplianceService(
		ComplianceWithAnalyzers(hung, fast),
		ComplianceWithTimeout(50*time.Millisecond),
	)
	report := s.CheckCompliance(context.Background(), testClauses(), "contract-1")

	// The timed-out analyzer contributes no findings and a neutral score
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "B-1", report.Findings[0].ID)
	assert.Equal(t, []models.AnalyzerID{models.AnalyzerFinancial}, report.AnalyzersUsed)
	assert.InDelta(t, 0.9, report.Metrics.OverallScore, 1e-9)
}

func TestCheckComplianceAllAnalyzersFail(t *testing.T) {
	failing := &stubAnalyzer{
		name:   "failing",
		source: models.AnalyzerCompliance,
		err:    errors.New("boom"),
	}
	refusing := &stubAnalyzer{
		name:   "refusing",
		source: models.AnalyzerFinancial,
		output: "I am Unable to Check these clauses.",
	}
	garbled := &stubAnalyzer{
		name:   "garbled",
		source: models.AnalyzerExternalReview,
		output: "{not json at all",
	}

	s := NewComplianceService(ComplianceWithAnalyzers(failing, refusing, garbled))
	report := s.CheckCompliance(context.Background(), testClauses(), "contract-1")

	assert.Empty(t, report.Findings)
	assert.Empty(t, report.AnalyzersUsed)
	assert.Equal(t, 1.0, report.Metrics.OverallScore)
	assert.Equal(t, "APPROVE", report.Recommendation)
}

func TestCheckComplianceParsesFencedOutput(t *testing.T) {
	fenced := &stubAnalyzer{
		name:   "fenced",
		source: models.AnalyzerCompliance,
		output: "```json\n" + findingJSON("A-1", models.SeverityHigh, 0.5) + "\n```",
	}

	s := NewComplianceService(ComplianceWithAnalyzers(fenced))
	report := s.CheckCompliance(context.Background(), testClauses(), "contract-1")

	require.Len(t, report.Findings, 1)
	assert.Equal(t, "A-1", report.Findings[0].ID)
	assert.InDelta(t, 0.5, report.Metrics.OverallScore, 1e-9)
}

func TestCheckComplianceStampsMissingSource(t *testing.T) {
	anon := &stubAnalyzer{
		name:   "anon",
		source: models.AnalyzerExternalReview,
		output: `{"findings": [{"finding_id": "X-1", "finding_type": "red_flag", "domain": "legal", "severity": "high", "title": "t", "description": "d", "confidence_score": 1.7}], "compliance_score": 0.4}`,
	}

	s := NewComplianceService(ComplianceWithAnalyzers(anon))
	report := s.CheckCompliance(context.Background(), testClauses(), "contract-1")

	require.Len(t, report.Findings, 1)
	assert.Equal(t, models.AnalyzerExternalReview, report.Findings[0].Source)
	// Out-of-range confidence is clamped
	assert.Equal(t, 1.0, report.Findings[0].Confidence)
}

func TestCheckComplianceRequiredActionsCap(t *testing.T) {
	findings := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		findings = append(findings, fmt.Sprintf(`{
			"finding_id": "C-%d",
			"finding_type": "policy_violation",
			"domain": "policy_compliance",
			"severity": "critical",
			"impact": "severe",
			"confidence_score": 0.9,
			"title": "Critical issue %d",
			"description": "test",
			"affected_clauses": []
		}`, i, i))
	}
	output := fmt.Sprintf(`{"findings": [%s], "compliance_score": 0.2}`, strings.Join(findings, ","))

	noisy := &stubAnalyzer{name: "noisy", source: models.AnalyzerCompliance, output: output}

	s := NewComplianceService(ComplianceWithAnalyzers(noisy))
	report := s.CheckCompliance(context.Background(), testClauses(), "contract-1")

	assert.Len(t, report.Findings, 15)
	assert.Len(t, report.RequiredActions, 10)
	assert.Equal(t, 15, report.Metrics.CriticalCount)
	assert.Equal(t, "REVIEW_REQUIRED", report.Recommendation)
}

func TestCheckComplianceNoAnalyzers(t *testing.T) {
	s := NewComplianceService()
	report := s.CheckCompliance(context.Background(), testClauses(), "contract-1")

	assert.Empty(t, report.Findings)
	assert.Equal(t, 1.0, report.Metrics.OverallScore)
	assert.Equal(t, "APPROVE", report.Recommendation)
}

func TestBuildReportCompletenessScore(t *testing.T) {
	findings := []models.Finding{
		{ID: "M-1", Type: models.FindingMissingClause, Severity: models.SeverityCritical, Title: "No limitation of liability", Domain: models.DomainLegal},
		{ID: "M-2", Type: models.FindingMissingClause, Severity: models.SeverityMedium, Title: "No audit clause", Domain: models.DomainFinancial},
		{ID: "P-1", Type: models.FindingPolicyViolation, Severity: models.SeverityHigh, Title: "Payment terms too long", Domain: models.DomainPaymentTerms},
	}

	report := buildReport("contract-1", findings, []float64{0.8}, []models.AnalyzerID{models.AnalyzerCompliance})

	assert.InDelta(t, 0.7, report.Metrics.CompletenessScore, 1e-9)
	assert.Equal(t, []string{"No limitation of liability"}, report.Metrics.MissingCriticalClauses)
	// Domains listed in first-seen order
	assert.Equal(t,
		[]models.ComplianceDomain{models.DomainLegal, models.DomainFinancial, models.DomainPaymentTerms},
		report.Metrics.DomainsAnalyzed)
	// Critical and high findings become required actions
	assert.Equal(t, []string{"No limitation of liability", "Payment terms too long"}, report.RequiredActions)
}

func TestBuildReportSummaryBands(t *testing.T) {
	high := buildReport("c", nil, []float64{0.95}, nil)
	assert.Equal(t, "APPROVE", high.Recommendation)
	assert.Contains(t, high.ExecutiveSummary, "highly compliant")

	moderate := buildReport("c", nil, []float64{0.75}, nil)
	assert.Equal(t, "REVIEW_REQUIRED", moderate.Recommendation)
	assert.Contains(t, moderate.ExecutiveSummary, "moderate compliance")

	low := buildReport("c", nil, []float64{0.3}, nil)
	assert.Equal(t, "REVIEW_REQUIRED", low.Recommendation)
	assert.Contains(t, low.ExecutiveSummary, "significant compliance issues")
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	// Unfenced content passes through untouched
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
	// A fence with no newline is left alone rather than mangled
	assert.Equal(t, "```", stripCodeFences("```"))
}

func TestBuildClausePrompt(t *testing.T) {
	heading := "Termination"
	prompt := buildClausePrompt([]models.Clause{
		{ID: "1", Text: "first clause"},
		{ID: "2", Text: "second clause", Heading: &heading},
	}, "contract-9")

	assert.Contains(t, prompt, "Contract ID: contract-9")
	assert.Contains(t, prompt, "Total Clauses: 2")
	assert.Contains(t, prompt, "Clause 1 - Untitled:\nfirst clause")
	assert.Contains(t, prompt, "Clause 2 - Termination:\nsecond clause")
}
