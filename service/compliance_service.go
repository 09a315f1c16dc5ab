package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"clauseguard-backend/models"
)

const (
	// Per-analyzer await bound. A timed-out analyzer is abandoned, never
	// cancelled or retried; its eventual result is not observed.
	analyzerTimeout = 30 * time.Second

	maxRequiredActions = 10
)

// ComplianceService fans a clause set out to independent analyzers, tolerates
// partial failure or timeout of any of them, and aggregates whatever
// completed into a single report with deterministic scoring
type ComplianceService struct {
	analyzers []Analyzer
	timeout   time.Duration
}

// ComplianceServiceOption is a functional option for ComplianceService
type ComplianceServiceOption func(*ComplianceService)

// ComplianceWithAnalyzers sets the analyzers run on each check, in dispatch order
func ComplianceWithAnalyzers(analyzers ...Analyzer) ComplianceServiceOption {
	return func(s *ComplianceService) {
		s.analyzers = analyzers
	}
}

// ComplianceWithTimeout overrides the per-analyzer timeout
func ComplianceWithTimeout(timeout time.Duration) ComplianceServiceOption {
	return func(s *ComplianceService) {
		s.timeout = timeout
	}
}

// NewComplianceService creates a new compliance service
func NewComplianceService(opts ...ComplianceServiceOption) *ComplianceService {
	s := &ComplianceService{
		timeout: analyzerTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckCompliance runs every configured analyzer concurrently against the
// clause set and merges their outputs into one report.
//
// Findings are merged in analyzer-dispatch order, not completion order, so
// the same analyzer set always produces a deterministic-order report. A
// failed or timed-out analyzer contributes zero findings and a neutral
// score; it never blocks the others.
func (s *ComplianceService) CheckCompliance(ctx context.Context, clauses []models.Clause, contractID string) *models.Report {
	resultChans := make([]chan *models.AnalyzerResult, len(s.analyzers))

	// 1. Dispatch every analyzer concurrently. Each task owns its own
	// buffered result slot; the join below is the only synchronization point.
	for i, analyzer := range s.analyzers {
		ch := make(chan *models.AnalyzerResult, 1)
		resultChans[i] = ch
		go func(a Analyzer, ch chan<- *models.AnalyzerResult) {
			ch <- s.runAnalyzer(ctx, a, clauses, contractID)
		}(analyzer, ch)
	}

	allFindings := make([]models.Finding, 0)
	scores := make([]float64, 0, len(s.analyzers))
	analyzersUsed := make([]models.AnalyzerID, 0, len(s.analyzers))

	// 2. Await each task in dispatch order with the bound timeout.
	for i, analyzer := range s.analyzers {
		timer := time.NewTimer(s.timeout)
		select {
		case result := <-resultChans[i]:
			timer.Stop()
			scores = append(scores, result.Score)
			if result.Neutral {
				log.Printf("Analyzer %s returned no usable output for contract %s", analyzer.Name(), contractID)
				continue
			}
			allFindings = append(allFindings, result.Findings...)
			analyzersUsed = append(analyzersUsed, analyzer.Source())
		case <-timer.C:
			log.Printf("Analyzer %s timed out after %s for contract %s", analyzer.Name(), s.timeout, contractID)
			scores = append(scores, 1.0)
		}
	}

	if len(analyzersUsed) == 0 {
		log.Printf("Warning: no analyzer produced usable output for contract %s; report defaults to compliant", contractID)
	}

	// 3. Aggregate single-threaded after every task reached a terminal state.
	return buildReport(contractID, allFindings, scores, analyzersUsed)
}

// runAnalyzer wraps one analyzer invocation and defensively recovers a typed
// result. Malformed, empty, or missing output always becomes the neutral
// result; a parse failure is never propagated to the orchestrator.
func (s *ComplianceService) runAnalyzer(ctx context.Context, analyzer Analyzer, clauses []models.Clause, contractID string) *models.AnalyzerResult {
	prompt := buildClausePrompt(clauses, contractID)

	raw, err := analyzer.Invoke(ctx, prompt)
	if err != nil {
		log.Printf("Error in analyzer %s: %v", analyzer.Name(), err)
		return models.NeutralResult()
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(strings.ToLower(raw), "unable to check") {
		return models.NeutralResult()
	}

	raw = stripCodeFences(raw)

	var result models.AnalyzerResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		log.Printf("Error parsing output of analyzer %s: %v", analyzer.Name(), err)
		return models.NeutralResult()
	}

	if result.Findings == nil {
		result.Findings = []models.Finding{}
	}
	for i := range result.Findings {
		if result.Findings[i].Source == "" {
			result.Findings[i].Source = analyzer.Source()
		}
		result.Findings[i].Confidence = models.ClampScore(result.Findings[i].Confidence)
	}
	result.Score = models.ClampScore(result.Score)

	return &result
}

// buildClausePrompt concatenates all clauses with their id and heading into
// a single prompt
func buildClausePrompt(clauses []models.Clause, contractID string) string {
	var clausesText strings.Builder
	for i, c := range clauses {
		if i > 0 {
			clausesText.WriteString("\n\n")
		}
		heading := "Untitled"
		if c.Heading != nil && *c.Heading != "" {
			heading = *c.Heading
		}
		clausesText.WriteString(fmt.Sprintf("Clause %s - %s:\n%s", c.ID, heading, c.Text))
	}

	return fmt.Sprintf(`Check these contract clauses for compliance/risks.

Contract ID: %s
Total Clauses: %d

Contract Clauses:
%s

Return JSON strictly in the format defined by your instructions.`, contractID, len(clauses), clausesText.String())
}

// stripCodeFences removes a wrapping fenced block from analyzer output: the
// first fence line and everything after the last fence marker
func stripCodeFences(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	parts := strings.SplitN(raw, "\n", 2)
	if len(parts) < 2 {
		return raw
	}
	raw = parts[1]

	if idx := strings.LastIndex(raw, "```"); idx >= 0 {
		raw = raw[:idx]
	}

	return strings.TrimSpace(raw)
}

// buildReport aggregates findings and analyzer scores into metrics, an
// executive summary, and a recommendation. Pure function of its inputs.
func buildReport(contractID string, findings []models.Finding, scores []float64, analyzersUsed []models.AnalyzerID) *models.Report {
	criticalCount := 0
	highCount := 0
	mediumCount := 0
	lowCount := 0
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityCritical:
			criticalCount++
		case models.SeverityHigh:
			highCount++
		case models.SeverityMedium:
			mediumCount++
		case models.SeverityLow:
			lowCount++
		}
	}

	// Overall score is the mean of collected scores; no completed analyzer
	// defaults to fully compliant (fail-open, flagged in DESIGN.md).
	overallScore := 1.0
	if len(scores) > 0 {
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		overallScore = sum / float64(len(scores))
	}
	overallScore = models.ClampScore(overallScore)

	missingCount := 0
	missingCritical := make([]string, 0)
	for _, f := range findings {
		if f.Type == models.FindingMissingClause {
			missingCount++
			if f.Severity == models.SeverityCritical {
				missingCritical = append(missingCritical, f.Title)
			}
		}
	}
	completenessScore := models.ClampScore(1.0 - 0.15*float64(missingCount))

	// Distinct domains in first-seen order
	domainsSeen := make(map[models.ComplianceDomain]bool)
	domains := make([]models.ComplianceDomain, 0)
	for _, f := range findings {
		if !domainsSeen[f.Domain] {
			domainsSeen[f.Domain] = true
			domains = append(domains, f.Domain)
		}
	}

	var summary, recommendation string
	switch {
	case overallScore >= 0.9:
		summary = fmt.Sprintf("Contract is highly compliant with %d findings identified. Minimal risk detected.", len(findings))
		recommendation = "APPROVE"
	case overallScore >= 0.7:
		summary = fmt.Sprintf("Contract has moderate compliance with %d findings, including %d critical issues.", len(findings), criticalCount)
		recommendation = "REVIEW_REQUIRED"
	default:
		summary = fmt.Sprintf("Contract has significant compliance issues with %d findings, including %d critical and %d high severity issues.", len(findings), criticalCount, highCount)
		recommendation = "REVIEW_REQUIRED"
	}

	requiredActions := make([]string, 0)
	for _, f := range findings {
		if f.Severity == models.SeverityCritical || f.Severity == models.SeverityHigh {
			requiredActions = append(requiredActions, f.Title)
		}
		if len(requiredActions) == maxRequiredActions {
			break
		}
	}

	return &models.Report{
		Findings: findings,
		Metrics: models.Metrics{
			OverallScore:           overallScore,
			CompletenessScore:      completenessScore,
			TotalFindings:          len(findings),
			CriticalCount:          criticalCount,
			HighCount:              highCount,
			MediumCount:            mediumCount,
			LowCount:               lowCount,
			DomainsAnalyzed:        domains,
			MissingCriticalClauses: missingCritical,
		},
		ContractID:        contractID,
		AnalysisTimestamp: time.Now(),
		AnalyzersUsed:     analyzersUsed,
		ExecutiveSummary:  summary,
		Recommendation:    recommendation,
		RequiredActions:   requiredActions,
	}
}
