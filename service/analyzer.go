package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"clauseguard-backend/models"
)

const (
	defaultAnalyzerModel = "gemini-2.5-flash"
	generationAPIBase    = "https://generativelanguage.googleapis.com/v1beta/models"
	maxRetries           = 3
	initialBackoff       = time.Second
	maxPromptChars       = 30000
)

var ErrGenerationFailed = errors.New("failed to generate analyzer output")

// Analyzer is one independent risk-assessment capability: it accepts a
// natural-language prompt built from a clause batch and returns free text.
// The orchestrator depends only on this interface, never on a concrete
// provider.
type Analyzer interface {
	Name() string
	Source() models.AnalyzerID
	Invoke(ctx context.Context, prompt string) (string, error)
}

// KnowledgeSearcher retrieves supporting policy text by similarity search
type KnowledgeSearcher interface {
	SearchPolicies(ctx context.Context, query string, domain string, limit int) ([]models.PolicyChunk, error)
}

// WebSearcher retrieves ranked text snippets for a query from an external
// search capability
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) (string, error)
}

// GeminiAnalyzer is an analyzer backed by the Gemini generation API,
// optionally augmented with policy knowledge retrieval or web search
type GeminiAnalyzer struct {
	name         string
	source       models.AnalyzerID
	instructions string
	apiKey       string
	model        string
	temperature  float64

	knowledge       KnowledgeSearcher
	knowledgeDomain string
	knowledgeQuery  string
	web             WebSearcher
	webQuery        string
}

// GeminiAnalyzerOption is a functional option for GeminiAnalyzer
type GeminiAnalyzerOption func(*GeminiAnalyzer)

// AnalyzerWithModel overrides the generation model id
func AnalyzerWithModel(model string) GeminiAnalyzerOption {
	return func(a *GeminiAnalyzer) {
		a.model = model
	}
}

// AnalyzerWithKnowledge attaches a policy knowledge base searched before
// each invocation; retrieved chunks are prepended to the prompt
func AnalyzerWithKnowledge(knowledge KnowledgeSearcher, domain, query string) GeminiAnalyzerOption {
	return func(a *GeminiAnalyzer) {
		a.knowledge = knowledge
		a.knowledgeDomain = domain
		a.knowledgeQuery = query
	}
}

// AnalyzerWithWebSearch attaches an external web search capability whose
// results are prepended to the prompt
func AnalyzerWithWebSearch(web WebSearcher, query string) GeminiAnalyzerOption {
	return func(a *GeminiAnalyzer) {
		a.web = web
		a.webQuery = query
	}
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer
func NewGeminiAnalyzer(name string, source models.AnalyzerID, instructions, apiKey string, opts ...GeminiAnalyzerOption) *GeminiAnalyzer {
	a := &GeminiAnalyzer{
		name:         name,
		source:       source,
		instructions: instructions,
		apiKey:       apiKey,
		model:        defaultAnalyzerModel,
		temperature:  0.2,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the analyzer's display name
func (a *GeminiAnalyzer) Name() string {
	return a.name
}

// Source returns the analyzer id stamped on findings
func (a *GeminiAnalyzer) Source() models.AnalyzerID {
	return a.source
}

// Invoke builds the full prompt (instructions, retrieved context, clause
// batch) and calls the generation API with retry
func (a *GeminiAnalyzer) Invoke(ctx context.Context, prompt string) (string, error) {
	var builder strings.Builder
	builder.WriteString(a.instructions)
	builder.WriteString("\n\n")

	if a.knowledge != nil {
		chunks, err := a.knowledge.SearchPolicies(ctx, a.knowledgeQuery, a.knowledgeDomain, 5)
		if err != nil {
			log.Printf("Warning: %s: policy retrieval failed: %v. Continuing without policy context.", a.name, err)
		} else if len(chunks) > 0 {
			builder.WriteString("COMPANY POLICIES (retrieved from knowledge base):\n")
			for _, chunk := range chunks {
				builder.WriteString(fmt.Sprintf("[%s] %s\n", chunk.PolicyName, chunk.Text))
			}
			builder.WriteString("\n")
		}
	}

	if a.web != nil {
		snippets, err := a.web.Search(ctx, a.webQuery, 5)
		if err != nil {
			log.Printf("Warning: %s: web search failed: %v. Continuing without external context.", a.name, err)
		} else if snippets != "" {
			builder.WriteString("EXTERNAL MARKET CONTEXT:\n")
			builder.WriteString(snippets)
			builder.WriteString("\n\n")
		}
	}

	builder.WriteString(prompt)

	return callGenerationAPI(ctx, a.apiKey, a.model, builder.String(), a.temperature)
}

// NewComplianceAnalyzer creates the specialist that checks clauses against
// company policies retrieved from the knowledge base
func NewComplianceAnalyzer(apiKey string, knowledge KnowledgeSearcher, opts ...GeminiAnalyzerOption) *GeminiAnalyzer {
	instructions := strings.Join([]string{
		"You are a contract compliance expert checking against company policies.",
		"Review each clause against the company policies provided above.",
		"For each issue found, create a detailed finding with:",
		"- finding_id: unique ID like 'COMP-001'",
		"- finding_type: policy_violation, missing_clause, weak_provision, legal_risk, financial_risk, or red_flag",
		"- domain: policy_compliance, legal, financial, etc.",
		"- severity: critical, high, medium, low, info",
		"- impact: severe, significant, moderate, minimal",
		"- confidence_score: 0.0-1.0",
		"- title: short descriptive title",
		"- description: detailed explanation",
		"- affected_clauses: list with clause_id, heading, excerpt",
		"- policy_violations: list of violated policies with policy_name, requirement",
		"- remediation_actions: list of actions with action_type, description, priority",
		"- business_consequence: what could happen if not fixed",
		"- source: 'compliance_analyzer'",
		"",
		"Calculate compliance score: 1.0 = fully compliant, 0.0 = completely non-compliant.",
		"Your output MUST be a JSON object: {\"findings\": [...], \"compliance_score\": 0.85}",
	}, "\n")

	baseOpts := []GeminiAnalyzerOption{
		AnalyzerWithKnowledge(knowledge, "policy_compliance", "contract clause compliance requirements"),
	}
	return NewGeminiAnalyzer("ComplianceChecker", models.AnalyzerCompliance, instructions, apiKey, append(baseOpts, opts...)...)
}

// NewFinancialAnalyzer creates the specialist that checks clauses for
// financial and cost-protection risks
func NewFinancialAnalyzer(apiKey string, knowledge KnowledgeSearcher, opts ...GeminiAnalyzerOption) *GeminiAnalyzer {
	instructions := strings.Join([]string{
		"You are a financial risk expert checking contract clauses against company policies.",
		"Review each clause for financial risks, missing cost protections, and payment term issues.",
		"For each issue found, create a detailed finding with:",
		"- finding_id: unique ID like 'FIN-001'",
		"- finding_type: financial_risk, missing_clause, weak_provision, etc.",
		"- domain: financial, payment_terms",
		"- severity: critical, high, medium, low, info",
		"- impact: severe, significant, moderate, minimal",
		"- confidence_score: 0.0-1.0",
		"- title: short descriptive title",
		"- description: detailed explanation",
		"- affected_clauses: list with clause_id, heading, excerpt",
		"- policy_violations: list of violated policies with policy_name, requirement",
		"- remediation_actions: list of actions with action_type, description, priority",
		"- business_consequence: financial impact if not fixed",
		"- source: 'financial_analyzer'",
		"",
		"Calculate compliance score: 1.0 = fully compliant, 0.0 = completely non-compliant.",
		"Your output MUST be a JSON object: {\"findings\": [...], \"compliance_score\": 0.85}",
	}, "\n")

	baseOpts := []GeminiAnalyzerOption{
		AnalyzerWithKnowledge(knowledge, "financial", "financial risk and payment term policies"),
	}
	return NewGeminiAnalyzer("FinancialRiskAnalyzer", models.AnalyzerFinancial, instructions, apiKey, append(baseOpts, opts...)...)
}

// NewExternalReviewAnalyzer creates the independent auditor that looks for
// risks and missing provisions beyond company policies, using web search for
// market standards
func NewExternalReviewAnalyzer(apiKey string, web WebSearcher, opts ...GeminiAnalyzerOption) *GeminiAnalyzer {
	instructions := strings.Join([]string{
		"You are an independent risk auditor identifying risks and missing provisions BEYOND company policies.",
		"Focus on market standards, legal gaps, missing clauses, and commercially unfavorable terms.",
		"Use the external market context above to compare against industry standards.",
		"For each issue found, create a detailed finding with:",
		"- finding_id: unique ID like 'EXT-001'",
		"- finding_type: legal_risk, missing_clause, red_flag",
		"- domain: legal, data_privacy, dispute_resolution, etc.",
		"- severity: critical, high, medium, low, info",
		"- impact: severe, significant, moderate, minimal",
		"- confidence_score: 0.0-1.0",
		"- title: short descriptive title",
		"- description: detailed explanation",
		"- affected_clauses: list with clause_id, heading, excerpt (or 'Missing Provision')",
		"- remediation_actions: list of actions with action_type, description, priority",
		"- business_consequence: what could happen if not fixed",
		"- source: 'external_review_analyzer'",
		"",
		"Calculate compliance score: 1.0 = fully compliant, 0.0 = completely non-compliant.",
		"Your output MUST be a JSON object: {\"findings\": [...], \"compliance_score\": 0.85}",
	}, "\n")

	baseOpts := []GeminiAnalyzerOption{
		AnalyzerWithWebSearch(web, "standard commercial contract clauses market practice"),
	}
	return NewGeminiAnalyzer("ExternalRiskReviewer", models.AnalyzerExternalReview, instructions, apiKey, append(baseOpts, opts...)...)
}

// callGenerationAPI calls the Gemini generation API directly via HTTP with
// retry and exponential backoff
func callGenerationAPI(ctx context.Context, apiKey, model, prompt string, temperature float64) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	}

	// Truncate prompt if too long to avoid context limits
	if len(prompt) > maxPromptChars {
		log.Printf("Warning: Prompt too long (%d chars), truncating to %d chars", len(prompt), maxPromptChars)
		prompt = prompt[:maxPromptChars] + "\n\n[Content truncated due to length...]"
	}

	var content string
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		content, lastErr = doGenerationRequest(ctx, apiKey, model, prompt, temperature)
		if lastErr == nil && content != "" {
			return content, nil
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to generate content after %d attempts: %w", maxRetries, lastErr)
	}
	return "", ErrGenerationFailed
}

// doGenerationRequest performs one generation API call and defensively
// decodes the response
func doGenerationRequest(ctx context.Context, apiKey, model, prompt string, temperature float64) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature": temperature,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", generationAPIBase, model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Printf("Gemini API error: Status %d, Body: %s", resp.StatusCode, string(bodyBytes))
		return "", fmt.Errorf("API error: %d", resp.StatusCode)
	}

	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
		Error struct {
			Code    int    `json:"code,omitempty"`
			Message string `json:"message,omitempty"`
		} `json:"error,omitempty"`
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		log.Printf("Failed to decode response. Body: %s", string(bodyBytes))
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Error.Message != "" {
		return "", fmt.Errorf("API error: %s (code: %d)", apiResp.Error.Message, apiResp.Error.Code)
	}

	if apiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("API blocked prompt: %s", apiResp.PromptFeedback.BlockReason)
	}

	if len(apiResp.Candidates) == 0 {
		log.Printf("API returned no candidates. Full response: %s", string(bodyBytes))
		return "", fmt.Errorf("API returned no candidates")
	}

	var responseText strings.Builder
	for i, candidate := range apiResp.Candidates {
		// Log finish reason if present (e.g., SAFETY, RECITATION)
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			log.Printf("Warning: Candidate %d finished with reason: %s", i, candidate.FinishReason)
		}

		for j, part := range candidate.Content.Parts {
			if part.Text == "" {
				log.Printf("Warning: Candidate %d, part %d has empty text", i, j)
				continue
			}
			responseText.WriteString(part.Text)
		}
	}

	result := responseText.String()
	if result == "" {
		return "", fmt.Errorf("API returned empty content")
	}

	return result, nil
}
