package service

import (
	"strings"
	"testing"

	"clauseguard-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clause(id, text string) models.Clause {
	return models.Clause{ID: id, Text: text}
}

func TestClassifyBoilerplateFallback(t *testing.T) {
	c := NewClassifier()

	results := c.Classify([]models.Clause{
		clause("1", "The headings in this document are for convenience only."),
	})

	require.Len(t, results, 1)
	assert.Equal(t, models.CategoryStandardBoilerplate, results[0].Category)
	assert.Equal(t, 0.1, results[0].RiskScore)
	assert.Equal(t, 0.9, results[0].Confidence)
}

func TestClassifySingleCategoryConfidence(t *testing.T) {
	c := NewClassifier()

	results := c.Classify([]models.Clause{
		clause("1", "The Receiving Party shall keep all Confidential Information in strict confidence."),
	})

	require.Len(t, results, 1)
	assert.Equal(t, models.CategoryConfidentiality, results[0].Category)
	// Only one category matched, so confidence is the fixed single-match value
	assert.Equal(t, 0.95, results[0].Confidence)
	assert.InDelta(t, 0.35, results[0].RiskScore, 1e-9)
}

func TestClassifyConfidenceFromScoreGap(t *testing.T) {
	c := NewClassifier()

	results := c.Classify([]models.Clause{
		clause("1", "Either party may terminate this contract and shall bear no liability for damages."),
	})

	require.Len(t, results, 1)
	assert.Equal(t, models.CategoryLiability, results[0].Category)
	// LIABILITY 0.8 vs TERMINATION 0.6: confidence = 0.5 + 0.2*0.5
	assert.InDelta(t, 0.6, results[0].Confidence, 1e-9)
	assert.InDelta(t, 0.8, results[0].RiskScore, 1e-9)

	require.NotEmpty(t, results[0].AlternativeCategories)
	assert.Equal(t, models.CategoryTermination, results[0].AlternativeCategories[0].Category)
}

func TestClassifyContextAdjustmentsAreMultiplicative(t *testing.T) {
	c := NewClassifier()

	results := c.Classify([]models.Clause{
		clause("1", "The Supplier accepts liability for direct losses."),
		clause("2", "This contract remains in force until the notice period has elapsed."),
		clause("3", "Notwithstanding the foregoing, the parties shall cooperate."),
	})

	require.Len(t, results, 3)

	middle := results[1]
	assert.Equal(t, models.CategoryTermination, middle.Category)
	assert.Contains(t, middle.ContextFlags, models.FlagAdjacentHighRisk)
	assert.Contains(t, middle.ContextFlags, models.FlagFollowedByException)
	// 0.6 * 1.15 * 1.10
	assert.InDelta(t, 0.759, middle.RiskScore, 1e-9)
}

func TestClassifyRiskIsClampedToOne(t *testing.T) {
	c := NewClassifier()

	long := "The Customer assumes unlimited liability for any losses. " + strings.Repeat("Further detail follows. ", 30)
	results := c.Classify([]models.Clause{
		clause("1", "All damages claims are subject to indemnify obligations."),
		clause("2", long),
		clause("3", "Except as provided that the parties agree otherwise."),
	})

	require.Len(t, results, 3)
	middle := results[1]
	assert.Contains(t, middle.ContextFlags, models.FlagLengthyClause)
	assert.Equal(t, 1.0, middle.RiskScore)
}

func TestClassifyStructuralFlags(t *testing.T) {
	c := NewClassifier()

	results := c.Classify([]models.Clause{
		clause("1", `"Confidential Information" means any data disclosed under Section 3 of this contract.`),
	})

	require.Len(t, results, 1)
	assert.Contains(t, results[0].ContextFlags, models.FlagContainsDefinition)
	assert.Contains(t, results[0].ContextFlags, models.FlagContainsCrossReference)
}

func TestClassifyFirstAndLastClauseSkipMissingNeighbors(t *testing.T) {
	c := NewClassifier()

	results := c.Classify([]models.Clause{
		clause("1", "The Supplier accepts liability for direct losses."),
		clause("2", "Notwithstanding anything herein, delivery dates are estimates."),
	})

	require.Len(t, results, 2)
	// First clause has no predecessor, so no adjacent_high_risk flag even
	// though it is itself a liability clause
	assert.NotContains(t, results[0].ContextFlags, models.FlagAdjacentHighRisk)
	// Last clause has no successor
	assert.NotContains(t, results[1].ContextFlags, models.FlagFollowedByException)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier()

	clauses := []models.Clause{
		clause("1", "The Supplier shall indemnify and hold harmless the Customer."),
		clause("2", "Either party may terminate this contract upon thirty days notice period."),
		clause("3", "All personal data shall be processed in accordance with GDPR."),
	}

	first := c.Classify(clauses)
	second := c.Classify(clauses)

	assert.Equal(t, first, second)
}

func TestClassifyEmptyInput(t *testing.T) {
	c := NewClassifier()

	results := c.Classify([]models.Clause{})

	require.NotNil(t, results)
	assert.Empty(t, results)
}

func TestGenerateRiskSummaryBands(t *testing.T) {
	assert.Contains(t,
		generateRiskSummary(models.CategoryLiability, 0.95, nil, 0.9),
		"CRITICAL")
	assert.Contains(t,
		generateRiskSummary(models.CategoryIndemnity, 0.8, nil, 0.9),
		"One-sided indemnification")
	// Low confidence overrides the generic bands
	assert.Contains(t,
		generateRiskSummary(models.CategoryAssignment, 0.9, nil, 0.5),
		"UNCERTAIN")
	assert.Contains(t,
		generateRiskSummary(models.CategoryStandardBoilerplate, 0.1, nil, 0.9),
		"LOW:")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	c := NewClassifier()

	raw := "  The Parties AGREE, (subject to Section 2); that..."
	once := c.normalize(raw)
	twice := c.normalize(once)

	assert.Equal(t, once, c.normalize(raw))
	assert.Equal(t, once, twice)
	assert.Equal(t, "the parties agree subject to section 2 that", once)
}
