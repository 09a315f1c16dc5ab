package service

import (
	"testing"

	"clauseguard-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleIDs(flags []models.RuleFlag) []string {
	ids := make([]string, 0, len(flags))
	for _, f := range flags {
		ids = append(ids, f.RuleID)
	}
	return ids
}

func TestRuleEngineUnlimitedLiability(t *testing.T) {
	e := NewRuleEngine()

	flags := e.Apply("The Supplier accepts UNLIMITED LIABILITY for all claims.", models.CategoryLiability)
	assert.Contains(t, ruleIDs(flags), "R001")

	flags = e.Apply("Liability is capped at the fees paid.", models.CategoryLiability)
	assert.NotContains(t, ruleIDs(flags), "R001")
}

func TestRuleEngineOneSidedTermination(t *testing.T) {
	e := NewRuleEngine()

	flags := e.Apply("Party A may terminate this contract at any time. Party B cannot terminate.", models.CategoryTermination)
	assert.Contains(t, ruleIDs(flags), "R002")

	flags = e.Apply("Either party may terminate upon thirty days notice.", models.CategoryTermination)
	assert.NotContains(t, ruleIDs(flags), "R002")
}

func TestRuleEngineIndemnityMissingOperativeWord(t *testing.T) {
	e := NewRuleEngine()

	flags := e.Apply("Each party shall hold harmless the other from third-party claims.", models.CategoryIndemnity)
	assert.Contains(t, ruleIDs(flags), "R003")

	flags = e.Apply("Each party shall indemnify and hold harmless the other.", models.CategoryIndemnity)
	assert.NotContains(t, ruleIDs(flags), "R003")

	// Rule only applies to indemnity clauses
	flags = e.Apply("Each party shall hold harmless the other from third-party claims.", models.CategoryLiability)
	assert.NotContains(t, ruleIDs(flags), "R003")
}

func TestRuleEngineBareMonetaryAmount(t *testing.T) {
	e := NewRuleEngine()

	flags := e.Apply("A penalty of 50000 applies to late delivery.", models.CategoryPaymentTerms)
	assert.Contains(t, ruleIDs(flags), "R004")

	// Currency-denominated amounts do not trigger
	flags = e.Apply("A penalty of $50000 applies to late delivery.", models.CategoryPaymentTerms)
	assert.NotContains(t, ruleIDs(flags), "R004")

	flags = e.Apply("A penalty of €50000 applies to late delivery.", models.CategoryPaymentTerms)
	assert.NotContains(t, ruleIDs(flags), "R004")

	// Short numbers do not trigger
	flags = e.Apply("Payment is due within 30 days.", models.CategoryPaymentTerms)
	assert.NotContains(t, ruleIDs(flags), "R004")
}

func TestRuleEngineEmptyText(t *testing.T) {
	e := NewRuleEngine()

	flags := e.Apply("", models.CategoryLiability)
	require.NotNil(t, flags)
	assert.Empty(t, flags)
}

func TestRuleEngineMultipleFlags(t *testing.T) {
	e := NewRuleEngine()

	flags := e.Apply(
		"The Customer accepts unlimited liability and a penalty of 25000 for breach.",
		models.CategoryLiability,
	)

	ids := ruleIDs(flags)
	assert.Contains(t, ids, "R001")
	assert.Contains(t, ids, "R004")
}
