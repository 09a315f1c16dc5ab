package service

import (
	"clauseguard-backend/models"
)

// classificationRule pairs a pattern with the base risk assigned when the
// pattern matches a clause
type classificationRule struct {
	Pattern  string
	BaseRisk float64
}

// categoryRules binds a category to its ordered rule list. The table is a
// fixed slice, not a map, so evaluation order is deterministic.
type categoryRules struct {
	Category models.ClauseCategory
	Rules    []classificationRule
}

// classificationRules is the static category -> weighted pattern rule set.
// Patterns are compiled once at classifier construction and evaluated
// case-insensitively; a category's score is the max base risk among its
// matching rules.
var classificationRules = []categoryRules{
	{
		Category: models.CategoryLiability,
		Rules: []classificationRule{
			{Pattern: `liability|damages|consequential|indirect loss|limitation of`, BaseRisk: 0.8},
			{Pattern: `unlimited liability`, BaseRisk: 0.95},
			{Pattern: `exclude.*liability|liability.*excluded`, BaseRisk: 0.85},
		},
	},
	{
		Category: models.CategoryIndemnity,
		Rules: []classificationRule{
			{Pattern: `indemnify|hold harmless|indemnification`, BaseRisk: 0.75},
			{Pattern: `defend.*indemnify|indemnify.*defend`, BaseRisk: 0.8},
		},
	},
	{
		Category: models.CategoryTermination,
		Rules: []classificationRule{
			{Pattern: `terminate|termination|notice period|expiration`, BaseRisk: 0.6},
			{Pattern: `termination for convenience`, BaseRisk: 0.8},
			{Pattern: `immediate termination|terminate immediately`, BaseRisk: 0.75},
		},
	},
	{
		Category: models.CategoryConfidentiality,
		Rules: []classificationRule{
			{Pattern: `confidential|non-disclosure|proprietary information`, BaseRisk: 0.3},
			{Pattern: `survive termination`, BaseRisk: 0.4},
			{Pattern: `confidentiality obligation|confidential information`, BaseRisk: 0.35},
		},
	},
	{
		Category: models.CategoryForceMajeure,
		Rules: []classificationRule{
			{Pattern: `force majeure|act of god|unforeseen event`, BaseRisk: 0.2},
			{Pattern: `beyond.*control|circumstances beyond`, BaseRisk: 0.25},
		},
	},
	{
		Category: models.CategoryGoverningLaw,
		Rules: []classificationRule{
			{Pattern: `governing law|jurisdiction|arbitration|venue`, BaseRisk: 0.5},
			{Pattern: `exclusive jurisdiction|forum selection`, BaseRisk: 0.6},
		},
	},
	{
		Category: models.CategoryPaymentTerms,
		Rules: []classificationRule{
			{Pattern: `payment|invoice|fee|price|currency`, BaseRisk: 0.1},
			{Pattern: `late payment|interest.*overdue`, BaseRisk: 0.3},
		},
	},
	{
		Category: models.CategoryIntellectualProperty,
		Rules: []classificationRule{
			{Pattern: `intellectual property|ip rights|patent|trademark|copyright`, BaseRisk: 0.7},
			{Pattern: `work for hire|assignment of rights`, BaseRisk: 0.8},
			{Pattern: `license|licensing`, BaseRisk: 0.6},
		},
	},
	{
		Category: models.CategoryDataPrivacy,
		Rules: []classificationRule{
			{Pattern: `gdpr|ccpa|personal data|data protection|privacy`, BaseRisk: 0.8},
			{Pattern: `data breach|security incident`, BaseRisk: 0.85},
		},
	},
	{
		Category: models.CategoryWarranties,
		Rules: []classificationRule{
			{Pattern: `warrant(y|ies)|represent(ation)?s?|guarantee`, BaseRisk: 0.6},
			{Pattern: `as-is|without warranty|no warranties`, BaseRisk: 0.75},
			{Pattern: `disclaimer.*warrant`, BaseRisk: 0.7},
		},
	},
	{
		Category: models.CategoryNonCompete,
		Rules: []classificationRule{
			{Pattern: `non-compete|non-competition|restrictive covenant`, BaseRisk: 0.7},
			{Pattern: `non-solicitation`, BaseRisk: 0.65},
		},
	},
	{
		Category: models.CategoryAssignment,
		Rules: []classificationRule{
			{Pattern: `assignment|transfer|successors`, BaseRisk: 0.5},
			{Pattern: `consent.*assign|assign.*consent`, BaseRisk: 0.6},
		},
	},
	{
		Category: models.CategoryInsurance,
		Rules: []classificationRule{
			{Pattern: `insurance|coverage|policy limits`, BaseRisk: 0.6},
			{Pattern: `maintain insurance|insurance requirement`, BaseRisk: 0.65},
		},
	},
	{
		Category: models.CategoryAuditRights,
		Rules: []classificationRule{
			{Pattern: `audit|inspect|examination of records`, BaseRisk: 0.5},
			{Pattern: `audit rights|right to audit`, BaseRisk: 0.55},
		},
	},
}
