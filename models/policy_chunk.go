package models

import (
	"github.com/google/uuid"
)

// PolicyChunk represents a chunk of company policy text from the knowledge base
type PolicyChunk struct {
	ID             uuid.UUID              `json:"id"`
	Text           string                 `json:"text"`
	PolicyName     string                 `json:"policy_name"`
	SourceDocument string                 `json:"source_document"`
	Section        *string                `json:"section,omitempty"`
	Domain         string                 `json:"domain"` // "legal", "financial", "data_privacy", ...
	Requirement    *string                `json:"requirement,omitempty"`
	IsMandatory    bool                   `json:"is_mandatory"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Distance       float64                `json:"distance,omitempty"` // Vector similarity distance
}
