package models

import (
	"time"

	"github.com/google/uuid"
)

// ContractStatus represents the lifecycle status of a contract
type ContractStatus string

const (
	ContractStatusUploaded   ContractStatus = "uploaded"
	ContractStatusProcessing ContractStatus = "processing"
	ContractStatusAnalyzed   ContractStatus = "analyzed"
	ContractStatusFailed     ContractStatus = "failed"
)

// Contract represents an uploaded contract under review
type Contract struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	Title        string            `json:"title"`
	Counterparty *string           `json:"counterparty,omitempty"`
	Status       ContractStatus    `json:"status"`
	FileID       *uuid.UUID        `json:"file_id,omitempty"`
	OriginalText *string           `json:"original_text,omitempty"`
	Clauses      ClassifiedClauses `json:"clauses"`
	Report       *Report           `json:"report,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	AnalyzedAt   *time.Time        `json:"analyzed_at,omitempty"`
}
