package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"clauseguard-backend/models"
)

var ErrSegmentationFailed = errors.New("failed to extract clauses from contract text")

// Segmenter extracts an ordered, hierarchical clause list from raw contract
// text using the generation API
type Segmenter struct {
	apiKey string
	model  string
}

// NewSegmenter creates a new segmenter
func NewSegmenter(apiKey string) *Segmenter {
	return &Segmenter{
		apiKey: apiKey,
		model:  defaultAnalyzerModel,
	}
}

// segmentationResponse is the structured extraction result expected from the model
type segmentationResponse struct {
	Clauses      []models.Clause `json:"clauses"`
	TotalClauses int             `json:"total_clauses"`
}

// ExtractClauses segments contract text into ordered clauses. Clause order
// is preserved exactly as returned; downstream context analysis depends on it.
func (s *Segmenter) ExtractClauses(ctx context.Context, contractText string) ([]models.Clause, error) {
	prompt := fmt.Sprintf(`Extract ALL clauses from the contract below with hierarchical structure.
- Identify clause IDs based on numbering (1, 1.1, 2.3.4, etc.).
- Detect headings and titles for each clause.
- Determine hierarchical level (0=root, 1=main, 2=sub, etc.).
- Maintain original text exactly as written.
- If no numbering exists, create logical structure.
- Don't skip any clauses.

Your output MUST be a JSON object:
{"clauses": [{"clause_id": "1.1", "text": "...", "heading": "...", "level": 1}], "total_clauses": 2}

CONTRACT TEXT:
%s`, contractText)

	raw, err := callGenerationAPI(ctx, s.apiKey, s.model, prompt, 0.1)
	if err != nil {
		return nil, fmt.Errorf("clause extraction call failed: %w", err)
	}

	raw = stripCodeFences(strings.TrimSpace(raw))

	var parsed segmentationResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentationFailed, err)
	}

	if len(parsed.Clauses) == 0 {
		return nil, ErrSegmentationFailed
	}

	return parsed.Clauses, nil
}
