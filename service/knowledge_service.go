package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"clauseguard-backend/models"
	"clauseguard-backend/repository"
)

var ErrEmbeddingFailed = errors.New("failed to generate embedding")

const embeddingAPI = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"

// KnowledgeService retrieves company policy chunks by vector similarity,
// embedding the query text through the Gemini embedding API
type KnowledgeService struct {
	policyChunkRepo *repository.PolicyChunkRepository
	apiKey          string
}

// NewKnowledgeService creates a new knowledge service
func NewKnowledgeService(policyChunkRepo *repository.PolicyChunkRepository, apiKey string) *KnowledgeService {
	return &KnowledgeService{
		policyChunkRepo: policyChunkRepo,
		apiKey:          apiKey,
	}
}

// EmbeddingRequest represents an embedding API request
type EmbeddingRequest struct {
	Model                string       `json:"model"`
	Content              ContentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

// ContentInput represents content for embedding
type ContentInput struct {
	Parts []PartInput `json:"parts"`
}

// PartInput represents a part of content
type PartInput struct {
	Text string `json:"text"`
}

// EmbeddingResponse represents an embedding API response
type EmbeddingResponse struct {
	Embedding EmbeddingData `json:"embedding"`
}

// EmbeddingData contains the embedding values
type EmbeddingData struct {
	Values []float64 `json:"values"`
}

// SearchPolicies embeds the query and returns the closest policy chunks in
// the given domain
func (s *KnowledgeService) SearchPolicies(ctx context.Context, query string, domain string, limit int) ([]models.PolicyChunk, error) {
	if s.policyChunkRepo == nil {
		return nil, errors.New("policy chunk repository not set")
	}

	queryText := query
	if domain != "" {
		queryText = fmt.Sprintf("[DOMAIN: %s] %s", domain, query)
	}

	embedding, err := GenerateQueryEmbedding(ctx, s.apiKey, queryText, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	return s.policyChunkRepo.SearchByDomain(ctx, embedding, domain, limit)
}

// GenerateQueryEmbedding generates a normalized 768-dimension embedding for
// the given text with retry and exponential backoff
func GenerateQueryEmbedding(ctx context.Context, apiKey, text, taskType string) ([]float64, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	reqBody := EmbeddingRequest{
		Model: "models/gemini-embedding-001",
		Content: ContentInput{
			Parts: []PartInput{{Text: text}},
		},
		TaskType:             taskType,
		OutputDimensionality: 768,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var embedding []float64
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", embeddingAPI, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", apiKey)

		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var apiResp EmbeddingResponse
			if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
				resp.Body.Close()
				if attempt == maxRetries-1 {
					return nil, fmt.Errorf("failed to decode response: %w", err)
				}
				continue
			}
			resp.Body.Close()

			embedding = apiResp.Embedding.Values
			// Normalize embedding
			norm := 0.0
			for _, v := range embedding {
				norm += v * v
			}
			norm = math.Sqrt(norm)
			if norm > 0 {
				for i := range embedding {
					embedding[i] /= norm
				}
			}

			return embedding, nil
		}

		resp.Body.Close()

		// Don't retry on 400 or 401 errors
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("API error: %d", resp.StatusCode)
		}

		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("API error after %d attempts: %d", maxRetries, resp.StatusCode)
		}
	}

	return nil, ErrEmbeddingFailed
}
