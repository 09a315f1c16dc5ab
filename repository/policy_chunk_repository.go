package repository

import (
	"context"
	"fmt"
	"strings"

	"clauseguard-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PolicyChunkRepository handles database operations for policy chunks
type PolicyChunkRepository struct {
	db *pgxpool.Pool
}

// NewPolicyChunkRepository creates a new policy chunk repository
func NewPolicyChunkRepository(db *pgxpool.Pool) *PolicyChunkRepository {
	return &PolicyChunkRepository{db: db}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Insert stores one policy chunk with its embedding
func (r *PolicyChunkRepository) Insert(ctx context.Context, chunk *models.PolicyChunk, embedding []float64) error {
	if len(embedding) != 768 {
		return fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}

	query := `
		INSERT INTO policy_chunks (
			chunk_text, policy_name, source_document, section, domain,
			requirement, is_mandatory, metadata, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
		RETURNING id`

	return r.db.QueryRow(
		ctx, query,
		chunk.Text,
		chunk.PolicyName,
		chunk.SourceDocument,
		chunk.Section,
		chunk.Domain,
		chunk.Requirement,
		chunk.IsMandatory,
		chunk.Metadata,
		formatVector(embedding),
	).Scan(&chunk.ID)
}

// DeleteBySourceDocument removes all chunks indexed from one source document,
// used before re-indexing it
func (r *PolicyChunkRepository) DeleteBySourceDocument(ctx context.Context, sourceDocument string) error {
	query := `DELETE FROM policy_chunks WHERE source_document = $1`
	_, err := r.db.Exec(ctx, query, sourceDocument)
	return err
}

// SearchByDomain performs a vector search for policy chunks
// embedding: Query embedding vector (768 dimensions)
// domain: Policy domain filter ("policy_compliance", "financial", ...), empty for all domains
// limit: Maximum number of chunks to return
func (r *PolicyChunkRepository) SearchByDomain(
	ctx context.Context,
	embedding []float64,
	domain string,
	limit int,
) ([]models.PolicyChunk, error) {
	if len(embedding) != 768 {
		return nil, fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}

	vectorStr := formatVector(embedding)

	// Handle empty domain as an unfiltered search
	var domainFilter string
	var args []interface{}
	if domain == "" {
		domainFilter = "TRUE"
		args = []interface{}{vectorStr, limit}
	} else {
		domainFilter = "domain = $2"
		args = []interface{}{vectorStr, domain, limit}
	}

	query := fmt.Sprintf(`
		SELECT
			id,
			chunk_text,
			policy_name,
			source_document,
			section,
			domain,
			requirement,
			is_mandatory,
			metadata,
			embedding <=> $1::vector AS distance
		FROM policy_chunks
		WHERE %s
		ORDER BY
			embedding <=> $1::vector
		LIMIT $%d`, domainFilter, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.PolicyChunk
	for rows.Next() {
		var chunk models.PolicyChunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.Text,
			&chunk.PolicyName,
			&chunk.SourceDocument,
			&chunk.Section,
			&chunk.Domain,
			&chunk.Requirement,
			&chunk.IsMandatory,
			&chunk.Metadata,
			&chunk.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policy chunks: %w", err)
	}

	return chunks, nil
}
