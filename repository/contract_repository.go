package repository

import (
	"context"
	"fmt"
	"time"

	"clauseguard-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContractRepository handles database operations for contracts
type ContractRepository struct {
	db *pgxpool.Pool
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create creates a new contract
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	query := `
		INSERT INTO contracts (
			user_id, title, counterparty, status, file_id, original_text,
			clauses, report
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		) RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		contract.UserID,
		contract.Title,
		contract.Counterparty,
		contract.Status,
		contract.FileID,
		contract.OriginalText,
		contract.Clauses,
		contract.Report,
	).Scan(&contract.ID, &contract.CreatedAt, &contract.UpdatedAt)

	return err
}

// GetByID retrieves a contract by ID
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract := &models.Contract{}
	query := `
		SELECT id, user_id, title, counterparty, status, file_id, original_text,
			clauses, report, created_at, updated_at, analyzed_at
		FROM contracts
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&contract.ID,
		&contract.UserID,
		&contract.Title,
		&contract.Counterparty,
		&contract.Status,
		&contract.FileID,
		&contract.OriginalText,
		&contract.Clauses,
		&contract.Report,
		&contract.CreatedAt,
		&contract.UpdatedAt,
		&contract.AnalyzedAt,
	)

	if err != nil {
		return nil, err
	}

	return contract, nil
}

// Update updates a contract
func (r *ContractRepository) Update(ctx context.Context, contract *models.Contract) error {
	query := `
		UPDATE contracts SET
			title = $2,
			counterparty = $3,
			status = $4,
			file_id = $5,
			original_text = $6,
			clauses = $7,
			report = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(
		ctx, query,
		contract.ID,
		contract.Title,
		contract.Counterparty,
		contract.Status,
		contract.FileID,
		contract.OriginalText,
		contract.Clauses,
		contract.Report,
	).Scan(&contract.UpdatedAt)

	return err
}

// UpdateStatus updates only the contract status
func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ContractStatus) error {
	query := `
		UPDATE contracts SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// UpdateAnalysis stores the classified clauses and the final report,
// marking the contract analyzed
func (r *ContractRepository) UpdateAnalysis(ctx context.Context, id uuid.UUID, clauses models.ClassifiedClauses, report *models.Report) error {
	now := time.Now()
	query := `
		UPDATE contracts SET
			status = $2,
			clauses = $3,
			report = $4,
			analyzed_at = $5,
			updated_at = $5
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.ContractStatusAnalyzed, clauses, report, now)
	return err
}

// ListByUserID retrieves all contracts for a user
func (r *ContractRepository) ListByUserID(ctx context.Context, userID uuid.UUID, status *models.ContractStatus, limit, offset int) ([]*models.Contract, error) {
	query := `
		SELECT id, user_id, title, counterparty, status, file_id, original_text,
			clauses, report, created_at, updated_at, analyzed_at
		FROM contracts
		WHERE user_id = $1`

	args := []interface{}{userID}
	argIndex := 2

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
		if offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []*models.Contract
	for rows.Next() {
		contract := &models.Contract{}
		err := rows.Scan(
			&contract.ID,
			&contract.UserID,
			&contract.Title,
			&contract.Counterparty,
			&contract.Status,
			&contract.FileID,
			&contract.OriginalText,
			&contract.Clauses,
			&contract.Report,
			&contract.CreatedAt,
			&contract.UpdatedAt,
			&contract.AnalyzedAt,
		)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}

	return contracts, rows.Err()
}

// Delete deletes a contract
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM contracts WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
