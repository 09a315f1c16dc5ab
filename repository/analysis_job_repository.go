package repository

import (
	"context"
	"time"

	"clauseguard-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisJobRepository handles database operations for analysis jobs
type AnalysisJobRepository struct {
	db *pgxpool.Pool
}

// NewAnalysisJobRepository creates a new analysis job repository
func NewAnalysisJobRepository(db *pgxpool.Pool) *AnalysisJobRepository {
	return &AnalysisJobRepository{db: db}
}

// Create creates a new analysis job
func (r *AnalysisJobRepository) Create(ctx context.Context, job *models.AnalysisJob) error {
	query := `
		INSERT INTO analysis_jobs (
			contract_id, status, current_step, steps, error_message
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		job.ContractID,
		job.Status,
		job.CurrentStep,
		job.Steps,
		job.ErrorMessage,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)

	return err
}

// GetByID retrieves an analysis job by ID
func (r *AnalysisJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	job := &models.AnalysisJob{}
	query := `
		SELECT id, contract_id, status, current_step, steps, error_message,
			created_at, updated_at, completed_at
		FROM analysis_jobs
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.ContractID,
		&job.Status,
		&job.CurrentStep,
		&job.Steps,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)

	if err != nil {
		return nil, err
	}

	// Ensure Steps is never nil (safeguard in case Scan didn't handle NULL properly)
	if job.Steps == nil {
		job.Steps = make(models.AnalysisSteps, 0)
	}

	return job, nil
}

// GetByContractID retrieves the latest analysis job for a contract
func (r *AnalysisJobRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.AnalysisJob, error) {
	job := &models.AnalysisJob{}
	query := `
		SELECT id, contract_id, status, current_step, steps, error_message,
			created_at, updated_at, completed_at
		FROM analysis_jobs
		WHERE contract_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, contractID).Scan(
		&job.ID,
		&job.ContractID,
		&job.Status,
		&job.CurrentStep,
		&job.Steps,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)

	if err != nil {
		return nil, err
	}

	// Ensure Steps is never nil (safeguard in case Scan didn't handle NULL properly)
	if job.Steps == nil {
		job.Steps = make(models.AnalysisSteps, 0)
	}

	return job, nil
}

// UpdateStatus updates the status of an analysis job
func (r *AnalysisJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AnalysisJobStatus) error {
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// UpdateProgress updates the progress of an analysis job
func (r *AnalysisJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.AnalysisSteps) error {
	query := `
		UPDATE analysis_jobs SET
			current_step = $2,
			steps = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, currentStep, steps)
	return err
}

// Complete marks an analysis job as completed
func (r *AnalysisJobRepository) Complete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			completed_at = $3,
			updated_at = $3
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusCompleted, now)
	return err
}

// Fail marks an analysis job as failed
func (r *AnalysisJobRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusFailed, errorMessage)
	return err
}
