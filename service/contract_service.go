package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"clauseguard-backend/models"
	"clauseguard-backend/repository"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
)

var (
	ErrContractNotFound    = errors.New("contract not found")
	ErrMissingContractText = errors.New("contract has no text to analyze")
	ErrJobCreationFailed   = errors.New("failed to create analysis job")
	ErrJobNotFound         = errors.New("analysis job not found")
)

// Analysis step names
const (
	stepExtractClauses  = "Extracting Clauses"
	stepClassifyClauses = "Classifying Clauses"
	stepRunAnalyzers    = "Running Compliance Analyzers"
	stepAssembleReport  = "Assembling Report"
)

// ContractService handles contract lifecycle and the analysis pipeline
type ContractService struct {
	contractRepo *repository.ContractRepository
	jobRepo      *repository.AnalysisJobRepository
	segmenter    *Segmenter
	classifier   *Classifier
	ruleEngine   *RuleEngine
	compliance   *ComplianceService
	geminiClient *genai.Client
}

// ContractServiceOption is a functional option for ContractService
type ContractServiceOption func(*ContractService)

// ContractWithContractRepository sets the contract repository
func ContractWithContractRepository(repo *repository.ContractRepository) ContractServiceOption {
	return func(s *ContractService) {
		s.contractRepo = repo
	}
}

// ContractWithAnalysisJobRepository sets the analysis job repository
func ContractWithAnalysisJobRepository(repo *repository.AnalysisJobRepository) ContractServiceOption {
	return func(s *ContractService) {
		s.jobRepo = repo
	}
}

// ContractWithSegmenter sets the clause segmenter
func ContractWithSegmenter(segmenter *Segmenter) ContractServiceOption {
	return func(s *ContractService) {
		s.segmenter = segmenter
	}
}

// ContractWithClassifier sets the clause classifier
func ContractWithClassifier(classifier *Classifier) ContractServiceOption {
	return func(s *ContractService) {
		s.classifier = classifier
	}
}

// ContractWithRuleEngine sets the rule engine
func ContractWithRuleEngine(engine *RuleEngine) ContractServiceOption {
	return func(s *ContractService) {
		s.ruleEngine = engine
	}
}

// ContractWithComplianceService sets the compliance service
func ContractWithComplianceService(compliance *ComplianceService) ContractServiceOption {
	return func(s *ContractService) {
		s.compliance = compliance
	}
}

// ContractWithGeminiClient sets the Gemini client
func ContractWithGeminiClient(client *genai.Client) ContractServiceOption {
	return func(s *ContractService) {
		s.geminiClient = client
	}
}

// NewContractService creates a new contract service
func NewContractService(opts ...ContractServiceOption) *ContractService {
	s := &ContractService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateContractRequest represents a request to create a contract
type CreateContractRequest struct {
	UserID       uuid.UUID
	Title        string
	Counterparty *string
	OriginalText *string
}

// CreateContractResult represents the result of creating a contract
type CreateContractResult struct {
	Contract *models.Contract
}

// CreateContract creates a new contract record
func (s *ContractService) CreateContract(ctx context.Context, req CreateContractRequest) (*CreateContractResult, error) {
	if s.contractRepo == nil {
		return nil, errors.New("contract repository not set")
	}

	contract := &models.Contract{
		UserID:       req.UserID,
		Title:        req.Title,
		Counterparty: req.Counterparty,
		Status:       models.ContractStatusUploaded,
		OriginalText: req.OriginalText,
		Clauses:      models.ClassifiedClauses{},
	}

	err := s.contractRepo.Create(ctx, contract)
	if err != nil {
		return nil, err
	}

	return &CreateContractResult{Contract: contract}, nil
}

// GetContractRequest represents a request to get a contract
type GetContractRequest struct {
	ID uuid.UUID
}

// GetContractResult represents the result of getting a contract
type GetContractResult struct {
	Contract *models.Contract
}

// GetContract retrieves a contract by ID
func (s *ContractService) GetContract(ctx context.Context, req GetContractRequest) (*GetContractResult, error) {
	if s.contractRepo == nil {
		return nil, errors.New("contract repository not set")
	}

	contract, err := s.contractRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, ErrContractNotFound
	}

	return &GetContractResult{Contract: contract}, nil
}

// ListContractsRequest represents a request to list contracts
type ListContractsRequest struct {
	UserID uuid.UUID
	Status *models.ContractStatus
	Limit  int
	Offset int
}

// ListContractsResult represents the result of listing contracts
type ListContractsResult struct {
	Contracts []*models.Contract
}

// ListContracts lists contracts for a user
func (s *ContractService) ListContracts(ctx context.Context, req ListContractsRequest) (*ListContractsResult, error) {
	if s.contractRepo == nil {
		return nil, errors.New("contract repository not set")
	}

	contracts, err := s.contractRepo.ListByUserID(ctx, req.UserID, req.Status, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	return &ListContractsResult{Contracts: contracts}, nil
}

// StartAnalysisRequest represents a request to start contract analysis
type StartAnalysisRequest struct {
	ContractID uuid.UUID
}

// StartAnalysisResult represents the result of creating an analysis job
type StartAnalysisResult struct {
	JobID uuid.UUID
}

// StartAnalysis creates an analysis job and returns immediately
// This method must complete in <100ms to avoid HTTP timeouts
func (s *ContractService) StartAnalysis(ctx context.Context, req StartAnalysisRequest) (*StartAnalysisResult, error) {
	if s.contractRepo == nil {
		return nil, errors.New("contract repository not set")
	}
	if s.jobRepo == nil {
		return nil, errors.New("analysis job repository not set")
	}

	// 1. Validate contract exists and has text to analyze
	contract, err := s.contractRepo.GetByID(ctx, req.ContractID)
	if err != nil {
		return nil, ErrContractNotFound
	}
	if contract.OriginalText == nil || *contract.OriginalText == "" {
		return nil, ErrMissingContractText
	}

	// 2. Create analysis job with initial steps
	job := &models.AnalysisJob{
		ContractID: req.ContractID,
		Status:     models.JobStatusPending,
		Steps: models.AnalysisSteps{
			{Name: stepExtractClauses, Status: "pending"},
			{Name: stepClassifyClauses, Status: "pending"},
			{Name: stepRunAnalyzers, Status: "pending"},
			{Name: stepAssembleReport, Status: "pending"},
		},
	}

	err = s.jobRepo.Create(ctx, job)
	if err != nil {
		return nil, ErrJobCreationFailed
	}

	return &StartAnalysisResult{JobID: job.ID}, nil
}

// GetJobStatusRequest represents a request to get job status
type GetJobStatusRequest struct {
	JobID uuid.UUID
}

// GetJobStatusResult represents the result of getting job status
type GetJobStatusResult struct {
	Job *models.AnalysisJob
}

// GetJobStatus retrieves the status of an analysis job
func (s *ContractService) GetJobStatus(ctx context.Context, req GetJobStatusRequest) (*GetJobStatusResult, error) {
	if s.jobRepo == nil {
		return nil, errors.New("analysis job repository not set")
	}

	job, err := s.jobRepo.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, ErrJobNotFound
	}

	return &GetJobStatusResult{Job: job}, nil
}

// ProcessAnalysis performs the actual analysis work in the background
// This method runs in a goroutine and can take 30-90 seconds
func (s *ContractService) ProcessAnalysis(ctx context.Context, jobID uuid.UUID) error {
	if s.jobRepo == nil {
		return errors.New("analysis job repository not set")
	}
	if s.contractRepo == nil {
		return errors.New("contract repository not set")
	}
	if s.geminiClient == nil {
		return errors.New("gemini client not set")
	}

	// 1. Load job and contract
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load analysis job: %w", err)
	}

	contract, err := s.contractRepo.GetByID(ctx, job.ContractID)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to load contract: "+err.Error())
		return err
	}
	if contract.OriginalText == nil || *contract.OriginalText == "" {
		s.markJobFailed(ctx, jobID, "contract has no text to analyze")
		return ErrMissingContractText
	}

	// 2. Update job status to in_progress
	err = s.jobRepo.UpdateStatus(ctx, jobID, models.JobStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	if err := s.contractRepo.UpdateStatus(ctx, contract.ID, models.ContractStatusProcessing); err != nil {
		log.Printf("Warning: failed to mark contract %s processing: %v", contract.ID, err)
	}

	// 3. Extract clauses
	if err := s.updateStepStatus(ctx, jobID, stepExtractClauses, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	clauses, err := s.segmenter.ExtractClauses(ctx, *contract.OriginalText)
	if err != nil {
		s.markJobFailed(ctx, jobID, fmt.Sprintf("clause extraction failed: %v", err))
		s.markContractFailed(ctx, contract.ID)
		return err
	}

	if err := s.updateStepStatus(ctx, jobID, stepExtractClauses, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	// 4. Classify clauses and attach rule flags
	if err := s.updateStepStatus(ctx, jobID, stepClassifyClauses, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	classified := s.classifier.Classify(clauses)
	if len(classified) == 0 && len(clauses) > 0 {
		// Classification unavailable is not zero-risk; the compliance check
		// still runs on the raw clause set.
		log.Printf("Warning: classification unavailable for contract %s (%d clauses)", contract.ID, len(clauses))
	}

	if s.ruleEngine != nil {
		for i := range classified {
			classified[i].RuleFlags = s.ruleEngine.Apply(classified[i].Text, classified[i].Category)
		}
	}

	if err := s.updateStepStatus(ctx, jobID, stepClassifyClauses, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	// 5. Run the multi-analyzer compliance check
	if err := s.updateStepStatus(ctx, jobID, stepRunAnalyzers, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	report := s.compliance.CheckCompliance(ctx, clauses, contract.ID.String())

	if err := s.updateStepStatus(ctx, jobID, stepRunAnalyzers, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	// 6. Store results
	if err := s.updateStepStatus(ctx, jobID, stepAssembleReport, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	err = s.contractRepo.UpdateAnalysis(ctx, contract.ID, models.ClassifiedClauses(classified), report)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to store analysis results: "+err.Error())
		s.markContractFailed(ctx, contract.ID)
		return err
	}

	if err := s.updateStepStatus(ctx, jobID, stepAssembleReport, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	// 7. Mark job as completed
	err = s.jobRepo.Complete(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return nil
}

// updateStepStatus updates the status of a specific step in the analysis job
func (s *ContractService) updateStepStatus(ctx context.Context, jobID uuid.UUID, stepName, status string) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	steps := job.Steps
	var currentStep string
	if job.CurrentStep != nil {
		currentStep = *job.CurrentStep
	}

	for i := range steps {
		if steps[i].Name == stepName {
			steps[i].Status = status
			if status == "in_progress" {
				currentStep = stepName
			}
			break
		}
	}

	return s.jobRepo.UpdateProgress(ctx, jobID, currentStep, steps)
}

// markJobFailed marks a job as failed with an error message
func (s *ContractService) markJobFailed(ctx context.Context, jobID uuid.UUID, errorMessage string) {
	if err := s.jobRepo.Fail(ctx, jobID, errorMessage); err != nil {
		log.Printf("Warning: failed to mark job %s failed: %v", jobID, err)
	}
}

// markContractFailed marks a contract's analysis as failed
func (s *ContractService) markContractFailed(ctx context.Context, contractID uuid.UUID) {
	if err := s.contractRepo.UpdateStatus(ctx, contractID, models.ContractStatusFailed); err != nil {
		log.Printf("Warning: failed to mark contract %s failed: %v", contractID, err)
	}
}
