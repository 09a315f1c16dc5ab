package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"clauseguard-backend/models"
	"clauseguard-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContractHandler handles HTTP requests for contracts
type ContractHandler struct {
	contractService *service.ContractService
}

// NewContractHandler creates a new contract handler
func NewContractHandler(contractService *service.ContractService) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
	}
}

// CreateContractRequest represents the request body for creating a contract
type CreateContractRequest struct {
	UserID       string  `json:"user_id" binding:"required"`
	Title        string  `json:"title" binding:"required"`
	Counterparty *string `json:"counterparty"`
	OriginalText *string `json:"original_text"`
}

// CreateContract handles POST /api/contracts
func (h *ContractHandler) CreateContract(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user_id format",
			},
		})
		return
	}

	serviceReq := service.CreateContractRequest{
		UserID:       userID,
		Title:        req.Title,
		Counterparty: req.Counterparty,
		OriginalText: req.OriginalText,
	}

	result, err := h.contractService.CreateContract(c.Request.Context(), serviceReq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CREATE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result.Contract,
	})
}

// GetContract handles GET /api/contracts/:id
func (h *ContractHandler) GetContract(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid contract ID format",
			},
		})
		return
	}

	serviceReq := service.GetContractRequest{
		ID: id,
	}

	result, err := h.contractService.GetContract(c.Request.Context(), serviceReq)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Contract not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Contract,
	})
}

// ListContracts handles GET /api/contracts
func (h *ContractHandler) ListContracts(c *gin.Context) {
	userIDStr := c.Query("user_id")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid or missing user_id",
			},
		})
		return
	}

	var status *models.ContractStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := models.ContractStatus(statusStr)
		status = &s
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	serviceReq := service.ListContractsRequest{
		UserID: userID,
		Status: status,
		Limit:  limit,
		Offset: offset,
	}

	result, err := h.contractService.ListContracts(c.Request.Context(), serviceReq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LIST_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Contracts,
	})
}

// AnalyzeContract handles POST /api/contracts/:id/analyze
func (h *ContractHandler) AnalyzeContract(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid contract ID format",
			},
		})
		return
	}

	serviceReq := service.StartAnalysisRequest{
		ContractID: id,
	}

	// Create job (synchronous, fast)
	result, err := h.contractService.StartAnalysis(c.Request.Context(), serviceReq)
	if err != nil {
		status := http.StatusInternalServerError
		code := "ANALYSIS_FAILED"
		switch err {
		case service.ErrContractNotFound:
			status = http.StatusNotFound
			code = "NOT_FOUND"
		case service.ErrMissingContractText:
			status = http.StatusBadRequest
			code = "MISSING_TEXT"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	// Spawn background goroutine for actual processing
	// Use background context (not request context) to avoid cancellation
	go func() {
		bgCtx := context.Background()
		if err := h.contractService.ProcessAnalysis(bgCtx, result.JobID); err != nil {
			// Error is logged and stored in job.ErrorMessage
			// No need to return to HTTP client (they'll poll status)
			log.Printf("Analysis job %s failed: %v", result.JobID, err)
		}
	}()

	// Return immediately (within 100ms)
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"job_id":  result.JobID,
			"status":  "pending",
			"message": "Analysis job created. Poll /api/jobs/:id for updates.",
		},
	})
}

// GetJobStatus handles GET /api/jobs/:id
func (h *ContractHandler) GetJobStatus(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid job ID format",
			},
		})
		return
	}

	serviceReq := service.GetJobStatusRequest{
		JobID: id,
	}

	result, err := h.contractService.GetJobStatus(c.Request.Context(), serviceReq)
	if err != nil {
		if err == service.ErrJobNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Analysis job not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Job,
	})
}

// GetReport handles GET /api/contracts/:id/report
func (h *ContractHandler) GetReport(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid contract ID format",
			},
		})
		return
	}

	result, err := h.contractService.GetContract(c.Request.Context(), service.GetContractRequest{ID: id})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Contract not found",
			},
		})
		return
	}

	if result.Contract.Report == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "REPORT_NOT_READY",
				"message": "Contract has not been analyzed yet",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"contract_id": result.Contract.ID,
			"status":      result.Contract.Status,
			"clauses":     result.Contract.Clauses,
			"report":      result.Contract.Report,
		},
	})
}
