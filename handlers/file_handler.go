package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"clauseguard-backend/models"
	"clauseguard-backend/repository"
	"clauseguard-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FileHandler handles HTTP requests for file operations
type FileHandler struct {
	fileRepo         *repository.FileRepository
	contractRepo     *repository.ContractRepository
	storage          storage.Storage
	maxFileSize      int64
	allowedMimeTypes map[string]bool
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileRepo *repository.FileRepository, contractRepo *repository.ContractRepository, storage storage.Storage) *FileHandler {
	return &FileHandler{
		fileRepo:     fileRepo,
		contractRepo: contractRepo,
		storage:      storage,
		maxFileSize:  10 * 1024 * 1024, // 10MB
		allowedMimeTypes: map[string]bool{
			"application/pdf":    true,
			"text/plain":         true,
			"application/msword": true, // .doc
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true, // .docx
		},
	}
}

// UploadFile handles POST /api/files/upload
func (h *FileHandler) UploadFile(c *gin.Context) {
	// Get user_id from query or form (for now, we'll get it from contract)
	contractIDStr := c.PostForm("contract_id")
	var contractID *uuid.UUID
	var userID uuid.UUID

	if contractIDStr != "" {
		cid, err := uuid.Parse(contractIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_CONTRACT_ID",
					"message": "Invalid contract_id format",
				},
			})
			return
		}
		contractID = &cid

		// Get contract to retrieve user_id
		contract, err := h.contractRepo.GetByID(c.Request.Context(), cid)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CONTRACT_NOT_FOUND",
					"message": "Contract not found",
				},
			})
			return
		}
		userID = contract.UserID
	} else {
		// If no contract_id, require user_id in form
		userIDStr := c.PostForm("user_id")
		if userIDStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_USER_ID",
					"message": "Either contract_id or user_id is required",
				},
			})
			return
		}
		uid, err := uuid.Parse(userIDStr)
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
		userID = uid
	}

	// Get file from form
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	// Validate file size
	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	// Open file
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	// Determine MIME type
	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		// Try to infer from extension
		filename := fileHeader.Filename
		if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
			mimeType = "application/pdf"
		} else if strings.HasSuffix(strings.ToLower(filename), ".txt") {
			mimeType = "text/plain"
		} else if strings.HasSuffix(strings.ToLower(filename), ".doc") {
			mimeType = "application/msword"
		} else if strings.HasSuffix(strings.ToLower(filename), ".docx") {
			mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		} else {
			mimeType = "application/octet-stream"
		}
	}

	// Validate MIME type
	if !h.allowedMimeTypes[mimeType] && !strings.HasPrefix(mimeType, "text/") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "File type not allowed. Allowed types: PDF, TXT, DOC, DOCX",
			},
		})
		return
	}

	// Read file into memory; needed twice for text contracts (storage + text)
	content, err := io.ReadAll(io.LimitReader(file, h.maxFileSize))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_READ_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	// Generate file ID
	fileID := uuid.New()

	// Upload to storage
	storagePath, err := h.storage.Upload(c.Request.Context(), fileID, fileHeader.Filename, bytes.NewReader(content))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": fmt.Sprintf("Failed to upload file: %v", err),
			},
		})
		return
	}

	// Create file record in database
	fileRecord := &models.File{
		ID:          fileID,
		UserID:      userID,
		ContractID:  contractID,
		Filename:    fileHeader.Filename,
		MimeType:    mimeType,
		Size:        fileHeader.Size,
		StoragePath: storagePath,
	}

	err = h.fileRepo.Create(c.Request.Context(), fileRecord)
	if err != nil {
		// Try to clean up uploaded file
		h.storage.Delete(c.Request.Context(), storagePath)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": fmt.Sprintf("Failed to save file record: %v", err),
			},
		})
		return
	}

	// If file is linked to a contract, attach it and capture plain-text
	// content as the contract's analyzable text when none is set yet
	if contractID != nil {
		contract, err := h.contractRepo.GetByID(c.Request.Context(), *contractID)
		if err == nil && contract != nil {
			changed := false
			if contract.FileID == nil {
				contract.FileID = &fileRecord.ID
				changed = true
			}
			if strings.HasPrefix(mimeType, "text/") && (contract.OriginalText == nil || *contract.OriginalText == "") {
				text := string(content)
				contract.OriginalText = &text
				changed = true
			}
			if changed {
				err = h.contractRepo.Update(c.Request.Context(), contract)
				if err != nil {
					// Log error but don't fail the upload
					fmt.Printf("Warning: Failed to update contract file_id: %v\n", err)
				}
			}
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":         fileRecord.ID,
			"filename":   fileRecord.Filename,
			"mime_type":  fileRecord.MimeType,
			"size":       fileRecord.Size,
			"created_at": fileRecord.CreatedAt,
		},
	})
}

// GetFile handles GET /api/files/:id
func (h *FileHandler) GetFile(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid file ID format",
			},
		})
		return
	}

	file, err := h.fileRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "File not found",
			},
		})
		return
	}

	// Download from storage
	reader, err := h.storage.Download(c.Request.Context(), file.StoragePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DOWNLOAD_FAILED",
				"message": fmt.Sprintf("Failed to download file: %v", err),
			},
		})
		return
	}
	defer reader.Close()

	// Set headers
	c.Header("Content-Type", file.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, reader, nil)
}
