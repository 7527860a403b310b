package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finlink/internal/errors"
	"finlink/internal/pagination"
	"finlink/internal/services"
)

// ImportHandler handles statement import requests.
type ImportHandler struct {
	importService services.ImportServicer
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService services.ImportServicer) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// ImportRequest represents the payload for running an import. The payload
// may be raw text or base64-encoded; the pipeline detects which.
type ImportRequest struct {
	Payload       string            `json:"payload" binding:"required"`
	FormatTag     string            `json:"format_tag" binding:"omitempty,format_tag"`
	ColumnMapping map[string]string `json:"column_mapping"`
	BankAccountID *uint             `json:"bank_account_id"`
	CreditCardID  *uint             `json:"credit_card_id"`
	Source        string            `json:"source" binding:"max=100"`
	DatePattern   string            `json:"date_pattern" binding:"max=50"`
	FileName      string            `json:"file_name" binding:"max=255"`
}

// Import runs the import pipeline over an uploaded statement
func (h *ImportHandler) Import(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	summary, err := h.importService.Import(c.Request.Context(), userID, services.ImportRequest{
		Payload:       []byte(req.Payload),
		FormatTag:     req.FormatTag,
		ColumnMapping: req.ColumnMapping,
		BankAccountID: req.BankAccountID,
		CreditCardID:  req.CreditCardID,
		Source:        req.Source,
		DatePattern:   req.DatePattern,
		FileName:      req.FileName,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"import": summary})
}

// GetImport returns one import run by its public ID
func (h *ImportHandler) GetImport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	importLog, err := h.importService.GetImportByPublicID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"import": importLog})
}

// GetImports lists the user's import history
func (h *ImportHandler) GetImports(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	imports, err := h.importService.GetUserImports(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, imports)
}
