package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finlink/internal/errors"
	"finlink/internal/models"
	"finlink/internal/services"
)

// CategorizationHandler handles merchant categorization requests.
type CategorizationHandler struct {
	categorizationService services.CategorizationServicer
}

// NewCategorizationHandler creates a new CategorizationHandler.
func NewCategorizationHandler(categorizationService services.CategorizationServicer) *CategorizationHandler {
	return &CategorizationHandler{categorizationService: categorizationService}
}

// SuggestCategoryRequest represents the payload for a categorization lookup
type SuggestCategoryRequest struct {
	MerchantName string `json:"merchant_name" binding:"max=255"`
	MerchantCode string `json:"merchant_code" binding:"max=50"`
	Description  string `json:"description" binding:"max=500"`
	Amount       string `json:"amount"`
	Type         string `json:"type" binding:"omitempty,transaction_type"`
}

// CorrectCategoryRequest represents the payload for a manual override
type CorrectCategoryRequest struct {
	MerchantName string `json:"merchant_name" binding:"required,max=255"`
	MerchantCode string `json:"merchant_code" binding:"max=50"`
	CategoryID   uint   `json:"category_id" binding:"required"`
}

// Suggest runs the tiered categorization chain for a merchant
func (h *CategorizationHandler) Suggest(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SuggestCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	amount := decimal.Zero
	if req.Amount != "" {
		parsed, parseErr := decimal.NewFromString(req.Amount)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid amount"))
			return
		}
		amount = parsed
	}

	suggestion, err := h.categorizationService.Suggest(c.Request.Context(), userID, services.SuggestRequest{
		MerchantName: req.MerchantName,
		MerchantCode: req.MerchantCode,
		Description:  req.Description,
		Amount:       amount,
		Type:         models.TransactionType(req.Type),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	if suggestion == nil {
		c.JSON(http.StatusOK, gin.H{"suggestion": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

// Correct records a manual category override for a merchant
func (h *CategorizationHandler) Correct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CorrectCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.categorizationService.Correct(userID, req.MerchantName, req.MerchantCode, req.CategoryID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Categorization recorded"})
}

// Rescan runs the keyword fallback over the user's uncategorized transactions
func (h *CategorizationHandler) Rescan(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	assigned, err := h.categorizationService.RescanUncategorized(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assigned": assigned})
}
