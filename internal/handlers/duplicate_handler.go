package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finlink/internal/errors"
	"finlink/internal/pagination"
	"finlink/internal/services"
)

// DuplicateHandler handles pending-duplicate review requests.
type DuplicateHandler struct {
	dedupService services.DedupServicer
}

// NewDuplicateHandler creates a new DuplicateHandler.
func NewDuplicateHandler(dedupService services.DedupServicer) *DuplicateHandler {
	return &DuplicateHandler{dedupService: dedupService}
}

// ResolveDuplicateRequest represents the payload for resolving a pending duplicate
type ResolveDuplicateRequest struct {
	Resolution string `json:"resolution" binding:"required,duplicate_resolution"`
}

// GetPendingDuplicates lists the user's open pending duplicates
func (h *DuplicateHandler) GetPendingDuplicates(c *gin.Context) {
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

	duplicates, err := h.dedupService.ListPendingDuplicates(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, duplicates)
}

// ResolveDuplicate applies a resolution to one pending duplicate
func (h *DuplicateHandler) ResolveDuplicate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pendingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ResolveDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.dedupService.ResolvePendingDuplicate(userID, pendingID, req.Resolution)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}
