package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finlink/internal/errors"
	"finlink/internal/pagination"
	"finlink/internal/services"
)

// ReconcileHandler handles cross-source reconciliation requests.
type ReconcileHandler struct {
	reconcileService services.ReconcileServicer
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(reconcileService services.ReconcileServicer) *ReconcileHandler {
	return &ReconcileHandler{reconcileService: reconcileService}
}

// ReconcileRequest represents the payload for running a reconciliation pass.
// Zero values fall back to the configured defaults.
type ReconcileRequest struct {
	DateToleranceDays int    `json:"date_tolerance_days" binding:"omitempty,min=1,max=31"`
	ProviderMarker    string `json:"provider_marker" binding:"max=100"`
}

// Reconcile runs one reconciliation pass over the user's transactions
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// The body is optional; an empty body runs with configured defaults.
	var req ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	result, err := h.reconcileService.Reconcile(userID, services.ReconcileOptions{
		DateToleranceDays: req.DateToleranceDays,
		ProviderMarker:    req.ProviderMarker,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLinks lists the user's reconciliation links
func (h *ReconcileHandler) GetLinks(c *gin.Context) {
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

	links, err := h.reconcileService.GetUserLinks(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, links)
}

// Unlink removes a reconciliation link and clears both transactions
func (h *ReconcileHandler) Unlink(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	linkID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.reconcileService.Unlink(userID, linkID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reconciliation link removed"})
}
