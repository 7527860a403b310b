package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "finlink/internal/errors"
	"finlink/internal/models"
	"finlink/internal/pagination"
	"finlink/internal/services"
)

// TransactionHandler handles transaction read and delete requests.
// Transactions are created through the import pipeline, not directly.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// GetTransactions lists the user's transactions with optional filters
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
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

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// GetTransaction returns one transaction by ID
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction removes a transaction. Reconciled transactions must be
// unlinked first.
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

// parseTransactionFilter reads the optional filter query parameters.
func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid from date")
		}
		filter.FromDate = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid to date")
		}
		filter.ToDate = &t
	}
	if txType := c.Query("type"); txType != "" {
		if txType != "income" && txType != "expense" {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid type")
		}
		t := models.TransactionType(txType)
		filter.Type = &t
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		id, err := strconv.ParseUint(categoryID, 10, 32)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid category_id")
		}
		cid := uint(id)
		filter.CategoryID = &cid
	}
	if source := c.Query("source"); source != "" {
		filter.Source = &source
	}

	return filter, nil
}
