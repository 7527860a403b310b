package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finlink/internal/errors"
	"finlink/internal/pagination"
	"finlink/internal/services"
)

// AccountHandler handles bank-account and credit-card requests.
type AccountHandler struct {
	accountService services.AccountServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateBankAccountRequest represents the payload for creating a bank account
type CreateBankAccountRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	IBAN     string `json:"iban" binding:"max=34"`
	Currency string `json:"currency" binding:"required,iso4217"`
}

// CreateCreditCardRequest represents the payload for creating a credit card
type CreateCreditCardRequest struct {
	Name       string `json:"name" binding:"required,max=255"`
	LastFour   string `json:"last_four" binding:"omitempty,len=4,numeric"`
	Currency   string `json:"currency" binding:"required,iso4217"`
	BillingDay int    `json:"billing_day" binding:"required,min=1,max=28"`
}

// CreateBankAccount handles the creation of a bank account
func (h *AccountHandler) CreateBankAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accountService.CreateBankAccount(userID, req.Name, req.IBAN, req.Currency)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"bank_account": account})
}

// CreateCreditCard handles the creation of a credit card
func (h *AccountHandler) CreateCreditCard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCreditCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	card, err := h.accountService.CreateCreditCard(userID, req.Name, req.LastFour, req.Currency, req.BillingDay)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"credit_card": card})
}

// GetBankAccounts lists the user's bank accounts
func (h *AccountHandler) GetBankAccounts(c *gin.Context) {
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

	accounts, err := h.accountService.GetUserBankAccounts(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, accounts)
}

// GetCreditCards lists the user's credit cards
func (h *AccountHandler) GetCreditCards(c *gin.Context) {
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

	cards, err := h.accountService.GetUserCreditCards(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cards)
}

// GetBankAccount returns one bank account by ID
func (h *AccountHandler) GetBankAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetBankAccountByID(userID, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bank_account": account})
}

// GetCreditCard returns one credit card by ID
func (h *AccountHandler) GetCreditCard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	card, err := h.accountService.GetCreditCardByID(userID, cardID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"credit_card": card})
}
