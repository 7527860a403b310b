package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "finlink/internal/errors"
	"finlink/internal/models"
	"finlink/internal/pagination"
)

// accountService handles bank-account and credit-card business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateBankAccount creates a bank account for a user.
func (s *accountService) CreateBankAccount(userID uint, name, iban, currency string) (*models.BankAccount, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if currency == "" {
		currency = "EUR"
	}

	account := &models.BankAccount{
		UserID:   userID,
		Name:     name,
		IBAN:     iban,
		Currency: currency,
		IsActive: true,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// CreateCreditCard creates a credit card for a user. The billing day must
// fall on 1-28 so it exists in every month.
func (s *accountService) CreateCreditCard(userID uint, name, lastFour, currency string, billingDay int) (*models.CreditCard, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "card name is required")
	}
	if billingDay < 1 || billingDay > 28 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "billing day must be between 1 and 28")
	}
	if currency == "" {
		currency = "EUR"
	}

	card := &models.CreditCard{
		UserID:     userID,
		Name:       name,
		LastFour:   lastFour,
		Currency:   currency,
		BillingDay: billingDay,
		IsActive:   true,
	}
	if err := s.db.Create(card).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return card, nil
}

// GetUserBankAccounts retrieves a paginated list of a user's bank accounts.
func (s *accountService) GetUserBankAccounts(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.BankAccount], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.BankAccount{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.BankAccount
	if err := base.Scopes(pagination.Paginate(page)).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetUserCreditCards retrieves a paginated list of a user's credit cards.
func (s *accountService) GetUserCreditCards(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.CreditCard], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.CreditCard{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var cards []models.CreditCard
	if err := base.Scopes(pagination.Paginate(page)).Find(&cards).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(cards, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBankAccountByID retrieves a bank account by ID for a specific user.
func (s *accountService) GetBankAccountByID(userID, accountID uint) (*models.BankAccount, error) {
	var account models.BankAccount
	if err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBankAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// GetCreditCardByID retrieves a credit card by ID for a specific user.
func (s *accountService) GetCreditCardByID(userID, cardID uint) (*models.CreditCard, error) {
	var card models.CreditCard
	if err := s.db.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCreditCardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &card, nil
}
