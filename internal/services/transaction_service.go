package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "finlink/internal/errors"
	"finlink/internal/models"
	"finlink/internal/pagination"
)

// transactionService handles read and delete operations over persisted
// transactions. Writes go through the duplicate-aware writer.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// GetUserTransactions retrieves a filtered, paginated list of a user's
// transactions, newest first.
func (s *transactionService) GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.FromDate != nil {
		base = base.Where("execution_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("execution_date <= ?", *filter.ToDate)
	}
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Source != nil {
		base = base.Where("source = ?", *filter.Source)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Category").Preload("Tags").
		Order("execution_date DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user.
func (s *transactionService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").Preload("Tags").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// DeleteTransaction soft-deletes a transaction. A reconciled transaction
// must be unlinked first.
func (s *transactionService) DeleteTransaction(userID, transactionID uint) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}
	if transaction.Reconciliation != models.ReconciledNone {
		return apperrors.ErrAlreadyReconciled
	}
	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
