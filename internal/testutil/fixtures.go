package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"finlink/internal/models"
	"finlink/internal/normalize"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestBankAccount creates an active bank account for the user.
func CreateTestBankAccount(t *testing.T, db *gorm.DB, userID uint) *models.BankAccount {
	t.Helper()

	account := &models.BankAccount{
		UserID:   userID,
		Name:     fmt.Sprintf("Account %d", nextID()),
		Currency: "EUR",
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test bank account: %v", err)
	}
	return account
}

// CreateTestCreditCard creates a credit card with the given billing day.
func CreateTestCreditCard(t *testing.T, db *gorm.DB, userID uint, billingDay int) *models.CreditCard {
	t.Helper()

	card := &models.CreditCard{
		UserID:     userID,
		Name:       fmt.Sprintf("Card %d", nextID()),
		Currency:   "EUR",
		BillingDay: billingDay,
		IsActive:   true,
	}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("failed to create test credit card: %v", err)
	}
	return card
}

// CreateTestCategory creates a category with optional keywords.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint, categoryType models.CategoryType, keywords string) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID:   userID,
		Name:     fmt.Sprintf("Category %d", nextID()),
		Type:     categoryType,
		Keywords: keywords,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction persists a transaction with the storage sign
// convention already applied and the description normalization stored.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, bankAccountID uint, amount decimal.Decimal, description string, execDate time.Time) *models.Transaction {
	t.Helper()

	txType := models.TransactionTypeIncome
	if amount.IsNegative() {
		txType = models.TransactionTypeExpense
	}

	tx := &models.Transaction{
		UserID:                userID,
		BankAccountID:         &bankAccountID,
		Type:                  txType,
		Amount:                amount,
		Description:           description,
		NormalizedDescription: normalize.Text(description),
		ExecutionDate:         execDate,
		BillingDate:           execDate,
		Status:                models.TransactionStatusExecuted,
		Source:                "bank_statement",
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestMerchantRecord creates a tier-2 merchant categorization row.
func CreateTestMerchantRecord(t *testing.T, db *gorm.DB, userID, categoryID uint, merchant, code string, confidence float64) *models.MerchantCategorization {
	t.Helper()

	record := &models.MerchantCategorization{
		UserID:              userID,
		NormalizedMerchant:  merchant,
		MerchantCode:        code,
		SuggestedCategoryID: categoryID,
		AvgConfidence:       confidence,
		UsageCount:          1,
		History: models.ClassificationHistory{}.Append(models.ClassificationEntry{
			CategoryID: categoryID,
			Confidence: confidence,
			Source:     models.ClassificationAutomatic,
			At:         time.Now(),
		}),
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test merchant record: %v", err)
	}
	return record
}
