package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// TransactionStatus represents the settlement status reported by the source.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusExecuted TransactionStatus = "executed"
)

// ReconciliationState marks a transaction's role in a cross-source
// reconciliation link. A transaction is reconciled at most once.
type ReconciliationState string

const (
	ReconciledNone        ReconciliationState = ""
	ReconciledAsPrimary   ReconciliationState = "reconciled_as_primary"
	ReconciledAsSecondary ReconciliationState = "reconciled_as_secondary"
)

// Transaction is the canonical, persisted transaction record. Exactly one of
// BankAccountID/CreditCardID is set, never both. Amount is signed: negative
// for expenses, positive for income, enforced at write time regardless of
// the source format's sign convention. NormalizedDescription is the
// lowercased/punctuation-stripped form used on both sides of every
// duplicate comparison.
type Transaction struct {
	Base
	UserID        uint  `gorm:"not null;index" json:"user_id"`
	BankAccountID *uint `gorm:"index" json:"bank_account_id,omitempty"`
	CreditCardID  *uint `gorm:"index" json:"credit_card_id,omitempty"`
	CategoryID    *uint `json:"category_id,omitempty"`

	Type                  TransactionType     `gorm:"not null" json:"type"`
	Amount                decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description           string              `json:"description"`
	NormalizedDescription string              `gorm:"index" json:"-"`
	ExecutionDate         time.Time           `gorm:"not null;index" json:"execution_date"`
	BillingDate           time.Time           `json:"billing_date"`
	Status                TransactionStatus   `gorm:"not null;default:executed" json:"status"`
	Source                string              `gorm:"index" json:"source"`
	ExternalID            *string             `gorm:"index" json:"external_id,omitempty"`
	MerchantName          string              `json:"merchant_name,omitempty"`
	MerchantCode          string              `json:"merchant_code,omitempty"`
	Reconciliation        ReconciliationState `gorm:"index;default:''" json:"reconciliation,omitempty"`

	// Relationships
	BankAccount *BankAccount `gorm:"foreignKey:BankAccountID" json:"bank_account,omitempty"`
	CreditCard  *CreditCard  `gorm:"foreignKey:CreditCardID" json:"credit_card,omitempty"`
	Category    *Category    `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags        []Tag        `gorm:"many2many:transaction_tags" json:"tags,omitempty"`
}
