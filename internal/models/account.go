package models

// BankAccount represents a current account owned by a user. Transactions
// imported from a bank export or bank API feed attach here.
type BankAccount struct {
	Base
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	Name     string `gorm:"not null" json:"name"`
	IBAN     string `json:"iban"`
	Currency string `gorm:"not null;default:EUR" json:"currency"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// CreditCard represents a credit card owned by a user. BillingDay is the
// day of month (1-28) the card statement closes; import enrichment computes
// each transaction's billing date as the next occurrence of this day
// strictly after the execution date.
type CreditCard struct {
	Base
	UserID     uint   `gorm:"not null;index" json:"user_id"`
	Name       string `gorm:"not null" json:"name"`
	LastFour   string `json:"last_four"`
	Currency   string `gorm:"not null;default:EUR" json:"currency"`
	BillingDay int    `gorm:"not null;default:1" json:"billing_day"`
	IsActive   bool   `gorm:"default:true" json:"is_active"`
}
