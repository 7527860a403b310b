package models

import "time"

// ReconciliationLink pairs a bank-side (primary) and provider-side
// (secondary) transaction once matched. The link is irreversible without an
// explicit unlink. DateDeltaDays is kept so boundary-crossing matches can
// be audited.
type ReconciliationLink struct {
	Base
	UserID                 uint      `gorm:"not null;index" json:"user_id"`
	PrimaryTransactionID   uint      `gorm:"not null;uniqueIndex" json:"primary_transaction_id"`
	SecondaryTransactionID uint      `gorm:"not null;uniqueIndex" json:"secondary_transaction_id"`
	DateDeltaDays          int       `gorm:"not null" json:"date_delta_days"`
	MatchedAt              time.Time `gorm:"not null" json:"matched_at"`

	PrimaryTransaction   *Transaction `gorm:"foreignKey:PrimaryTransactionID" json:"primary_transaction,omitempty"`
	SecondaryTransaction *Transaction `gorm:"foreignKey:SecondaryTransactionID" json:"secondary_transaction,omitempty"`
}
