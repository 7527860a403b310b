package models

// PendingDuplicateStatus tracks resolution of a fuzzy-matched duplicate.
type PendingDuplicateStatus string

const (
	PendingDuplicateOpen         PendingDuplicateStatus = "pending"
	PendingDuplicateAcceptedNew  PendingDuplicateStatus = "accepted_new"
	PendingDuplicateKeptExisting PendingDuplicateStatus = "kept_existing"
	PendingDuplicateMerged       PendingDuplicateStatus = "merged"
)

// PendingDuplicate snapshots a near-duplicate pair: the incoming draft
// (serialized as JSON) and the existing transaction it resembles. It is
// never resolved automatically; a human decides.
type PendingDuplicate struct {
	Base
	UserID                uint                   `gorm:"not null;index" json:"user_id"`
	ExistingTransactionID uint                   `gorm:"not null" json:"existing_transaction_id"`
	DraftJSON             string                 `gorm:"type:text;not null" json:"draft"`
	DateDeltaDays         int                    `json:"date_delta_days"`
	Status                PendingDuplicateStatus `gorm:"not null;default:pending;index" json:"status"`

	ExistingTransaction *Transaction `gorm:"foreignKey:ExistingTransactionID" json:"existing_transaction,omitempty"`
}
