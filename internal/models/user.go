package models

// User represents a registered user. All ingestion, deduplication and
// reconciliation state is scoped per user.
type User struct {
	Base
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`
}
