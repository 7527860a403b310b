package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a spending category. Keywords is a comma-separated
// list of match keywords used by the keyword-matching categorization
// fallback when no merchant name is available.
type Category struct {
	Base
	UserID      uint         `gorm:"not null;index" json:"user_id"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
	Keywords    string       `json:"keywords"`

	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
}
