package models

// Tag is a free-form label a user attaches to transactions. Parsers may emit
// tag-name hints; the import pipeline resolves or creates them by name.
type Tag struct {
	Base
	UserID uint   `gorm:"not null;index:idx_tags_user_name,unique" json:"user_id"`
	Name   string `gorm:"not null;index:idx_tags_user_name,unique" json:"name"`
}
