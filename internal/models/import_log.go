package models

import (
	"gorm.io/gorm"

	"finlink/internal/uuid"
)

// ImportStatus is the lifecycle state of an import run.
type ImportStatus string

const (
	ImportStatusPending            ImportStatus = "pending"
	ImportStatusProcessing         ImportStatus = "processing"
	ImportStatusCompleted          ImportStatus = "completed"
	ImportStatusPartiallyCompleted ImportStatus = "partially_completed"
	ImportStatusFailed             ImportStatus = "failed"
)

// ImportLog records counters and final status for one import run.
// COMPLETED only when zero row failures occurred.
type ImportLog struct {
	Base
	PublicID  string `gorm:"uniqueIndex;not null" json:"import_id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	FormatTag string `json:"format_tag"`
	FileName  string `json:"file_name"`

	TotalRows         int `gorm:"not null" json:"total_rows"`
	ProcessedRows     int `gorm:"not null" json:"processed_rows"`
	SuccessfulRows    int `gorm:"not null" json:"successful_rows"`
	FailedRows        int `gorm:"not null" json:"failed_rows"`
	DuplicateRows     int `gorm:"not null" json:"duplicate_rows"`
	PendingDuplicates int `gorm:"not null" json:"pending_duplicates"`

	Status ImportStatus `gorm:"not null;default:pending;index" json:"status"`
	Error  string       `json:"error,omitempty"`
}

// BeforeCreate hook assigns a time-ordered UUIDv7 public identifier.
func (l *ImportLog) BeforeCreate(tx *gorm.DB) error {
	if l.PublicID == "" {
		l.PublicID = uuid.New()
	}
	return nil
}
