package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Classification sources recorded in a merchant's history.
const (
	ClassificationAutomatic      = "automatic"
	ClassificationManualOverride = "manual_override"
	ClassificationBulk           = "bulk"
)

// historyLimit bounds the append-only classification history per merchant.
const historyLimit = 20

// ClassificationEntry is one recorded classification of a merchant.
type ClassificationEntry struct {
	CategoryID uint      `json:"category_id"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	At         time.Time `json:"at"`
}

// ClassificationHistory is a bounded, append-only list of classification
// entries, stored as JSON text.
type ClassificationHistory []ClassificationEntry

// Append adds an entry, dropping the oldest when the bound is exceeded.
func (h ClassificationHistory) Append(e ClassificationEntry) ClassificationHistory {
	out := append(h, e)
	if len(out) > historyLimit {
		out = out[len(out)-historyLimit:]
	}
	return out
}

// Value implements driver.Valuer.
func (h ClassificationHistory) Value() (driver.Value, error) {
	if h == nil {
		h = ClassificationHistory{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (h *ClassificationHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*h = ClassificationHistory{}
		return nil
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("cannot scan %T into ClassificationHistory", src)
	}
}

// MerchantCategorization is the persistent tier-2 record for merchant
// category suggestions, keyed by (user, normalized merchant name, merchant
// category code or "none"). AvgConfidence is a running average over
// UsageCount classifications.
type MerchantCategorization struct {
	Base
	UserID             uint   `gorm:"not null;uniqueIndex:idx_merchant_cat_key" json:"user_id"`
	NormalizedMerchant string `gorm:"not null;uniqueIndex:idx_merchant_cat_key" json:"normalized_merchant"`
	MerchantCode       string `gorm:"not null;default:none;uniqueIndex:idx_merchant_cat_key" json:"merchant_code"`

	SuggestedCategoryID uint                  `gorm:"not null" json:"suggested_category_id"`
	AvgConfidence       float64               `gorm:"not null" json:"avg_confidence"`
	UsageCount          int                   `gorm:"not null" json:"usage_count"`
	History             ClassificationHistory `gorm:"type:text" json:"history"`

	SuggestedCategory *Category `gorm:"foreignKey:SuggestedCategoryID" json:"suggested_category,omitempty"`
}
