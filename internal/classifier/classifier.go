// Package classifier defines the external merchant classifier used as the
// last categorization tier. Any failure degrades to "no suggestion" so the
// import pipeline is never blocked on a third-party call.
package classifier

import (
	"context"

	"github.com/shopspring/decimal"
)

// Candidate is one of the user's categories offered to the classifier.
type Candidate struct {
	ID   uint
	Name string
}

// Request carries everything the classifier may use to pick a category.
type Request struct {
	MerchantName string
	Description  string
	Amount       decimal.Decimal
	Type         string
	Candidates   []Candidate
}

// Result is a classification outcome. CategoryName matches one of the
// candidates by exact name.
type Result struct {
	CategoryName string
	Confidence   float64
}

// Classifier picks a category for a merchant. A nil result with a nil
// error means the classifier declined to suggest anything.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Result, error)
}
