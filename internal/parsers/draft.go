package parsers

import (
	"time"

	"github.com/shopspring/decimal"

	"finlink/internal/models"
)

// Draft is an unpersisted candidate transaction produced by a parser.
// Amount is an unsigned magnitude; Type carries the direction. The final
// sign convention is applied by the writer, not here.
type Draft struct {
	Description   string
	Amount        decimal.Decimal
	Type          models.TransactionType
	ExecutionDate time.Time
	Status        models.TransactionStatus
	Source        string
	ExternalID    *string
	MerchantName  string
	MerchantCode  string
	CategoryHint  string
	TagHints      []string

	BankAccountID *uint
	CreditCardID  *uint

	// Filled during enrichment, not by parsers.
	BillingDate time.Time
	CategoryID  *uint
	Tags        []models.Tag
}

// Options carries caller-supplied context every parser needs: which
// account the rows belong to and the declared date layout of the file.
type Options struct {
	UserID        uint
	BankAccountID *uint
	CreditCardID  *uint
	Source        string
	DatePattern   string
}

// Parser converts a raw payload into transaction drafts. Implementations
// skip malformed rows without aborting the file.
type Parser interface {
	ParseFile(data []byte, opts Options) ([]Draft, error)
}
