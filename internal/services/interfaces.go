package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"finlink/internal/models"
	"finlink/internal/pagination"
	"finlink/internal/parsers"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// AccountServicer defines the contract for bank-account and credit-card
// business logic.
type AccountServicer interface {
	CreateBankAccount(userID uint, name, iban, currency string) (*models.BankAccount, error)
	CreateCreditCard(userID uint, name, lastFour, currency string, billingDay int) (*models.CreditCard, error)
	GetUserBankAccounts(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.BankAccount], error)
	GetUserCreditCards(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.CreditCard], error)
	GetBankAccountByID(userID, accountID uint) (*models.BankAccount, error)
	GetCreditCardByID(userID, cardID uint) (*models.CreditCard, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID uint, name string, categoryType models.CategoryType, description, keywords string) (*models.Category, error)
	GetUserCategories(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID uint) (*models.Category, error)
	UpdateCategory(userID, categoryID uint, name, description, keywords string) (*models.Category, error)
	DeleteCategory(userID, categoryID uint) error
}

// TagServicer defines the contract for tag-related business logic.
type TagServicer interface {
	ResolveOrCreate(userID uint, names []string) ([]models.Tag, error)
	GetUserTags(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Tag], error)
}

// PersistOutcome is the result of writing one draft through the
// duplicate-aware writer.
type PersistOutcome string

const (
	OutcomeCreated                PersistOutcome = "created"
	OutcomeSuppressedDuplicate    PersistOutcome = "suppressed_duplicate"
	OutcomeQueuedPendingDuplicate PersistOutcome = "queued_pending_duplicate"
)

// DedupServicer is the duplicate-aware transaction writer. Every draft
// produced by an import goes through PersistDraft, which either inserts,
// suppresses an exact duplicate, or queues a pending duplicate for human
// resolution.
type DedupServicer interface {
	PersistDraft(userID uint, draft parsers.Draft) (PersistOutcome, *models.Transaction, error)
	ListPendingDuplicates(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.PendingDuplicate], error)
	ResolvePendingDuplicate(userID, pendingID uint, resolution string) (*models.Transaction, error)
}

// Pending-duplicate resolutions.
const (
	ResolutionAcceptNew    = "accept_new"
	ResolutionKeepExisting = "keep_existing"
	ResolutionMerge        = "merge"
)

// ReconcileOptions tunes one reconciliation pass. Zero values fall back to
// the configured defaults.
type ReconcileOptions struct {
	DateToleranceDays int
	ProviderMarker    string
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	ReconciledCount int                  `json:"reconciled_count"`
	Unreconciled    []models.Transaction `json:"unreconciled"`
}

// ReconcileServicer runs the idempotent cross-source reconciliation pass
// and manages the resulting links.
type ReconcileServicer interface {
	Reconcile(userID uint, opts ReconcileOptions) (*ReconcileResult, error)
	GetUserLinks(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.ReconciliationLink], error)
	Unlink(userID, linkID uint) error
}

// SuggestRequest is a categorization lookup.
type SuggestRequest struct {
	MerchantName string
	MerchantCode string
	Description  string
	Amount       decimal.Decimal
	Type         models.TransactionType
}

// Suggestion is a categorization result with the tier that produced it
// (1 = cache, 2 = merchant table, 3 = external classifier, 0 = keyword
// fallback).
type Suggestion struct {
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
	Tier         int     `json:"tier"`
}

// CategorizationServicer is the tiered merchant categorization chain.
// Suggest returns (nil, nil) when no tier produced a suggestion.
type CategorizationServicer interface {
	Suggest(ctx context.Context, userID uint, req SuggestRequest) (*Suggestion, error)
	Correct(userID uint, merchantName, merchantCode string, categoryID uint) error
	KeywordSuggest(userID uint, description string) (*models.Category, error)
	RescanUncategorized(ctx context.Context, userID uint) (int, error)
}

// ImportRequest is one import run's input.
type ImportRequest struct {
	Payload       []byte
	FormatTag     string
	ColumnMapping map[string]string
	BankAccountID *uint
	CreditCardID  *uint
	Source        string
	DatePattern   string
	FileName      string
}

// ImportSummary is one import run's output.
type ImportSummary struct {
	ImportID                 string              `json:"import_id"`
	Created                  int                 `json:"created"`
	DuplicatesHandled        int                 `json:"duplicates_handled"`
	PendingDuplicatesCreated int                 `json:"pending_duplicates_created"`
	Failed                   int                 `json:"failed"`
	Status                   models.ImportStatus `json:"status"`
}

// ImportServicer drives the decode, parse, enrich, persist and
// pattern-rescan pipeline.
type ImportServicer interface {
	Import(ctx context.Context, userID uint, req ImportRequest) (*ImportSummary, error)
	GetImportByPublicID(userID uint, publicID string) (*models.ImportLog, error)
	GetUserImports(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.ImportLog], error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *uint
	Source     *string
}

// TransactionServicer defines read/delete operations over persisted
// transactions. Creation happens through the import pipeline or the
// duplicate-aware writer.
type TransactionServicer interface {
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
}
