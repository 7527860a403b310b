// Package errors provides custom error types for the Finlink API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Account errors.
var (
	ErrBankAccountNotFound = &AppError{Code: "BANK_ACCOUNT_NOT_FOUND", Message: "Bank account not found", StatusCode: http.StatusNotFound}
	ErrCreditCardNotFound  = &AppError{Code: "CREDIT_CARD_NOT_FOUND", Message: "Credit card not found", StatusCode: http.StatusNotFound}
	ErrNoAccountAssociation = &AppError{Code: "NO_ACCOUNT_ASSOCIATION", Message: "A transaction must reference exactly one bank account or credit card", StatusCode: http.StatusBadRequest}
)

// Category errors.
var (
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
)

// Import errors. Unsupported formats, undecodable payloads and missing
// column mappings are pipeline-level failures: they abort the whole import
// before any row is persisted.
var (
	ErrUnsupportedFormat    = &AppError{Code: "UNSUPPORTED_FORMAT", Message: "Unsupported import format tag", StatusCode: http.StatusBadRequest}
	ErrUndecodablePayload   = &AppError{Code: "UNDECODABLE_PAYLOAD", Message: "Import payload could not be decoded", StatusCode: http.StatusBadRequest}
	ErrMissingColumnMapping = &AppError{Code: "MISSING_COLUMN_MAPPING", Message: "Column mapping is missing a required field", StatusCode: http.StatusBadRequest}
	ErrImportNotFound       = &AppError{Code: "IMPORT_NOT_FOUND", Message: "Import not found", StatusCode: http.StatusNotFound}
)

// Duplicate handling errors.
var (
	ErrPendingDuplicateNotFound = &AppError{Code: "PENDING_DUPLICATE_NOT_FOUND", Message: "Pending duplicate not found", StatusCode: http.StatusNotFound}
	ErrDuplicateAlreadyResolved = &AppError{Code: "DUPLICATE_ALREADY_RESOLVED", Message: "Pending duplicate has already been resolved", StatusCode: http.StatusConflict}
	ErrInvalidResolution        = &AppError{Code: "INVALID_RESOLUTION", Message: "Unsupported duplicate resolution", StatusCode: http.StatusBadRequest}
)

// Reconciliation errors.
var (
	ErrAlreadyReconciled        = &AppError{Code: "ALREADY_RECONCILED", Message: "Transaction is already reconciled", StatusCode: http.StatusConflict}
	ErrReconciliationLinkNotFound = &AppError{Code: "RECONCILIATION_LINK_NOT_FOUND", Message: "Reconciliation link not found", StatusCode: http.StatusNotFound}
)
