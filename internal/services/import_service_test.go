package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finlink/internal/cache"
	apperrors "finlink/internal/errors"
	"finlink/internal/models"
	"finlink/internal/pagination"
	"finlink/internal/parsers"
	"finlink/internal/testutil"
)

func newImportService(db *gorm.DB) ImportServicer {
	dedup := NewDedupService(db, 3)
	categorization := NewCategorizationService(db, cache.New(time.Hour), nil)
	tags := NewTagService(db)
	return NewImportService(db, dedup, categorization, tags)
}

func TestImportFixedTextFile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	groceries := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense, "supermarket")
	svc := newImportService(db)

	payload := []byte("15/03/2024;SUPERMARKET PURCHASE;-45,30\n16/03/2024;SALARY MARCH;2.500,00\n")
	summary, err := svc.Import(context.Background(), user.ID, ImportRequest{
		Payload:       payload,
		FormatTag:     parsers.FormatFixedText,
		BankAccountID: &account.ID,
		Source:        "bank_statement",
		DatePattern:   "dd/MM/yyyy",
		FileName:      "march.txt",
	})
	testutil.AssertNoError(t, err)

	if summary.Created != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Status != models.ImportStatusCompleted {
		t.Errorf("expected completed, got %s", summary.Status)
	}
	if summary.ImportID == "" {
		t.Error("expected a public import id")
	}

	// The keyword-matched transaction picked up a category during
	// enrichment or the pattern rescan.
	var tx models.Transaction
	testutil.AssertNoError(t, db.Where("user_id = ? AND normalized_description = ?", user.ID, "supermarket purchase").First(&tx).Error)
	if tx.CategoryID == nil || *tx.CategoryID != groceries.ID {
		t.Error("expected keyword-matched category on imported transaction")
	}
	if !tx.Amount.Equal(decimal.RequireFromString("-45.3")) {
		t.Errorf("expected -45.3, got %s", tx.Amount)
	}
	// Bank-account transactions bill on the execution date.
	if !tx.BillingDate.Equal(tx.ExecutionDate) {
		t.Errorf("expected billing date %v, got %v", tx.ExecutionDate, tx.BillingDate)
	}

	importLog, err := svc.GetImportByPublicID(user.ID, summary.ImportID)
	testutil.AssertNoError(t, err)
	if importLog.TotalRows != 2 || importLog.SuccessfulRows != 2 || importLog.FailedRows != 0 {
		t.Errorf("unexpected counters: %+v", importLog)
	}
}

func TestImportIsIdempotentWithExternalIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := newImportService(db)

	payload := []byte(`{"transactions": [
		{"id": "tx-1", "amount": "-19.99", "bookingDate": "2024-03-15", "counterpartyName": "ACME"},
		{"id": "tx-2", "amount": "-7.50", "bookingDate": "2024-03-16", "counterpartyName": "Gym"}
	]}`)
	req := ImportRequest{
		Payload:       payload,
		FormatTag:     parsers.FormatAPIFeed,
		BankAccountID: &account.ID,
		Source:        "provider_feed",
	}

	first, err := svc.Import(context.Background(), user.ID, req)
	testutil.AssertNoError(t, err)
	if first.Created != 2 {
		t.Fatalf("expected 2 created on first run, got %d", first.Created)
	}

	second, err := svc.Import(context.Background(), user.ID, req)
	testutil.AssertNoError(t, err)
	if second.Created != 0 || second.DuplicatesHandled != 2 {
		t.Fatalf("expected all duplicates on second run, got %+v", second)
	}
	if second.Status != models.ImportStatusCompleted {
		t.Errorf("suppressed duplicates still count as handled, got %s", second.Status)
	}

	var count int64
	db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 persisted transactions after re-import, got %d", count)
	}
}

func TestImportCreditCardBillingDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	card := testutil.CreateTestCreditCard(t, db, user.ID, 10)
	svc := newImportService(db)

	payload := []byte("15/03/2024;ONLINE PURCHASE;-19,99\n")
	summary, err := svc.Import(context.Background(), user.ID, ImportRequest{
		Payload:      payload,
		FormatTag:    parsers.FormatFixedText,
		CreditCardID: &card.ID,
		Source:       "card_statement",
		DatePattern:  "dd/MM/yyyy",
	})
	testutil.AssertNoError(t, err)
	if summary.Created != 1 {
		t.Fatalf("expected 1 created, got %d", summary.Created)
	}

	var tx models.Transaction
	testutil.AssertNoError(t, db.Where("user_id = ?", user.ID).First(&tx).Error)
	// Next occurrence of billing day 10 strictly after March 15 is April 10.
	if tx.BillingDate.Month() != time.April || tx.BillingDate.Day() != 10 {
		t.Errorf("expected billing date April 10, got %v", tx.BillingDate)
	}
}

func TestImportWithColumnMapping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := newImportService(db)

	payload := []byte("Fecha,Concepto,Importe,Etiquetas\n15/03/2024,COMPRA TIENDA,\"-12,00\",shopping|march\n")
	summary, err := svc.Import(context.Background(), user.ID, ImportRequest{
		Payload: payload,
		ColumnMapping: map[string]string{
			"Fecha":     "date",
			"Concepto":  "description",
			"Importe":   "amount",
			"Etiquetas": "tags",
		},
		BankAccountID: &account.ID,
		Source:        "bank_custom",
		DatePattern:   "dd/MM/yyyy",
	})
	testutil.AssertNoError(t, err)
	if summary.Created != 1 {
		t.Fatalf("expected 1 created, got %d", summary.Created)
	}

	// Tag hints were resolved into persistent tags.
	var tx models.Transaction
	testutil.AssertNoError(t, db.Preload("Tags").Where("user_id = ?", user.ID).First(&tx).Error)
	if len(tx.Tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(tx.Tags))
	}
}

func TestImportPipelineFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := newImportService(db)

	t.Run("unknown format tag", func(t *testing.T) {
		_, err := svc.Import(context.Background(), user.ID, ImportRequest{
			Payload:       []byte("data"),
			FormatTag:     "quickbooks",
			BankAccountID: &account.ID,
		})
		testutil.AssertAppError(t, err, apperrors.ErrUnsupportedFormat.Code)
	})

	t.Run("missing column mapping field", func(t *testing.T) {
		_, err := svc.Import(context.Background(), user.ID, ImportRequest{
			Payload:       []byte("a,b\n1,2\n"),
			ColumnMapping: map[string]string{"a": "date"},
			BankAccountID: &account.ID,
		})
		testutil.AssertAppError(t, err, apperrors.ErrMissingColumnMapping.Code)
	})

	t.Run("neither tag nor mapping", func(t *testing.T) {
		_, err := svc.Import(context.Background(), user.ID, ImportRequest{
			Payload:       []byte("data"),
			BankAccountID: &account.ID,
		})
		testutil.AssertAppError(t, err, apperrors.ErrUnsupportedFormat.Code)
	})

	t.Run("no account association", func(t *testing.T) {
		_, err := svc.Import(context.Background(), user.ID, ImportRequest{
			Payload:   []byte("data"),
			FormatTag: parsers.FormatFixedText,
		})
		testutil.AssertAppError(t, err, apperrors.ErrNoAccountAssociation.Code)
	})

	t.Run("unknown bank account", func(t *testing.T) {
		missing := uint(999999)
		_, err := svc.Import(context.Background(), user.ID, ImportRequest{
			Payload:       []byte("data"),
			FormatTag:     parsers.FormatFixedText,
			BankAccountID: &missing,
		})
		testutil.AssertAppError(t, err, apperrors.ErrBankAccountNotFound.Code)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := svc.Import(context.Background(), user.ID, ImportRequest{
			Payload:       nil,
			FormatTag:     parsers.FormatFixedText,
			BankAccountID: &account.ID,
		})
		testutil.AssertAppError(t, err, apperrors.ErrUndecodablePayload.Code)
	})

	// A pipeline failure leaves a FAILED import log with no rows processed.
	var failedLogs []models.ImportLog
	db.Where("user_id = ? AND status = ?", user.ID, models.ImportStatusFailed).Find(&failedLogs)
	if len(failedLogs) == 0 {
		t.Fatal("expected failed import logs")
	}
	for _, l := range failedLogs {
		if l.ProcessedRows != 0 {
			t.Errorf("pipeline failure must abort before any row, processed=%d", l.ProcessedRows)
		}
		if l.Error == "" {
			t.Error("failed import log should record the cause")
		}
	}
}

func TestImportFuzzyDuplicateQueuesPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := newImportService(db)

	testutil.CreateTestTransaction(t, db, user.ID, account.ID,
		decimal.RequireFromString("-45.3"), "POS PURCHASE SUPERMARKET 0123", localNoon(2024, 3, 15))

	payload := []byte("17/03/2024;POS PURCHASE SUPERMARKET 0199;-45,30\n")
	summary, err := svc.Import(context.Background(), user.ID, ImportRequest{
		Payload:       payload,
		FormatTag:     parsers.FormatFixedText,
		BankAccountID: &account.ID,
		Source:        "bank_statement",
		DatePattern:   "dd/MM/yyyy",
	})
	testutil.AssertNoError(t, err)
	if summary.PendingDuplicatesCreated != 1 || summary.Created != 0 {
		t.Fatalf("expected 1 pending duplicate and 0 created, got %+v", summary)
	}

	importLog, err := svc.GetImportByPublicID(user.ID, summary.ImportID)
	testutil.AssertNoError(t, err)
	if importLog.PendingDuplicates != 1 {
		t.Errorf("expected pending duplicate counter 1, got %d", importLog.PendingDuplicates)
	}
}

func TestGetUserImports(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := newImportService(db)

	for i := 0; i < 3; i++ {
		_, err := svc.Import(context.Background(), user.ID, ImportRequest{
			Payload:       []byte("15/03/2024;ROW;-1,00\n"),
			FormatTag:     parsers.FormatFixedText,
			BankAccountID: &account.ID,
			Source:        "bank_statement",
		})
		testutil.AssertNoError(t, err)
	}

	page, err := svc.GetUserImports(user.ID, pagination.PageRequest{Page: 1, PageSize: 10})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 3 {
		t.Errorf("expected 3 import logs, got %d", page.TotalItems)
	}
}
