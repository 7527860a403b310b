package services

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "finlink/internal/errors"
	"finlink/internal/models"
	"finlink/internal/normalize"
	"finlink/internal/testutil"
)

func newProviderTransaction(userID, accountID uint, amount, desc, merchant string, execDate time.Time) *models.Transaction {
	return &models.Transaction{
		UserID:                userID,
		BankAccountID:         &accountID,
		Type:                  models.TransactionTypeExpense,
		Amount:                decimal.RequireFromString(amount),
		Description:           desc,
		NormalizedDescription: normalize.Text(desc),
		ExecutionDate:         execDate,
		BillingDate:           execDate,
		Status:                models.TransactionStatusExecuted,
		Source:                "provider_feed",
		MerchantName:          merchant,
	}
}

func TestReconcileMatchesBankAndProvider(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := NewReconcileService(db, 3, 1.0, "provider")

	bank := testutil.CreateTestTransaction(t, db, user.ID, account.ID,
		decimal.RequireFromString("-19.99"), "POS PURCHASE", localNoon(2024, 3, 15))

	provider := newProviderTransaction(user.ID, account.ID, "-19.99", "PROVIDER *ACME", "", localNoon(2024, 3, 17))
	testutil.AssertNoError(t, db.Create(provider).Error)

	result, err := svc.Reconcile(user.ID, ReconcileOptions{})
	testutil.AssertNoError(t, err)
	if result.ReconciledCount != 1 {
		t.Fatalf("expected 1 reconciled pair, got %d", result.ReconciledCount)
	}

	var primary, secondary models.Transaction
	db.First(&primary, bank.ID)
	db.First(&secondary, provider.ID)

	if primary.Reconciliation != models.ReconciledAsPrimary {
		t.Errorf("bank side should be primary, got %q", primary.Reconciliation)
	}
	if secondary.Reconciliation != models.ReconciledAsSecondary {
		t.Errorf("provider side should be secondary, got %q", secondary.Reconciliation)
	}

	// The provider merchant is appended in delimited form, the original
	// bank text is kept.
	if primary.Description != "POS PURCHASE [ACME]" {
		t.Errorf("unexpected enriched description %q", primary.Description)
	}

	var link models.ReconciliationLink
	testutil.AssertNoError(t, db.Where("user_id = ?", user.ID).First(&link).Error)
	if link.PrimaryTransactionID != bank.ID || link.SecondaryTransactionID != provider.ID {
		t.Error("link references the wrong transactions")
	}
	if link.DateDeltaDays != 2 {
		t.Errorf("expected logged date delta 2, got %d", link.DateDeltaDays)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := NewReconcileService(db, 3, 1.0, "provider")

	bank := testutil.CreateTestTransaction(t, db, user.ID, account.ID,
		decimal.RequireFromString("-19.99"), "POS PURCHASE", localNoon(2024, 3, 15))
	provider := newProviderTransaction(user.ID, account.ID, "-19.99", "PROVIDER *ACME", "", localNoon(2024, 3, 17))
	testutil.AssertNoError(t, db.Create(provider).Error)

	first, err := svc.Reconcile(user.ID, ReconcileOptions{})
	testutil.AssertNoError(t, err)
	if first.ReconciledCount != 1 {
		t.Fatalf("expected 1 match on first run, got %d", first.ReconciledCount)
	}

	second, err := svc.Reconcile(user.ID, ReconcileOptions{})
	testutil.AssertNoError(t, err)
	if second.ReconciledCount != 0 {
		t.Fatalf("expected 0 matches on second run, got %d", second.ReconciledCount)
	}

	// No double-enrichment either.
	var primary models.Transaction
	db.First(&primary, bank.ID)
	if strings.Count(primary.Description, "[ACME]") != 1 {
		t.Errorf("merchant appended more than once: %q", primary.Description)
	}

	var linkCount int64
	db.Model(&models.ReconciliationLink{}).Where("user_id = ?", user.ID).Count(&linkCount)
	if linkCount != 1 {
		t.Errorf("expected 1 link, got %d", linkCount)
	}
}

func TestReconcileAmountTolerance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := NewReconcileService(db, 3, 1.0, "provider")

	// Within 1%: 19.99 vs 20.15 differ by 0.16, tolerance is 0.2015.
	testutil.CreateTestTransaction(t, db, user.ID, account.ID,
		decimal.RequireFromString("-20.15"), "CARD PAYMENT", localNoon(2024, 3, 15))
	within := newProviderTransaction(user.ID, account.ID, "-19.99", "PROVIDER *SHOP", "", localNoon(2024, 3, 15))
	testutil.AssertNoError(t, db.Create(within).Error)

	result, err := svc.Reconcile(user.ID, ReconcileOptions{})
	testutil.AssertNoError(t, err)
	if result.ReconciledCount != 1 {
		t.Fatalf("amounts within tolerance should match, got %d", result.ReconciledCount)
	}

	// Beyond 1% stays unreconciled.
	testutil.CreateTestTransaction(t, db, user.ID, account.ID,
		decimal.RequireFromString("-50.00"), "OTHER PAYMENT", localNoon(2024, 4, 15))
	outside := newProviderTransaction(user.ID, account.ID, "-45.00", "PROVIDER *OTHER", "", localNoon(2024, 4, 15))
	testutil.AssertNoError(t, db.Create(outside).Error)

	result, err = svc.Reconcile(user.ID, ReconcileOptions{})
	testutil.AssertNoError(t, err)
	if result.ReconciledCount != 0 {
		t.Errorf("amounts beyond tolerance must not match, got %d", result.ReconciledCount)
	}
}

func TestReconcileRespectsDateWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := NewReconcileService(db, 3, 1.0, "provider")

	testutil.CreateTestTransaction(t, db, user.ID, account.ID,
		decimal.RequireFromString("-19.99"), "POS PURCHASE", localNoon(2024, 3, 10))
	provider := newProviderTransaction(user.ID, account.ID, "-19.99", "PROVIDER *ACME", "", localNoon(2024, 3, 17))
	testutil.AssertNoError(t, db.Create(provider).Error)

	result, err := svc.Reconcile(user.ID, ReconcileOptions{})
	testutil.AssertNoError(t, err)
	if result.ReconciledCount != 0 {
		t.Fatalf("7-day gap must not match with a 3-day window, got %d", result.ReconciledCount)
	}

	// Widening the window via options makes the pair match.
	result, err = svc.Reconcile(user.ID, ReconcileOptions{DateToleranceDays: 10})
	testutil.AssertNoError(t, err)
	if result.ReconciledCount != 1 {
		t.Errorf("expected match with widened window, got %d", result.ReconciledCount)
	}
}

func TestReconcileRequiresProviderMarker(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := NewReconcileService(db, 3, 1.0, "provider")

	testutil.CreateTestTransaction(t, db, user.ID, account.ID,
		decimal.RequireFromString("-19.99"), "POS PURCHASE", localNoon(2024, 3, 15))
	noMarker := newProviderTransaction(user.ID, account.ID, "-19.99", "DIRECT DEBIT ACME", "", localNoon(2024, 3, 16))
	testutil.AssertNoError(t, db.Create(noMarker).Error)

	result, err := svc.Reconcile(user.ID, ReconcileOptions{})
	testutil.AssertNoError(t, err)
	if result.ReconciledCount != 0 {
		t.Errorf("missing provider marker must not match, got %d", result.ReconciledCount)
	}
	if len(result.Unreconciled) != 2 {
		t.Errorf("expected 2 unreconciled rows, got %d", len(result.Unreconciled))
	}
}

func TestReconcilePrefersMerchantNameField(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := NewReconcileService(db, 3, 1.0, "provider")

	bank := testutil.CreateTestTransaction(t, db, user.ID, account.ID,
		decimal.RequireFromString("-12.50"), "CARD PAYMENT 4421", localNoon(2024, 3, 15))
	provider := newProviderTransaction(user.ID, account.ID, "-12.50", "provider payment ref 991", "ACME Store", localNoon(2024, 3, 15))
	testutil.AssertNoError(t, db.Create(provider).Error)

	result, err := svc.Reconcile(user.ID, ReconcileOptions{})
	testutil.AssertNoError(t, err)
	if result.ReconciledCount != 1 {
		t.Fatalf("expected 1 match, got %d", result.ReconciledCount)
	}

	var primary models.Transaction
	db.First(&primary, bank.ID)
	if primary.Description != "CARD PAYMENT 4421 [ACME Store]" {
		t.Errorf("unexpected enriched description %q", primary.Description)
	}
}

func TestUnlink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestBankAccount(t, db, user.ID)
	svc := NewReconcileService(db, 3, 1.0, "provider")

	bank := testutil.CreateTestTransaction(t, db, user.ID, account.ID,
		decimal.RequireFromString("-19.99"), "POS PURCHASE", localNoon(2024, 3, 15))
	provider := newProviderTransaction(user.ID, account.ID, "-19.99", "PROVIDER *ACME", "", localNoon(2024, 3, 16))
	testutil.AssertNoError(t, db.Create(provider).Error)

	_, err := svc.Reconcile(user.ID, ReconcileOptions{})
	testutil.AssertNoError(t, err)

	var link models.ReconciliationLink
	testutil.AssertNoError(t, db.Where("user_id = ?", user.ID).First(&link).Error)

	testutil.AssertNoError(t, svc.Unlink(user.ID, link.ID))

	var primary, secondary models.Transaction
	db.First(&primary, bank.ID)
	db.First(&secondary, provider.ID)
	if primary.Reconciliation != models.ReconciledNone || secondary.Reconciliation != models.ReconciledNone {
		t.Error("unlink should return both transactions to the unreconciled pool")
	}

	err = svc.Unlink(user.ID, link.ID)
	testutil.AssertAppError(t, err, apperrors.ErrReconciliationLinkNotFound.Code)
}

func TestAmountsWithinTolerance(t *testing.T) {
	tests := []struct {
		a, b string
		pct  float64
		want bool
	}{
		{"-19.99", "-19.99", 1.0, true},
		{"-19.99", "-20.15", 1.0, true},
		{"-45.00", "-50.00", 1.0, false},
		{"-19.99", "19.99", 1.0, false}, // opposite signs never match
		{"0", "0", 1.0, true},
	}
	for _, tt := range tests {
		a := decimal.RequireFromString(tt.a)
		b := decimal.RequireFromString(tt.b)
		if got := amountsWithinTolerance(a, b, tt.pct); got != tt.want {
			t.Errorf("amountsWithinTolerance(%s, %s, %v) = %v, want %v", tt.a, tt.b, tt.pct, got, tt.want)
		}
	}
}

func TestMerchantFromDescription(t *testing.T) {
	tests := []struct {
		desc   string
		marker string
		want   string
	}{
		{"PROVIDER *ACME", "provider", "ACME"},
		{"PayPal *ACME Corp", "paypal", "ACME Corp"},
		{"paypal: shop 24", "paypal", "shop 24"},
		{"DIRECT DEBIT", "paypal", ""},
	}
	for _, tt := range tests {
		if got := merchantFromDescription(tt.desc, tt.marker); got != tt.want {
			t.Errorf("merchantFromDescription(%q, %q) = %q, want %q", tt.desc, tt.marker, got, tt.want)
		}
	}
}
