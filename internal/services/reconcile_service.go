package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finlink/internal/errors"
	"finlink/internal/logger"
	"finlink/internal/models"
	"finlink/internal/normalize"
	"finlink/internal/pagination"
)

// reconcileService runs the cross-source reconciliation pass.
type reconcileService struct {
	db             *gorm.DB
	windowDays     int
	tolerancePct   float64
	providerMarker string
}

// NewReconcileService creates a new ReconcileServicer. windowDays and
// tolerancePct are the default date window and amount tolerance; the
// provider marker identifies provider-side descriptions (e.g. "paypal").
func NewReconcileService(db *gorm.DB, windowDays int, tolerancePct float64, providerMarker string) ReconcileServicer {
	return &reconcileService{
		db:             db,
		windowDays:     windowDays,
		tolerancePct:   tolerancePct,
		providerMarker: providerMarker,
	}
}

// Reconcile matches not-yet-reconciled bank-side and provider-side
// transactions for a user. The pass only ever touches unreconciled rows,
// so repeated runs are idempotent: no double-linking, no double-enrichment.
func (s *reconcileService) Reconcile(userID uint, opts ReconcileOptions) (*ReconcileResult, error) {
	log := logger.Get()

	windowDays := opts.DateToleranceDays
	if windowDays <= 0 {
		windowDays = s.windowDays
	}
	marker := opts.ProviderMarker
	if marker == "" {
		marker = s.providerMarker
	}

	var unreconciled []models.Transaction
	if err := s.db.
		Where("user_id = ? AND (reconciliation = '' OR reconciliation IS NULL)", userID).
		Order("execution_date").
		Find(&unreconciled).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var bankSide, providerSide []*models.Transaction
	for i := range unreconciled {
		tx := &unreconciled[i]
		if isProviderSource(tx.Source) {
			providerSide = append(providerSide, tx)
		} else {
			bankSide = append(bankSide, tx)
		}
	}

	matchedBank := make(map[uint]bool)
	matchedProvider := make(map[uint]bool)
	reconciled := 0

	for _, provider := range providerSide {
		if !containsFold(provider.Description, marker) {
			continue
		}

		best := s.closestBankMatch(provider, bankSide, matchedBank, windowDays)
		if best == nil {
			continue
		}

		deltaDays := dateDeltaDays(provider.ExecutionDate, best.ExecutionDate)
		if err := s.link(userID, best, provider, marker, deltaDays); err != nil {
			return nil, err
		}
		matchedBank[best.ID] = true
		matchedProvider[provider.ID] = true
		reconciled++

		log.Infow("reconciled transaction pair",
			"user_id", userID,
			"primary_id", best.ID,
			"secondary_id", provider.ID,
			"date_delta_days", deltaDays)
	}

	var remaining []models.Transaction
	for i := range unreconciled {
		tx := unreconciled[i]
		if !matchedBank[tx.ID] && !matchedProvider[tx.ID] {
			remaining = append(remaining, tx)
		}
	}

	return &ReconcileResult{ReconciledCount: reconciled, Unreconciled: remaining}, nil
}

// closestBankMatch applies the amount/date tolerances and picks the
// chronologically closest unmatched bank-side candidate.
func (s *reconcileService) closestBankMatch(provider *models.Transaction, bankSide []*models.Transaction, taken map[uint]bool, windowDays int) *models.Transaction {
	var best *models.Transaction
	var bestDelta time.Duration
	for _, bank := range bankSide {
		if taken[bank.ID] {
			continue
		}
		if !amountsWithinTolerance(provider.Amount, bank.Amount, s.tolerancePct) {
			continue
		}
		delta := absDuration(provider.ExecutionDate.Sub(bank.ExecutionDate))
		if delta > time.Duration(windowDays)*24*time.Hour {
			continue
		}
		if best == nil || delta < bestDelta {
			best = bank
			bestDelta = delta
		}
	}
	return best
}

// link marks the pair, enriches the primary description with the provider
// merchant and records the link, all in one transaction.
func (s *reconcileService) link(userID uint, primary, secondary *models.Transaction, marker string, deltaDays int) error {
	merchant := secondary.MerchantName
	if merchant == "" {
		merchant = merchantFromDescription(secondary.Description, marker)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		primaryUpdates := map[string]interface{}{
			"reconciliation": models.ReconciledAsPrimary,
		}
		if merchant != "" && !containsFold(primary.Description, "["+merchant+"]") {
			enriched := primary.Description + " [" + merchant + "]"
			primaryUpdates["description"] = enriched
			primaryUpdates["normalized_description"] = normalize.Text(enriched)
			primary.Description = enriched
		}
		if err := tx.Model(primary).Updates(primaryUpdates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Model(secondary).Update("reconciliation", models.ReconciledAsSecondary).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		lnk := &models.ReconciliationLink{
			UserID:                 userID,
			PrimaryTransactionID:   primary.ID,
			SecondaryTransactionID: secondary.ID,
			DateDeltaDays:          deltaDays,
			MatchedAt:              time.Now(),
		}
		if err := tx.Create(lnk).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetUserLinks retrieves a user's reconciliation links.
func (s *reconcileService) GetUserLinks(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.ReconciliationLink], error) {
	page.Defaults()

	base := s.db.Model(&models.ReconciliationLink{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var links []models.ReconciliationLink
	if err := base.Preload("PrimaryTransaction").Preload("SecondaryTransaction").
		Scopes(pagination.Paginate(page)).
		Find(&links).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(links, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Unlink removes a reconciliation link and returns both transactions to
// the unreconciled pool.
func (s *reconcileService) Unlink(userID, linkID uint) error {
	var lnk models.ReconciliationLink
	if err := s.db.Where("id = ? AND user_id = ?", linkID, userID).First(&lnk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrReconciliationLinkNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).
			Where("id IN ? AND user_id = ?", []uint{lnk.PrimaryTransactionID, lnk.SecondaryTransactionID}, userID).
			Update("reconciliation", models.ReconciledNone).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&lnk).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// isProviderSource classifies a source tag as provider-origin.
func isProviderSource(source string) bool {
	return strings.HasPrefix(strings.ToLower(source), "provider")
}

// amountsWithinTolerance reports whether two signed amounts have the same
// sign and differ by at most pct percent of the larger magnitude.
func amountsWithinTolerance(a, b decimal.Decimal, pct float64) bool {
	if a.Sign() != b.Sign() {
		return false
	}
	absA, absB := a.Abs(), b.Abs()
	larger := absA
	if absB.GreaterThan(larger) {
		larger = absB
	}
	if larger.IsZero() {
		return true
	}
	diff := absA.Sub(absB).Abs()
	tolerance := larger.Mul(decimal.NewFromFloat(pct / 100))
	return diff.LessThanOrEqual(tolerance)
}

// merchantFromDescription extracts the merchant from a provider-side
// description like "PROVIDER *ACME": the text after the marker, stripped
// of separator characters.
func merchantFromDescription(desc, marker string) string {
	idx := indexFold(desc, marker)
	if idx < 0 {
		return ""
	}
	rest := desc[idx+len(marker):]
	rest = strings.TrimLeft(rest, " *:-")
	if cut := strings.IndexAny(rest, ";|"); cut >= 0 {
		rest = rest[:cut]
	}
	return strings.TrimSpace(rest)
}

func containsFold(s, substr string) bool {
	return indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}
