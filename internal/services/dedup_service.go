package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finlink/internal/errors"
	"finlink/internal/logger"
	"finlink/internal/models"
	"finlink/internal/normalize"
	"finlink/internal/pagination"
	"finlink/internal/parsers"
)

// similarityThreshold is the minimum normalized-description similarity for
// a near-miss to be queued as a pending duplicate.
const similarityThreshold = 0.65

// dedupService is the duplicate-aware transaction writer.
type dedupService struct {
	db         *gorm.DB
	windowDays int
}

// NewDedupService creates a new DedupServicer. windowDays is the fuzzy
// date window for pending-duplicate detection.
func NewDedupService(db *gorm.DB, windowDays int) DedupServicer {
	return &dedupService{db: db, windowDays: windowDays}
}

// PersistDraft inserts a draft unless it duplicates an existing row. An
// exact match suppresses the insert entirely; a near-miss queues a
// PendingDuplicate and inserts nothing.
func (s *dedupService) PersistDraft(userID uint, draft parsers.Draft) (PersistOutcome, *models.Transaction, error) {
	if (draft.BankAccountID == nil) == (draft.CreditCardID == nil) {
		return "", nil, apperrors.ErrNoAccountAssociation
	}
	if draft.Type != models.TransactionTypeIncome && draft.Type != models.TransactionTypeExpense {
		return "", nil, apperrors.ErrInvalidTransactionType
	}

	signed := signedAmount(draft.Amount, draft.Type)
	normalizedDesc := normalize.Text(draft.Description)

	// Exact match on external id.
	if draft.ExternalID != nil && *draft.ExternalID != "" {
		var count int64
		if err := s.db.Model(&models.Transaction{}).
			Where("user_id = ? AND external_id = ?", userID, *draft.ExternalID).
			Count(&count).Error; err != nil {
			return "", nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return OutcomeSuppressedDuplicate, nil, nil
		}
	}

	// Exact match on amount + execution date + normalized description.
	dayStart, dayEnd := dayBounds(draft.ExecutionDate)
	var count int64
	if err := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND amount = ? AND execution_date BETWEEN ? AND ? AND normalized_description = ?",
			userID, signed, dayStart, dayEnd, normalizedDesc).
		Count(&count).Error; err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return OutcomeSuppressedDuplicate, nil, nil
	}

	// Fuzzy match: same amount within a small date window, similar
	// description. The draft is held for human resolution instead of
	// being inserted.
	match, err := s.findFuzzyMatch(userID, signed, draft.ExecutionDate, normalizedDesc)
	if err != nil {
		return "", nil, err
	}
	if match != nil {
		queued, err := s.queuePendingDuplicate(userID, draft, match)
		if err != nil {
			return "", nil, err
		}
		if queued {
			return OutcomeQueuedPendingDuplicate, nil, nil
		}
		// An identical pending duplicate already exists from a previous
		// run; treat the draft as handled.
		return OutcomeSuppressedDuplicate, nil, nil
	}

	tx, err := s.insertFromDraft(userID, draft)
	if err != nil {
		return "", nil, err
	}
	return OutcomeCreated, tx, nil
}

// findFuzzyMatch returns the chronologically closest near-duplicate, or
// nil when none is within tolerance.
func (s *dedupService) findFuzzyMatch(userID uint, signed decimal.Decimal, execDate time.Time, normalizedDesc string) (*models.Transaction, error) {
	from := execDate.AddDate(0, 0, -s.windowDays)
	to := execDate.AddDate(0, 0, s.windowDays)

	var candidates []models.Transaction
	if err := s.db.
		Where("user_id = ? AND amount = ? AND execution_date BETWEEN ? AND ?", userID, signed, from, to).
		Find(&candidates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var best *models.Transaction
	var bestDelta time.Duration
	for i := range candidates {
		c := &candidates[i]
		if descriptionSimilarity(normalizedDesc, c.NormalizedDescription) < similarityThreshold {
			continue
		}
		delta := absDuration(execDate.Sub(c.ExecutionDate))
		if best == nil || delta < bestDelta {
			best = c
			bestDelta = delta
		}
	}
	return best, nil
}

// queuePendingDuplicate snapshots the draft against its match. Returns
// false when an equivalent open pending duplicate already exists, so
// re-importing the same file does not queue the pair twice.
func (s *dedupService) queuePendingDuplicate(userID uint, draft parsers.Draft, match *models.Transaction) (bool, error) {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := s.db.Model(&models.PendingDuplicate{}).
		Where("user_id = ? AND existing_transaction_id = ? AND draft_json = ? AND status = ?",
			userID, match.ID, string(draftJSON), models.PendingDuplicateOpen).
		Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return false, nil
	}

	deltaDays := dateDeltaDays(draft.ExecutionDate, match.ExecutionDate)
	pending := &models.PendingDuplicate{
		UserID:                userID,
		ExistingTransactionID: match.ID,
		DraftJSON:             string(draftJSON),
		DateDeltaDays:         deltaDays,
		Status:                models.PendingDuplicateOpen,
	}
	if err := s.db.Create(pending).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("queued pending duplicate",
		"user_id", userID,
		"existing_transaction_id", match.ID,
		"date_delta_days", deltaDays)
	return true, nil
}

// insertFromDraft writes a draft as a canonical transaction, applying the
// sign convention and stored normalization.
func (s *dedupService) insertFromDraft(userID uint, draft parsers.Draft) (*models.Transaction, error) {
	billingDate := draft.BillingDate
	if billingDate.IsZero() {
		billingDate = draft.ExecutionDate
	}
	status := draft.Status
	if status == "" {
		status = models.TransactionStatusExecuted
	}

	tx := &models.Transaction{
		UserID:                userID,
		BankAccountID:         draft.BankAccountID,
		CreditCardID:          draft.CreditCardID,
		CategoryID:            draft.CategoryID,
		Type:                  draft.Type,
		Amount:                signedAmount(draft.Amount, draft.Type),
		Description:           draft.Description,
		NormalizedDescription: normalize.Text(draft.Description),
		ExecutionDate:         draft.ExecutionDate,
		BillingDate:           billingDate,
		Status:                status,
		Source:                draft.Source,
		ExternalID:            draft.ExternalID,
		MerchantName:          draft.MerchantName,
		MerchantCode:          draft.MerchantCode,
		Tags:                  draft.Tags,
	}
	if err := s.db.Create(tx).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tx, nil
}

// ListPendingDuplicates retrieves a user's open pending duplicates.
func (s *dedupService) ListPendingDuplicates(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.PendingDuplicate], error) {
	page.Defaults()

	base := s.db.Model(&models.PendingDuplicate{}).
		Where("user_id = ? AND status = ?", userID, models.PendingDuplicateOpen)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var pendings []models.PendingDuplicate
	if err := base.Preload("ExistingTransaction").
		Scopes(pagination.Paginate(page)).
		Find(&pendings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(pendings, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ResolvePendingDuplicate applies a human decision to an open pending
// duplicate. Resolution is never automatic.
func (s *dedupService) ResolvePendingDuplicate(userID, pendingID uint, resolution string) (*models.Transaction, error) {
	var pending models.PendingDuplicate
	if err := s.db.Where("id = ? AND user_id = ?", pendingID, userID).First(&pending).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPendingDuplicateNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if pending.Status != models.PendingDuplicateOpen {
		return nil, apperrors.ErrDuplicateAlreadyResolved
	}

	var draft parsers.Draft
	if err := json.Unmarshal([]byte(pending.DraftJSON), &draft); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	switch resolution {
	case ResolutionAcceptNew:
		tx, err := s.insertFromDraft(userID, draft)
		if err != nil {
			return nil, err
		}
		if err := s.db.Model(&pending).Update("status", models.PendingDuplicateAcceptedNew).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return tx, nil

	case ResolutionKeepExisting:
		if err := s.db.Model(&pending).Update("status", models.PendingDuplicateKeptExisting).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.getExisting(userID, pending.ExistingTransactionID)

	case ResolutionMerge:
		existing, err := s.getExisting(userID, pending.ExistingTransactionID)
		if err != nil {
			return nil, err
		}
		updates := make(map[string]interface{})
		if existing.ExternalID == nil && draft.ExternalID != nil {
			updates["external_id"] = draft.ExternalID
		}
		if existing.MerchantName == "" && draft.MerchantName != "" {
			updates["merchant_name"] = draft.MerchantName
		}
		if existing.MerchantCode == "" && draft.MerchantCode != "" {
			updates["merchant_code"] = draft.MerchantCode
		}
		if len(updates) > 0 {
			if err := s.db.Model(existing).Updates(updates).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := s.db.Model(&pending).Update("status", models.PendingDuplicateMerged).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return existing, nil

	default:
		return nil, apperrors.ErrInvalidResolution
	}
}

func (s *dedupService) getExisting(userID, transactionID uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tx, nil
}

// signedAmount applies the storage sign convention: negative for expenses,
// positive for income, regardless of how the source formatted the value.
func signedAmount(magnitude decimal.Decimal, txType models.TransactionType) decimal.Decimal {
	abs := magnitude.Abs()
	if txType == models.TransactionTypeExpense {
		return abs.Neg()
	}
	return abs
}

// descriptionSimilarity is a levenshtein-based ratio in [0,1] over
// normalized descriptions.
func descriptionSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func dateDeltaDays(a, b time.Time) int {
	delta := int(absDuration(a.Sub(b)).Hours() / 24)
	return delta
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
