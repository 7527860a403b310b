package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "finlink/internal/errors"
	"finlink/internal/logger"
	"finlink/internal/models"
	"finlink/internal/pagination"
	"finlink/internal/parsers"
)

// importService drives the decode, parse, enrich, persist and
// pattern-rescan pipeline for one import run.
type importService struct {
	db             *gorm.DB
	dedup          DedupServicer
	categorization CategorizationServicer
	tags           TagServicer
}

// NewImportService creates a new ImportServicer.
func NewImportService(db *gorm.DB, dedup DedupServicer, categorization CategorizationServicer, tags TagServicer) ImportServicer {
	return &importService{db: db, dedup: dedup, categorization: categorization, tags: tags}
}

// Import runs the full pipeline. Pipeline-level failures (unknown format
// tag, undecodable payload, missing column mapping, bad account) abort
// before any row is persisted; row-level failures are counted and the run
// continues.
func (s *importService) Import(ctx context.Context, userID uint, req ImportRequest) (*ImportSummary, error) {
	log := logger.Get()

	importLog := &models.ImportLog{
		UserID:    userID,
		FormatTag: req.FormatTag,
		FileName:  req.FileName,
		Status:    models.ImportStatusPending,
	}
	if err := s.db.Create(importLog).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	drafts, card, err := s.decodeAndParse(userID, req)
	if err != nil {
		s.failImport(importLog, err)
		return nil, err
	}

	importLog.Status = models.ImportStatusProcessing
	importLog.TotalRows = len(drafts)
	if err := s.db.Save(importLog).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Drafts are processed sequentially so duplicate, tag and category
	// side effects stay deterministic and ordered.
	summary := &ImportSummary{ImportID: importLog.PublicID}
	for i := range drafts {
		draft := drafts[i]
		s.enrich(ctx, userID, &draft, card)

		outcome, _, err := s.dedup.PersistDraft(userID, draft)
		importLog.ProcessedRows++
		if err != nil {
			importLog.FailedRows++
			summary.Failed++
			log.Warnw("import row failed", "import_id", importLog.PublicID, "row", i, "error", err)
			continue
		}
		switch outcome {
		case OutcomeCreated:
			importLog.SuccessfulRows++
			summary.Created++
		case OutcomeSuppressedDuplicate:
			importLog.DuplicateRows++
			summary.DuplicatesHandled++
			log.Infow("suppressed exact duplicate", "import_id", importLog.PublicID, "row", i)
		case OutcomeQueuedPendingDuplicate:
			importLog.PendingDuplicates++
			summary.PendingDuplicatesCreated++
		}
	}

	// Pattern rescan is best effort and never fails the import.
	if _, err := s.categorization.RescanUncategorized(ctx, userID); err != nil {
		log.Warnw("pattern rescan failed", "import_id", importLog.PublicID, "error", err)
	}

	if importLog.FailedRows == 0 {
		importLog.Status = models.ImportStatusCompleted
	} else {
		importLog.Status = models.ImportStatusPartiallyCompleted
	}
	if err := s.db.Save(importLog).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary.Status = importLog.Status
	return summary, nil
}

// decodeAndParse validates the account association, decodes the payload
// and dispatches to the declared parser or the generic mapped path.
func (s *importService) decodeAndParse(userID uint, req ImportRequest) ([]parsers.Draft, *models.CreditCard, error) {
	if (req.BankAccountID == nil) == (req.CreditCardID == nil) {
		return nil, nil, apperrors.ErrNoAccountAssociation
	}

	var card *models.CreditCard
	if req.CreditCardID != nil {
		var c models.CreditCard
		if err := s.db.Where("id = ? AND user_id = ?", *req.CreditCardID, userID).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, apperrors.ErrCreditCardNotFound
			}
			return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		card = &c
	} else {
		var count int64
		if err := s.db.Model(&models.BankAccount{}).
			Where("id = ? AND user_id = ?", *req.BankAccountID, userID).
			Count(&count).Error; err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, nil, apperrors.ErrBankAccountNotFound
		}
	}

	payload := parsers.MaybeDecodeBase64(req.Payload)
	if len(payload) == 0 {
		return nil, nil, apperrors.ErrUndecodablePayload
	}

	opts := parsers.Options{
		UserID:        userID,
		BankAccountID: req.BankAccountID,
		CreditCardID:  req.CreditCardID,
		Source:        req.Source,
		DatePattern:   req.DatePattern,
	}

	var parser parsers.Parser
	switch {
	case req.FormatTag != "":
		p, ok := parsers.Lookup(req.FormatTag)
		if !ok {
			return nil, nil, apperrors.WithMessage(apperrors.ErrUnsupportedFormat, "unsupported format tag: "+req.FormatTag)
		}
		parser = p
	case len(req.ColumnMapping) > 0:
		p, err := parsers.NewGenericParser(req.ColumnMapping)
		if err != nil {
			return nil, nil, err
		}
		parser = p
	default:
		return nil, nil, apperrors.WithMessage(apperrors.ErrUnsupportedFormat, "either a format tag or a column mapping is required")
	}

	drafts, err := parser.ParseFile(payload, opts)
	if err != nil {
		return nil, nil, err
	}
	return drafts, card, nil
}

// enrich fills the draft's billing date, resolved tags and category.
// Enrichment failures degrade per draft; they never abort the run.
func (s *importService) enrich(ctx context.Context, userID uint, draft *parsers.Draft, card *models.CreditCard) {
	log := logger.Get()

	if card != nil {
		draft.BillingDate = nextBillingDate(draft.ExecutionDate, card.BillingDay)
	} else {
		draft.BillingDate = draft.ExecutionDate
	}

	if len(draft.TagHints) > 0 {
		tags, err := s.tags.ResolveOrCreate(userID, draft.TagHints)
		if err != nil {
			log.Warnw("failed to resolve tags", "user_id", userID, "hints", draft.TagHints, "error", err)
		} else {
			draft.Tags = tags
		}
	}

	if draft.CategoryID != nil {
		return
	}
	if draft.CategoryHint != "" {
		var category models.Category
		err := s.db.Where("user_id = ? AND LOWER(name) = LOWER(?)", userID, draft.CategoryHint).First(&category).Error
		if err == nil {
			draft.CategoryID = &category.ID
			return
		}
	}
	suggestion, err := s.categorization.Suggest(ctx, userID, SuggestRequest{
		MerchantName: draft.MerchantName,
		MerchantCode: draft.MerchantCode,
		Description:  draft.Description,
		Amount:       draft.Amount,
		Type:         draft.Type,
	})
	if err != nil {
		log.Warnw("categorization failed during enrichment", "user_id", userID, "error", err)
		return
	}
	if suggestion != nil {
		draft.CategoryID = &suggestion.CategoryID
	}
}

func (s *importService) failImport(importLog *models.ImportLog, cause error) {
	importLog.Status = models.ImportStatusFailed
	importLog.Error = cause.Error()
	if err := s.db.Save(importLog).Error; err != nil {
		logger.Get().Errorw("failed to record import failure", "import_id", importLog.PublicID, "error", err)
	}
}

// GetImportByPublicID retrieves one import run by its public identifier.
func (s *importService) GetImportByPublicID(userID uint, publicID string) (*models.ImportLog, error) {
	var importLog models.ImportLog
	if err := s.db.Where("public_id = ? AND user_id = ?", publicID, userID).First(&importLog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrImportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &importLog, nil
}

// GetUserImports retrieves a user's import history, newest first.
func (s *importService) GetUserImports(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.ImportLog], error) {
	page.Defaults()

	base := s.db.Model(&models.ImportLog{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var imports []models.ImportLog
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&imports).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(imports, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// nextBillingDate returns the next occurrence of the card's billing day
// strictly after the execution date.
func nextBillingDate(execDate time.Time, billingDay int) time.Time {
	candidate := time.Date(execDate.Year(), execDate.Month(), billingDay, 12, 0, 0, 0, execDate.Location())
	if !candidate.After(execDate) {
		candidate = candidate.AddDate(0, 1, 0)
	}
	return candidate
}
