package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"finlink/internal/cache"
	"finlink/internal/classifier"
	apperrors "finlink/internal/errors"
	"finlink/internal/logger"
	"finlink/internal/models"
	"finlink/internal/normalize"
)

// noMerchantCode keys merchant rows for transactions without a category code.
const noMerchantCode = "none"

// keywordConfidence is the confidence reported for keyword-fallback hits.
const keywordConfidence = 0.5

// categorizationService is the tiered merchant categorization chain:
// process cache, then the persistent merchant table, then the external
// classifier. Classifier results are written back so future lookups
// short-circuit.
type categorizationService struct {
	db         *gorm.DB
	cache      *cache.MerchantCache
	classifier classifier.Classifier
}

// NewCategorizationService creates a new CategorizationServicer. The
// classifier may be nil, in which case tier 3 always declines.
func NewCategorizationService(db *gorm.DB, merchantCache *cache.MerchantCache, cls classifier.Classifier) CategorizationServicer {
	return &categorizationService{db: db, cache: merchantCache, classifier: cls}
}

// Suggest walks the tier chain. A nil suggestion with a nil error means
// every tier declined; that is the expected miss case, not a failure.
func (s *categorizationService) Suggest(ctx context.Context, userID uint, req SuggestRequest) (*Suggestion, error) {
	return s.suggest(ctx, userID, req, models.ClassificationAutomatic)
}

func (s *categorizationService) suggest(ctx context.Context, userID uint, req SuggestRequest, source string) (*Suggestion, error) {
	merchant := normalize.Text(req.MerchantName)
	if merchant == "" {
		category, err := s.KeywordSuggest(userID, req.Description)
		if err != nil || category == nil {
			return nil, err
		}
		return &Suggestion{
			CategoryID:   category.ID,
			CategoryName: category.Name,
			Confidence:   keywordConfidence,
			Tier:         0,
		}, nil
	}

	code := req.MerchantCode
	if code == "" {
		code = noMerchantCode
	}
	key := cache.Key{UserID: userID, Merchant: merchant, MerchantCode: code}

	// Tier 1: process cache.
	if cached, ok := s.cache.Get(key); ok {
		return &Suggestion{
			CategoryID:   cached.CategoryID,
			CategoryName: cached.CategoryName,
			Confidence:   cached.Confidence,
			Tier:         1,
		}, nil
	}

	// Tier 2: persistent merchant table.
	var record models.MerchantCategorization
	err := s.db.Preload("SuggestedCategory").
		Where("user_id = ? AND normalized_merchant = ? AND merchant_code = ?", userID, merchant, code).
		First(&record).Error
	switch {
	case err == nil:
		name := ""
		if record.SuggestedCategory != nil {
			name = record.SuggestedCategory.Name
		}
		s.cache.Set(key, cache.Suggestion{
			CategoryID:   record.SuggestedCategoryID,
			CategoryName: name,
			Confidence:   record.AvgConfidence,
		})
		return &Suggestion{
			CategoryID:   record.SuggestedCategoryID,
			CategoryName: name,
			Confidence:   record.AvgConfidence,
			Tier:         2,
		}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Tier 3: external classifier. Any failure degrades to no suggestion.
	if s.classifier == nil {
		return nil, nil
	}
	candidates, categoriesByName, err := s.loadCandidates(userID)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	result, err := s.classifier.Classify(ctx, classifier.Request{
		MerchantName: req.MerchantName,
		Description:  req.Description,
		Amount:       req.Amount,
		Type:         string(req.Type),
		Candidates:   candidates,
	})
	if err != nil || result == nil {
		if err != nil {
			logger.Get().Warnw("external classifier failed", "user_id", userID, "error", err)
		}
		return nil, nil
	}
	category, ok := categoriesByName[strings.ToLower(result.CategoryName)]
	if !ok {
		return nil, nil
	}

	// Write the success back into tiers 2 and 1.
	if err := s.recordClassification(userID, merchant, code, category.ID, result.Confidence, source); err != nil {
		logger.Get().Warnw("failed to persist classification", "user_id", userID, "merchant", merchant, "error", err)
	}
	s.cache.Set(key, cache.Suggestion{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Confidence:   result.Confidence,
	})

	return &Suggestion{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Confidence:   result.Confidence,
		Tier:         3,
	}, nil
}

func (s *categorizationService) loadCandidates(userID uint) ([]classifier.Candidate, map[string]*models.Category, error) {
	var categories []models.Category
	if err := s.db.Where("user_id = ?", userID).Find(&categories).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	candidates := make([]classifier.Candidate, 0, len(categories))
	byName := make(map[string]*models.Category, len(categories))
	for i := range categories {
		c := &categories[i]
		candidates = append(candidates, classifier.Candidate{ID: c.ID, Name: c.Name})
		byName[strings.ToLower(c.Name)] = c
	}
	return candidates, byName, nil
}

// recordClassification upserts the merchant row, updating the running
// average confidence and the bounded history.
func (s *categorizationService) recordClassification(userID uint, merchant, code string, categoryID uint, confidence float64, source string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var record models.MerchantCategorization
		err := tx.Where("user_id = ? AND normalized_merchant = ? AND merchant_code = ?", userID, merchant, code).
			First(&record).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		entry := models.ClassificationEntry{
			CategoryID: categoryID,
			Confidence: confidence,
			Source:     source,
			At:         time.Now(),
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = models.MerchantCategorization{
				UserID:              userID,
				NormalizedMerchant:  merchant,
				MerchantCode:        code,
				SuggestedCategoryID: categoryID,
				AvgConfidence:       confidence,
				UsageCount:          1,
				History:             models.ClassificationHistory{}.Append(entry),
			}
			if err := tx.Create(&record).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		}

		n := record.UsageCount + 1
		record.AvgConfidence = (record.AvgConfidence*float64(n-1) + confidence) / float64(n)
		record.UsageCount = n
		record.SuggestedCategoryID = categoryID
		record.History = record.History.Append(entry)
		if err := tx.Save(&record).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// Correct applies a user's manual category override for a merchant and
// invalidates every cache entry for that merchant so stale suggestions
// are never served again.
func (s *categorizationService) Correct(userID uint, merchantName, merchantCode string, categoryID uint) error {
	merchant := normalize.Text(merchantName)
	if merchant == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "merchant name is required")
	}
	code := merchantCode
	if code == "" {
		code = noMerchantCode
	}

	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCategoryNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.recordClassification(userID, merchant, code, categoryID, 1.0, models.ClassificationManualOverride); err != nil {
		return err
	}

	s.cache.InvalidateMerchant(userID, merchant)
	return nil
}

// KeywordSuggest matches the description against every category's keyword
// list. A nil category with a nil error means nothing matched.
func (s *categorizationService) KeywordSuggest(userID uint, description string) (*models.Category, error) {
	normalizedDesc := normalize.Text(description)
	if normalizedDesc == "" {
		return nil, nil
	}

	var categories []models.Category
	if err := s.db.Where("user_id = ? AND keywords <> ''", userID).Order("name").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range categories {
		c := &categories[i]
		for _, keyword := range strings.Split(c.Keywords, ",") {
			keyword = strings.TrimSpace(keyword)
			if keyword == "" {
				continue
			}
			if normalize.MatchesKeyword(normalizedDesc, keyword) {
				return c, nil
			}
		}
	}
	return nil, nil
}

// RescanUncategorized re-runs the suggestion chain over a user's
// uncategorized transactions, assigning categories where a tier produces
// one. Classifier write-backs from this path are tagged as bulk.
func (s *categorizationService) RescanUncategorized(ctx context.Context, userID uint) (int, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ? AND category_id IS NULL", userID).Find(&transactions).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	assigned := 0
	for i := range transactions {
		tx := &transactions[i]
		suggestion, err := s.suggest(ctx, userID, SuggestRequest{
			MerchantName: tx.MerchantName,
			MerchantCode: tx.MerchantCode,
			Description:  tx.Description,
			Amount:       tx.Amount,
			Type:         tx.Type,
		}, models.ClassificationBulk)
		if err != nil || suggestion == nil {
			continue
		}
		if err := s.db.Model(tx).Update("category_id", suggestion.CategoryID).Error; err != nil {
			logger.Get().Warnw("failed to assign category during rescan",
				"user_id", userID, "transaction_id", tx.ID, "error", err)
			continue
		}
		assigned++
	}
	return assigned, nil
}
