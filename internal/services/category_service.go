package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "finlink/internal/errors"
	"finlink/internal/models"
	"finlink/internal/pagination"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category. Keywords is a comma-separated
// list used by the keyword-matching fallback.
func (s *categoryService) CreateCategory(userID uint, name string, categoryType models.CategoryType, description, keywords string) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if categoryType != models.CategoryTypeIncome && categoryType != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be income or expense")
	}

	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("user_id = ? AND name = ?", userID, name).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category with this name already exists")
	}

	category := &models.Category{
		UserID:      userID,
		Name:        name,
		Type:        categoryType,
		Description: description,
		Keywords:    keywords,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// GetUserCategories retrieves a paginated list of categories for a user.
func (s *categoryService) GetUserCategories(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Category{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Scopes(pagination.Paginate(page)).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID for a specific user.
func (s *categoryService) GetCategoryByID(userID, categoryID uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates an existing category's name, description or
// keyword list.
func (s *categoryService) UpdateCategory(userID, categoryID uint, name, description, keywords string) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}
	if keywords != "" {
		updates["keywords"] = keywords
	}
	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return category, nil
}

// DeleteCategory soft-deletes a category. Existing transactions keep
// their category_id reference for historical records.
func (s *categoryService) DeleteCategory(userID, categoryID uint) error {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
