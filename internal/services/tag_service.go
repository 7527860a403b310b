package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "finlink/internal/errors"
	"finlink/internal/models"
	"finlink/internal/pagination"
)

// tagService handles tag-related business logic.
type tagService struct {
	db *gorm.DB
}

// NewTagService creates a new TagServicer.
func NewTagService(db *gorm.DB) TagServicer {
	return &tagService{db: db}
}

// ResolveOrCreate maps tag names to existing tags, creating any that do
// not exist yet. Names are trimmed and deduplicated case-insensitively.
func (s *tagService) ResolveOrCreate(userID uint, names []string) ([]models.Tag, error) {
	seen := make(map[string]bool, len(names))
	var tags []models.Tag
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		var tag models.Tag
		err := s.db.Where("user_id = ? AND name = ?", userID, name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.Tag{UserID: userID, Name: name}
			if err := s.db.Create(&tag).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		} else if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// GetUserTags retrieves a paginated list of a user's tags.
func (s *tagService) GetUserTags(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Tag], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Tag{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var tags []models.Tag
	if err := base.Order("name").Scopes(pagination.Paginate(page)).Find(&tags).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(tags, page.Page, page.PageSize, totalItems)
	return &result, nil
}
