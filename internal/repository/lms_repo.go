package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// LmsFilter narrows course listings. MemberID restricts the result to courses the user is
// actively enrolled in.
type LmsFilter struct {
	Page
	Search   string
	MemberID *uuid.UUID
}

// LmsRepository persists courses.
type LmsRepository interface {
	Create(ctx context.Context, lms *models.Lms) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Lms, error)
	Update(ctx context.Context, lms *models.Lms) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter LmsFilter) ([]models.Lms, int64, error)
}

type lmsRepository struct {
	db *gorm.DB
}

// NewLmsRepository constructs a GORM-backed course repository.
func NewLmsRepository(db *gorm.DB) LmsRepository {
	return &lmsRepository{db: db}
}

func (r *lmsRepository) Create(ctx context.Context, lms *models.Lms) error {
	return r.db.WithContext(ctx).Create(lms).Error
}

func (r *lmsRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Lms, error) {
	var lms models.Lms
	if err := r.db.WithContext(ctx).First(&lms, "id = ?", id).Error; err != nil {
		return models.Lms{}, err
	}
	return lms, nil
}

func (r *lmsRepository) Update(ctx context.Context, lms *models.Lms) error {
	return r.db.WithContext(ctx).Save(lms).Error
}

func (r *lmsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Lms{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *lmsRepository) List(ctx context.Context, filter LmsFilter) ([]models.Lms, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Lms{})

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(title) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
	}
	if filter.MemberID != nil {
		members := r.db.Model(&models.Enrollment{}).
			Select("lms_id").
			Where("user_id = ? AND status = ?", *filter.MemberID, models.EnrollmentStatusActive)
		query = query.Where("id IN (?)", members)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Lms
	if err := applyPagination(query.Order("title ASC"), filter.Page.Page, filter.PageSize).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}
