package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// EnrollmentRepository persists course memberships.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Get(ctx context.Context, lmsID, userID uuid.UUID) (models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
	ListByLms(ctx context.Context, lmsID uuid.UUID) ([]models.Enrollment, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs a GORM-backed enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Omit("Lms", "User").Create(enrollment).Error
}

func (r *enrollmentRepository) Get(ctx context.Context, lmsID, userID uuid.UUID) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("lms_id = ? AND user_id = ?", lmsID, userID).
		First(&enrollment).Error; err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

func (r *enrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Omit("Lms", "User").Save(enrollment).Error
}

func (r *enrollmentRepository) ListByLms(ctx context.Context, lmsID uuid.UUID) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("lms_id = ?", lmsID).
		Order("created_at ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}
