package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// UploadRepository persists metadata about uploaded files.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	FindByChecksum(ctx context.Context, checksum string, userID *uuid.UUID) (models.UploadRecord, error)
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByChecksum returns the uploader's earliest record with the checksum. A nil userID
// matches anonymous uploads only.
func (r *uploadRepository) FindByChecksum(ctx context.Context, checksum string, userID *uuid.UUID) (models.UploadRecord, error) {
	query := r.db.WithContext(ctx).Where("checksum = ?", checksum)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		query = query.Where("user_id IS NULL")
	}

	var record models.UploadRecord
	if err := query.Order("created_at ASC").First(&record).Error; err != nil {
		return models.UploadRecord{}, err
	}
	return record, nil
}
