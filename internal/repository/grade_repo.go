package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// GradeFilter narrows gradebook queries.
type GradeFilter struct {
	LmsID     *uuid.UUID
	StudentID *uuid.UUID
}

// GradeRepository persists gradebook entries.
type GradeRepository interface {
	Upsert(ctx context.Context, record *models.GradeRecord) error
	List(ctx context.Context, filter GradeFilter) ([]models.GradeRecord, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository constructs a GORM-backed gradebook repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

// Upsert writes the record, replacing any earlier grade for the same submission.
func (r *gradeRepository) Upsert(ctx context.Context, record *models.GradeRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "submission_type"}, {Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"raw_score", "penalty", "final_score", "max_score", "percentage",
			"letter", "feedback", "graded_by", "graded_at", "updated_at",
		}),
	}).Create(record).Error
}

func (r *gradeRepository) List(ctx context.Context, filter GradeFilter) ([]models.GradeRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.GradeRecord{})
	if filter.LmsID != nil {
		query = query.Where("lms_id = ?", *filter.LmsID)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	var records []models.GradeRecord
	if err := query.Order("graded_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
