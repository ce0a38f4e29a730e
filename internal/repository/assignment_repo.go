package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// AssignmentRepository loads assignment payloads together with their content node.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Assignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// GetByID resolves either the assignment id or the id of its content node. Assignments whose
// node was deleted are reported as missing.
func (r *assignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).
		Joins("ModuleContent").
		Where("assignments.id = ? OR assignments.module_content_id = ?", id, id).
		First(&assignment).Error; err != nil {
		return models.Assignment{}, err
	}
	if assignment.ModuleContent == nil {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

// QuizRepository loads quiz payloads together with their content node.
type QuizRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Quiz, error)
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository instantiates a GORM-backed repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

// GetByID resolves either the quiz id or the id of its content node.
func (r *quizRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).
		Joins("ModuleContent").
		Where("quizzes.id = ? OR quizzes.module_content_id = ?", id, id).
		First(&quiz).Error; err != nil {
		return models.Quiz{}, err
	}
	if quiz.ModuleContent == nil {
		return models.Quiz{}, gorm.ErrRecordNotFound
	}
	return quiz, nil
}
