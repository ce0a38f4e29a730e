package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	ParentID  uuid.UUID
	StudentID *uuid.UUID
	Status    string
}

// AssignmentSubmissionRepository defines data operations for assignment attempts.
type AssignmentSubmissionRepository interface {
	Create(ctx context.Context, submission *models.AssignmentSubmission) error
	GetByID(ctx context.Context, assignmentID, id uuid.UUID) (models.AssignmentSubmission, error)
	Update(ctx context.Context, submission *models.AssignmentSubmission) error
	LatestAttempt(ctx context.Context, assignmentID, studentID uuid.UUID) (int, error)
	CountAttempts(ctx context.Context, assignmentID, studentID uuid.UUID) (int, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.AssignmentSubmission, error)
}

type assignmentSubmissionRepository struct {
	db *gorm.DB
}

// NewAssignmentSubmissionRepository instantiates the repository.
func NewAssignmentSubmissionRepository(db *gorm.DB) AssignmentSubmissionRepository {
	return &assignmentSubmissionRepository{db: db}
}

func (r *assignmentSubmissionRepository) Create(ctx context.Context, submission *models.AssignmentSubmission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "Student").Create(submission).Error
}

func (r *assignmentSubmissionRepository) GetByID(ctx context.Context, assignmentID, id uuid.UUID) (models.AssignmentSubmission, error) {
	var submission models.AssignmentSubmission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND id = ?", assignmentID, id).
		First(&submission).Error; err != nil {
		return models.AssignmentSubmission{}, err
	}
	return submission, nil
}

func (r *assignmentSubmissionRepository) Update(ctx context.Context, submission *models.AssignmentSubmission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "Student").Save(submission).Error
}

func (r *assignmentSubmissionRepository) LatestAttempt(ctx context.Context, assignmentID, studentID uuid.UUID) (int, error) {
	var latest int
	if err := r.db.WithContext(ctx).
		Model(&models.AssignmentSubmission{}).
		Select("COALESCE(MAX(attempt_number), 0)").
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Scan(&latest).Error; err != nil {
		return 0, err
	}
	return latest, nil
}

func (r *assignmentSubmissionRepository) CountAttempts(ctx context.Context, assignmentID, studentID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AssignmentSubmission{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *assignmentSubmissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.AssignmentSubmission, error) {
	query := r.db.WithContext(ctx).Where("assignment_id = ?", filter.ParentID)
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var submissions []models.AssignmentSubmission
	if err := query.Order("created_at DESC").Order("attempt_number DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// QuizSubmissionRepository defines data operations for quiz attempts.
type QuizSubmissionRepository interface {
	Create(ctx context.Context, submission *models.QuizSubmission) error
	GetByID(ctx context.Context, quizID, id uuid.UUID) (models.QuizSubmission, error)
	Update(ctx context.Context, submission *models.QuizSubmission) error
	LatestAttempt(ctx context.Context, quizID, studentID uuid.UUID) (int, error)
	CountAttempts(ctx context.Context, quizID, studentID uuid.UUID) (int, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.QuizSubmission, error)
}

type quizSubmissionRepository struct {
	db *gorm.DB
}

// NewQuizSubmissionRepository instantiates the repository.
func NewQuizSubmissionRepository(db *gorm.DB) QuizSubmissionRepository {
	return &quizSubmissionRepository{db: db}
}

func (r *quizSubmissionRepository) Create(ctx context.Context, submission *models.QuizSubmission) error {
	return r.db.WithContext(ctx).Omit("Quiz", "Student").Create(submission).Error
}

func (r *quizSubmissionRepository) GetByID(ctx context.Context, quizID, id uuid.UUID) (models.QuizSubmission, error) {
	var submission models.QuizSubmission
	if err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND id = ?", quizID, id).
		First(&submission).Error; err != nil {
		return models.QuizSubmission{}, err
	}
	return submission, nil
}

func (r *quizSubmissionRepository) Update(ctx context.Context, submission *models.QuizSubmission) error {
	return r.db.WithContext(ctx).Omit("Quiz", "Student").Save(submission).Error
}

func (r *quizSubmissionRepository) LatestAttempt(ctx context.Context, quizID, studentID uuid.UUID) (int, error) {
	var latest int
	if err := r.db.WithContext(ctx).
		Model(&models.QuizSubmission{}).
		Select("COALESCE(MAX(attempt_number), 0)").
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Scan(&latest).Error; err != nil {
		return 0, err
	}
	return latest, nil
}

func (r *quizSubmissionRepository) CountAttempts(ctx context.Context, quizID, studentID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.QuizSubmission{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *quizSubmissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.QuizSubmission, error) {
	query := r.db.WithContext(ctx).Where("quiz_id = ?", filter.ParentID)
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var submissions []models.QuizSubmission
	if err := query.Order("created_at DESC").Order("attempt_number DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}
