package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// AssignmentSubmissionRequest starts an attempt. AttemptNumber defaults to the next free attempt.
type AssignmentSubmissionRequest struct {
	AttemptNumber *int   `json:"attempt_number" validate:"omitempty,gte=1,lte=100"`
	Content       string `json:"content" validate:"omitempty,max=50000"`
	FileURL       string `json:"file_url" validate:"omitempty,url,max=1024"`
}

// AssignmentSubmissionUpdateRequest edits a draft attempt.
type AssignmentSubmissionUpdateRequest struct {
	Content *string `json:"content" validate:"omitempty,max=50000"`
	FileURL *string `json:"file_url" validate:"omitempty,url,max=1024"`
}

// GradeRequest scores a submitted attempt.
type GradeRequest struct {
	Score    *float64 `json:"score" validate:"required,gte=0"`
	Feedback string   `json:"feedback" validate:"omitempty,max=5000"`
}

// AssignmentSubmissionResponse is the public view of an assignment attempt.
type AssignmentSubmissionResponse struct {
	ID            uuid.UUID  `json:"id"`
	AssignmentID  uuid.UUID  `json:"assignment_id"`
	StudentID     uuid.UUID  `json:"student_id"`
	AttemptNumber int        `json:"attempt_number"`
	Status        string     `json:"status"`
	Content       string     `json:"content"`
	FileURL       string     `json:"file_url"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	IsLate        bool       `json:"is_late"`
	Score         *float64   `json:"score"`
	Feedback      string     `json:"feedback"`
	GradedBy      *uuid.UUID `json:"graded_by"`
	GradedAt      *time.Time `json:"graded_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewAssignmentSubmissionResponse converts an assignment attempt.
func NewAssignmentSubmissionResponse(model models.AssignmentSubmission) AssignmentSubmissionResponse {
	return AssignmentSubmissionResponse{
		ID:            model.ID,
		AssignmentID:  model.AssignmentID,
		StudentID:     model.StudentID,
		AttemptNumber: model.AttemptNumber,
		Status:        model.Status,
		Content:       model.Content,
		FileURL:       model.FileURL,
		SubmittedAt:   model.SubmittedAt,
		IsLate:        model.IsLate,
		Score:         model.Score,
		Feedback:      model.Feedback,
		GradedBy:      model.GradedBy,
		GradedAt:      model.GradedAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// NewAssignmentSubmissionResponseSlice converts a slice of attempts.
func NewAssignmentSubmissionResponseSlice(items []models.AssignmentSubmission) []AssignmentSubmissionResponse {
	out := make([]AssignmentSubmissionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewAssignmentSubmissionResponse(item))
	}
	return out
}

// QuizStartRequest starts a quiz attempt.
type QuizStartRequest struct {
	AttemptNumber *int              `json:"attempt_number" validate:"omitempty,gte=1,lte=100"`
	Answers       map[string]string `json:"answers" validate:"omitempty,max=500"`
}

// QuizAnswersRequest replaces the answers of an editable attempt.
type QuizAnswersRequest struct {
	Answers map[string]string `json:"answers" validate:"required,max=500"`
}

// QuizReturnRequest sends an attempt back to the student.
type QuizReturnRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=2000"`
}

// QuizResubmitRequest resubmits a returned attempt, optionally with new answers.
type QuizResubmitRequest struct {
	Answers map[string]string `json:"answers" validate:"omitempty,max=500"`
}

// QuizSubmissionResponse is the public view of a quiz attempt.
type QuizSubmissionResponse struct {
	ID            uuid.UUID          `json:"id"`
	QuizID        uuid.UUID          `json:"quiz_id"`
	StudentID     uuid.UUID          `json:"student_id"`
	AttemptNumber int                `json:"attempt_number"`
	Status        string             `json:"status"`
	Answers       models.QuizAnswers `json:"answers"`
	StartedAt     time.Time          `json:"started_at"`
	SubmittedAt   *time.Time         `json:"submitted_at"`
	IsLate        bool               `json:"is_late"`
	Score         *float64           `json:"score"`
	Feedback      string             `json:"feedback"`
	ReturnReason  string             `json:"return_reason"`
	ReturnedAt    *time.Time         `json:"returned_at"`
	GradedBy      *uuid.UUID         `json:"graded_by"`
	GradedAt      *time.Time         `json:"graded_at"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewQuizSubmissionResponse converts a quiz attempt.
func NewQuizSubmissionResponse(model models.QuizSubmission) QuizSubmissionResponse {
	answers := model.Answers.Data()
	if answers == nil {
		answers = models.QuizAnswers{}
	}
	return QuizSubmissionResponse{
		ID:            model.ID,
		QuizID:        model.QuizID,
		StudentID:     model.StudentID,
		AttemptNumber: model.AttemptNumber,
		Status:        model.Status,
		Answers:       answers,
		StartedAt:     model.StartedAt,
		SubmittedAt:   model.SubmittedAt,
		IsLate:        model.IsLate,
		Score:         model.Score,
		Feedback:      model.Feedback,
		ReturnReason:  model.ReturnReason,
		ReturnedAt:    model.ReturnedAt,
		GradedBy:      model.GradedBy,
		GradedAt:      model.GradedAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// NewQuizSubmissionResponseSlice converts a slice of attempts.
func NewQuizSubmissionResponseSlice(items []models.QuizSubmission) []QuizSubmissionResponse {
	out := make([]QuizSubmissionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewQuizSubmissionResponse(item))
	}
	return out
}

// GradeResponse is a gradebook entry.
type GradeResponse struct {
	ID             uuid.UUID `json:"id"`
	LmsID          uuid.UUID `json:"lms_id"`
	StudentID      uuid.UUID `json:"student_id"`
	ContentID      uuid.UUID `json:"content_id"`
	SubmissionType string    `json:"submission_type"`
	SubmissionID   uuid.UUID `json:"submission_id"`
	RawScore       float64   `json:"raw_score"`
	Penalty        float64   `json:"penalty"`
	FinalScore     float64   `json:"final_score"`
	MaxScore       float64   `json:"max_score"`
	Percentage     float64   `json:"percentage"`
	Letter         string    `json:"letter"`
	Feedback       string    `json:"feedback"`
	GradedBy       uuid.UUID `json:"graded_by"`
	GradedAt       time.Time `json:"graded_at"`
}

// GradebookResponse lists grades with an average over the listed entries.
type GradebookResponse struct {
	Items             []GradeResponse `json:"items"`
	AveragePercentage float64         `json:"average_percentage"`
	Letter            string          `json:"letter"`
}

// NewGradeResponse converts a gradebook entry.
func NewGradeResponse(model models.GradeRecord) GradeResponse {
	return GradeResponse{
		ID:             model.ID,
		LmsID:          model.LmsID,
		StudentID:      model.StudentID,
		ContentID:      model.ContentID,
		SubmissionType: model.SubmissionType,
		SubmissionID:   model.SubmissionID,
		RawScore:       model.RawScore,
		Penalty:        model.Penalty,
		FinalScore:     model.FinalScore,
		MaxScore:       model.MaxScore,
		Percentage:     model.Percentage,
		Letter:         model.Letter,
		Feedback:       model.Feedback,
		GradedBy:       model.GradedBy,
		GradedAt:       model.GradedAt,
	}
}
