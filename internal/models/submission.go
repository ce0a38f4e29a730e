package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission workflow states shared by assignments and quizzes.
const (
	SubmissionStatusDraft       = "draft"
	SubmissionStatusSubmitted   = "submitted"
	SubmissionStatusGraded      = "graded"
	SubmissionStatusReturned    = "returned"
	SubmissionStatusResubmitted = "resubmitted"
)

// AssignmentSubmission is one attempt by a student on an assignment.
type AssignmentSubmission struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_submission_attempt,priority:1" json:"assignment_id"`
	StudentID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_submission_attempt,priority:2;index" json:"student_id"`
	AttemptNumber int        `gorm:"not null;uniqueIndex:idx_assignment_submission_attempt,priority:3" json:"attempt_number"`
	Status        string     `gorm:"size:32;not null;default:'draft'" json:"status"`
	Content       string     `gorm:"type:text" json:"content"`
	FileURL       string     `gorm:"size:1024" json:"file_url"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	IsLate        bool       `gorm:"not null;default:false" json:"is_late"`
	Score         *float64   `json:"score"`
	Feedback      string     `gorm:"type:text" json:"feedback"`
	GradedBy      *uuid.UUID `gorm:"type:uuid" json:"graded_by"`
	GradedAt      *time.Time `json:"graded_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Assignment *Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student    *User       `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when missing.
func (s *AssignmentSubmission) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsDraft reports whether the student may still edit the attempt.
func (s AssignmentSubmission) IsDraft() bool {
	return s.Status == SubmissionStatusDraft
}

// IsGraded reports whether the attempt has a final score.
func (s AssignmentSubmission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// QuizAnswers maps a question id to the student's answer.
type QuizAnswers map[string]string

// QuizSubmission is one attempt by a student on a quiz.
type QuizSubmission struct {
	ID            uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID        uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex:idx_quiz_submission_attempt,priority:1" json:"quiz_id"`
	StudentID     uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex:idx_quiz_submission_attempt,priority:2;index" json:"student_id"`
	AttemptNumber int                             `gorm:"not null;uniqueIndex:idx_quiz_submission_attempt,priority:3" json:"attempt_number"`
	Status        string                          `gorm:"size:32;not null;default:'draft'" json:"status"`
	Answers       datatypes.JSONType[QuizAnswers] `json:"answers"`
	StartedAt     time.Time                       `json:"started_at"`
	SubmittedAt   *time.Time                      `json:"submitted_at"`
	IsLate        bool                            `gorm:"not null;default:false" json:"is_late"`
	Score         *float64                        `json:"score"`
	Feedback      string                          `gorm:"type:text" json:"feedback"`
	ReturnReason  string                          `gorm:"type:text" json:"return_reason"`
	ReturnedAt    *time.Time                      `json:"returned_at"`
	GradedBy      *uuid.UUID                      `gorm:"type:uuid" json:"graded_by"`
	GradedAt      *time.Time                      `json:"graded_at"`
	CreatedAt     time.Time                       `json:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"`

	Quiz    *Quiz `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student *User `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when missing.
func (s *QuizSubmission) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsEditable reports whether the student may still change answers.
func (s QuizSubmission) IsEditable() bool {
	return s.Status == SubmissionStatusDraft || s.Status == SubmissionStatusReturned
}

// AwaitingGrade reports whether a teacher may grade the attempt.
func (s QuizSubmission) AwaitingGrade() bool {
	return s.Status == SubmissionStatusSubmitted || s.Status == SubmissionStatusResubmitted
}

// Returnable reports whether a teacher may send the attempt back to the student.
func (s QuizSubmission) Returnable() bool {
	return s.AwaitingGrade() || s.Status == SubmissionStatusGraded
}
