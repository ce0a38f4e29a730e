package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Graded work kinds.
const (
	GradeSourceAssignment = "assignment"
	GradeSourceQuiz       = "quiz"
)

// GradeRecord is the gradebook entry derived from a graded submission.
type GradeRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LmsID          uuid.UUID `gorm:"type:uuid;not null;index" json:"lms_id"`
	StudentID      uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	ContentID      uuid.UUID `gorm:"type:uuid;not null" json:"content_id"`
	SubmissionType string    `gorm:"size:16;not null;uniqueIndex:idx_grade_submission,priority:1" json:"submission_type"`
	SubmissionID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grade_submission,priority:2" json:"submission_id"`
	RawScore       float64   `gorm:"not null" json:"raw_score"`
	Penalty        float64   `gorm:"not null;default:0" json:"penalty"`
	FinalScore     float64   `gorm:"not null" json:"final_score"`
	MaxScore       float64   `gorm:"not null" json:"max_score"`
	Percentage     float64   `gorm:"not null" json:"percentage"`
	Letter         string    `gorm:"size:2;not null" json:"letter"`
	Feedback       string    `gorm:"type:text" json:"feedback"`
	GradedBy       uuid.UUID `gorm:"type:uuid;not null" json:"graded_by"`
	GradedAt       time.Time `json:"graded_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when missing.
func (g *GradeRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.ID)
	return nil
}

// LetterFor converts a percentage into a letter grade.
func LetterFor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}
