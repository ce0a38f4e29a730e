package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quiz question types.
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeShortAnswer    = "short_answer"
	QuestionTypeEssay          = "essay"
)

// QuizQuestion is one entry of a quiz question set stored as JSON.
type QuizQuestion struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer,omitempty"`
	Points  float64  `json:"points"`
}

// IsObjective reports whether the question can be scored without a teacher.
func (q QuizQuestion) IsObjective() bool {
	return q.Type == QuestionTypeMultipleChoice || q.Type == QuestionTypeTrueFalse
}

// Quiz is the payload attached to a quiz content node.
type Quiz struct {
	ID               uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleContentID  uuid.UUID                          `gorm:"type:uuid;uniqueIndex;not null" json:"module_content_id"`
	Instructions     string                             `gorm:"type:text" json:"instructions"`
	MaxScore         float64                            `gorm:"not null;default:100" json:"max_score"`
	DueDate          *time.Time                         `gorm:"index" json:"due_date"`
	MaxAttempts      int                                `gorm:"not null" json:"max_attempts"`
	TimeLimitMinutes int                                `gorm:"not null;default:0" json:"time_limit_minutes"`
	AutoGrade        bool                               `gorm:"not null;default:false" json:"auto_grade"`
	Questions        datatypes.JSONType[[]QuizQuestion] `json:"questions"`
	CreatedAt        time.Time                          `json:"created_at"`
	UpdatedAt        time.Time                          `json:"updated_at"`

	ModuleContent *ModuleContent `gorm:"foreignKey:ModuleContentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when missing.
func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

// IsPastDue returns true when the quiz deadline has already passed.
func (q Quiz) IsPastDue(reference time.Time) bool {
	return q.DueDate != nil && reference.After(*q.DueDate)
}

// AttemptsExhausted reports whether no further attempt may be started. Zero means unlimited.
func (q Quiz) AttemptsExhausted(used int) bool {
	return q.MaxAttempts > 0 && used >= q.MaxAttempts
}

// EffectiveMaxScore falls back to 100 when no maximum was configured.
func (q Quiz) EffectiveMaxScore() float64 {
	if q.MaxScore <= 0 {
		return 100
	}
	return q.MaxScore
}

// FullyObjective reports whether every question can be scored automatically.
func (q Quiz) FullyObjective() bool {
	questions := q.Questions.Data()
	if len(questions) == 0 {
		return false
	}
	for _, question := range questions {
		if !question.IsObjective() {
			return false
		}
	}
	return true
}
