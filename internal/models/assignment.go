package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assignment is the payload attached to an assignment content node.
type Assignment struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleContentID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"module_content_id"`
	Instructions        string     `gorm:"type:text" json:"instructions"`
	MaxScore            float64    `gorm:"not null;default:100" json:"max_score"`
	DueDate             *time.Time `gorm:"index" json:"due_date"`
	MaxAttempts         int        `gorm:"not null" json:"max_attempts"`
	AllowLateSubmission bool       `gorm:"not null;default:false" json:"allow_late_submission"`
	LatePenaltyPercent  float64    `gorm:"not null;default:0" json:"late_penalty_percent"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	ModuleContent *ModuleContent `gorm:"foreignKey:ModuleContentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when missing.
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}

// AttemptsExhausted reports whether a student with the given attempt count may not start another one.
// Zero MaxAttempts means unlimited.
func (a Assignment) AttemptsExhausted(used int) bool {
	return a.MaxAttempts > 0 && used >= a.MaxAttempts
}

// EffectiveMaxScore falls back to 100 when no maximum was configured.
func (a Assignment) EffectiveMaxScore() float64 {
	if a.MaxScore <= 0 {
		return 100
	}
	return a.MaxScore
}
