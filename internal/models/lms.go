package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Enrollment statuses.
const (
	EnrollmentStatusActive         = "active"
	EnrollmentStatusPendingPayment = "pending_payment"
	EnrollmentStatusDropped        = "dropped"
)

// Lms is a course offering that owns a tree of module content.
type Lms struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code             string         `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Description      string         `gorm:"type:text" json:"description"`
	EnrollmentFeeIDR int64          `gorm:"column:enrollment_fee_idr;not null;default:0" json:"enrollment_fee_idr"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName pins the table name; gorm would otherwise pluralise to "lms".
func (Lms) TableName() string { return "lms_courses" }

// BeforeCreate assigns a UUID when missing.
func (l *Lms) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// Enrollment links a user to an LMS with a course-level role.
type Enrollment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LmsID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_lms_user" json:"lms_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_lms_user;index" json:"user_id"`
	Role      string    `gorm:"size:16;not null;default:'student'" json:"role"`
	Status    string    `gorm:"size:32;not null;default:'active'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lms       Lms       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when missing.
func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// IsActive reports whether the enrollment grants access to the course.
func (e Enrollment) IsActive() bool {
	return e.Status == EnrollmentStatusActive
}

// CanManage reports whether the enrollment allows authoring and grading.
func (e Enrollment) CanManage() bool {
	return e.IsActive() && e.Role == RoleTeacher
}
