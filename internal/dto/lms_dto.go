package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// LmsCreateRequest creates a course.
type LmsCreateRequest struct {
	Code             string `json:"code" validate:"required,min=2,max=64"`
	Title            string `json:"title" validate:"required,min=3,max=255"`
	Description      string `json:"description" validate:"omitempty,max=5000"`
	EnrollmentFeeIDR int64  `json:"enrollment_fee_idr" validate:"gte=0"`
}

// LmsUpdateRequest partially updates a course.
type LmsUpdateRequest struct {
	Title            *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description      *string `json:"description" validate:"omitempty,max=5000"`
	EnrollmentFeeIDR *int64  `json:"enrollment_fee_idr" validate:"omitempty,gte=0"`
}

// LmsResponse is the public view of a course.
type LmsResponse struct {
	ID               uuid.UUID `json:"id"`
	Code             string    `json:"code"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	EnrollmentFeeIDR int64     `json:"enrollment_fee_idr"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LmsListResponse wraps a page of courses.
type LmsListResponse struct {
	Items      []LmsResponse  `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// NewLmsResponse converts a course model.
func NewLmsResponse(model models.Lms) LmsResponse {
	return LmsResponse{
		ID:               model.ID,
		Code:             model.Code,
		Title:            model.Title,
		Description:      model.Description,
		EnrollmentFeeIDR: model.EnrollmentFeeIDR,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// EnrollmentCreateRequest adds a member to a course.
type EnrollmentCreateRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Role   string `json:"role" validate:"required,oneof=student teacher"`
}

// EnrollmentResponse is the public view of a membership.
type EnrollmentResponse struct {
	ID        uuid.UUID     `json:"id"`
	LmsID     uuid.UUID     `json:"lms_id"`
	UserID    uuid.UUID     `json:"user_id"`
	Role      string        `json:"role"`
	Status    string        `json:"status"`
	User      *UserResponse `json:"user,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewEnrollmentResponse converts an enrollment model, embedding the user when loaded.
func NewEnrollmentResponse(model models.Enrollment) EnrollmentResponse {
	response := EnrollmentResponse{
		ID:        model.ID,
		LmsID:     model.LmsID,
		UserID:    model.UserID,
		Role:      model.Role,
		Status:    model.Status,
		CreatedAt: model.CreatedAt,
	}
	if model.User.ID != uuid.Nil {
		user := NewUserResponse(model.User)
		response.User = &user
	}
	return response
}
