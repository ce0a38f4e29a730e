package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// Content publication states derived from the publish timestamps.
const (
	ContentStatusDraft     = "draft"
	ContentStatusScheduled = "scheduled"
	ContentStatusPublished = "published"
)

// AssignmentPayload configures an assignment node.
type AssignmentPayload struct {
	Instructions        string     `json:"instructions" validate:"omitempty,max=20000"`
	MaxScore            float64    `json:"max_score" validate:"omitempty,gt=0,lte=1000"`
	DueDate             *time.Time `json:"due_date"`
	MaxAttempts         *int       `json:"max_attempts" validate:"omitempty,gte=0,lte=100"`
	AllowLateSubmission bool       `json:"allow_late_submission"`
	LatePenaltyPercent  float64    `json:"late_penalty_percent" validate:"omitempty,gte=0,lte=100"`
}

// QuizPayload configures a quiz node. Questions are validated against the quiz question schema.
type QuizPayload struct {
	Instructions     string          `json:"instructions" validate:"omitempty,max=20000"`
	MaxScore         float64         `json:"max_score" validate:"omitempty,gt=0,lte=1000"`
	DueDate          *time.Time      `json:"due_date"`
	MaxAttempts      *int            `json:"max_attempts" validate:"omitempty,gte=0,lte=100"`
	TimeLimitMinutes int             `json:"time_limit_minutes" validate:"omitempty,gte=0,lte=1440"`
	AutoGrade        bool            `json:"auto_grade"`
	Questions        json.RawMessage `json:"questions"`
}

// AssignmentPatch changes only the assignment fields that are present. ClearDueDate removes
// the deadline.
type AssignmentPatch struct {
	Instructions        *string    `json:"instructions" validate:"omitempty,max=20000"`
	MaxScore            *float64   `json:"max_score" validate:"omitempty,gt=0,lte=1000"`
	DueDate             *time.Time `json:"due_date"`
	ClearDueDate        bool       `json:"clear_due_date"`
	MaxAttempts         *int       `json:"max_attempts" validate:"omitempty,gte=0,lte=100"`
	AllowLateSubmission *bool      `json:"allow_late_submission"`
	LatePenaltyPercent  *float64   `json:"late_penalty_percent" validate:"omitempty,gte=0,lte=100"`
}

// QuizPatch changes only the quiz fields that are present.
type QuizPatch struct {
	Instructions     *string         `json:"instructions" validate:"omitempty,max=20000"`
	MaxScore         *float64        `json:"max_score" validate:"omitempty,gt=0,lte=1000"`
	DueDate          *time.Time      `json:"due_date"`
	ClearDueDate     bool            `json:"clear_due_date"`
	MaxAttempts      *int            `json:"max_attempts" validate:"omitempty,gte=0,lte=100"`
	TimeLimitMinutes *int            `json:"time_limit_minutes" validate:"omitempty,gte=0,lte=1440"`
	AutoGrade        *bool           `json:"auto_grade"`
	Questions        json.RawMessage `json:"questions"`
}

// Patch expresses a full create payload as a patch that sets every field.
func (p *AssignmentPayload) Patch() *AssignmentPatch {
	if p == nil {
		return nil
	}
	return &AssignmentPatch{
		Instructions:        &p.Instructions,
		MaxScore:            &p.MaxScore,
		DueDate:             p.DueDate,
		MaxAttempts:         p.MaxAttempts,
		AllowLateSubmission: &p.AllowLateSubmission,
		LatePenaltyPercent:  &p.LatePenaltyPercent,
	}
}

// Patch expresses a full create payload as a patch that sets every field.
func (p *QuizPayload) Patch() *QuizPatch {
	if p == nil {
		return nil
	}
	return &QuizPatch{
		Instructions:     &p.Instructions,
		MaxScore:         &p.MaxScore,
		DueDate:          p.DueDate,
		MaxAttempts:      p.MaxAttempts,
		TimeLimitMinutes: &p.TimeLimitMinutes,
		AutoGrade:        &p.AutoGrade,
		Questions:        p.Questions,
	}
}

// VideoPayload configures a video node.
type VideoPayload struct {
	URL             string `json:"url" validate:"required,url,max=1024"`
	Provider        string `json:"provider" validate:"omitempty,max=32"`
	DurationSeconds int    `json:"duration_seconds" validate:"omitempty,gte=0"`
}

// ExternalURLPayload configures an external link node.
type ExternalURLPayload struct {
	URL          string `json:"url" validate:"required,url,max=1024"`
	OpenInNewTab *bool  `json:"open_in_new_tab"`
}

// FilePayload references an already uploaded file.
type FilePayload struct {
	FileName  string `json:"file_name" validate:"required,max=255"`
	URL       string `json:"url" validate:"required,url,max=1024"`
	MimeType  string `json:"mime_type" validate:"omitempty,max=128"`
	SizeBytes int64  `json:"size_bytes" validate:"omitempty,gte=0"`
}

// ContentCreateRequest creates a node in the content tree.
type ContentCreateRequest struct {
	ParentID    *string             `json:"parent_id" validate:"omitempty,uuid"`
	ContentType string              `json:"content_type" validate:"required,oneof=section subsection lesson assignment quiz video external_url file"`
	Title       string              `json:"title" validate:"required,min=1,max=255"`
	Description string              `json:"description" validate:"omitempty,max=20000"`
	Position    *int                `json:"position" validate:"omitempty,gte=0"`
	Assignment  *AssignmentPayload  `json:"assignment"`
	Quiz        *QuizPayload        `json:"quiz"`
	Video       *VideoPayload       `json:"video"`
	ExternalURL *ExternalURLPayload `json:"external_url"`
	File        *FilePayload        `json:"file"`
}

// ContentUpdateRequest partially updates a node and its payload.
type ContentUpdateRequest struct {
	Title       *string             `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string             `json:"description" validate:"omitempty,max=20000"`
	Position    *int                `json:"position" validate:"omitempty,gte=0"`
	Assignment  *AssignmentPatch    `json:"assignment"`
	Quiz        *QuizPatch          `json:"quiz"`
	Video       *VideoPayload       `json:"video"`
	ExternalURL *ExternalURLPayload `json:"external_url"`
	File        *FilePayload        `json:"file"`
}

// PublishRequest publishes now or schedules a node.
type PublishRequest struct {
	ToPublishAt *time.Time `json:"to_publish_at"`
}

// AssignmentResponse is the public view of an assignment payload.
type AssignmentResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Instructions        string     `json:"instructions"`
	MaxScore            float64    `json:"max_score"`
	DueDate             *time.Time `json:"due_date"`
	MaxAttempts         int        `json:"max_attempts"`
	AllowLateSubmission bool       `json:"allow_late_submission"`
	LatePenaltyPercent  float64    `json:"late_penalty_percent"`
}

// QuizResponse is the public view of a quiz payload.
type QuizResponse struct {
	ID               uuid.UUID             `json:"id"`
	Instructions     string                `json:"instructions"`
	MaxScore         float64               `json:"max_score"`
	DueDate          *time.Time            `json:"due_date"`
	MaxAttempts      int                   `json:"max_attempts"`
	TimeLimitMinutes int                   `json:"time_limit_minutes"`
	AutoGrade        bool                  `json:"auto_grade"`
	Questions        []models.QuizQuestion `json:"questions"`
}

// ContentResponse is a node of the content tree as returned to clients.
type ContentResponse struct {
	ID            uuid.UUID            `json:"id"`
	LmsID         uuid.UUID            `json:"lms_id"`
	ParentID      *uuid.UUID           `json:"parent_id"`
	ContentType   string               `json:"content_type"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Position      int                  `json:"position"`
	Status        string               `json:"status"`
	PublishedAt   *time.Time           `json:"published_at"`
	ToPublishAt   *time.Time           `json:"to_publish_at"`
	UnpublishedAt *time.Time           `json:"unpublished_at"`
	Assignment    *AssignmentResponse  `json:"assignment,omitempty"`
	Quiz          *QuizResponse        `json:"quiz,omitempty"`
	Video         *models.Video        `json:"video,omitempty"`
	ExternalURL   *models.ExternalURL  `json:"external_url,omitempty"`
	FileResource  *models.FileResource `json:"file_resource,omitempty"`
	Children      []ContentResponse    `json:"children,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// PublishResponse reports the outcome of a publish or unpublish call.
type PublishResponse struct {
	Content   ContentResponse `json:"content"`
	Scheduled bool            `json:"scheduled"`
}

// ContentStatus derives the publication state at the reference time.
func ContentStatus(model models.ModuleContent, reference time.Time) string {
	switch {
	case model.IsPublishedAt(reference):
		return ContentStatusPublished
	case model.IsScheduled(reference):
		return ContentStatusScheduled
	default:
		return ContentStatusDraft
	}
}

// NewContentResponse converts a node. Quiz answers are only included when revealAnswers is set.
func NewContentResponse(model models.ModuleContent, reference time.Time, revealAnswers bool) ContentResponse {
	response := ContentResponse{
		ID:            model.ID,
		LmsID:         model.LmsID,
		ParentID:      model.ParentID,
		ContentType:   model.ContentType,
		Title:         model.Title,
		Description:   model.Description,
		Position:      model.Position,
		Status:        ContentStatus(model, reference),
		PublishedAt:   model.PublishedAt,
		ToPublishAt:   model.ToPublishAt,
		UnpublishedAt: model.UnpublishedAt,
		Video:         model.Video,
		ExternalURL:   model.ExternalURL,
		FileResource:  model.FileResource,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}

	if a := model.Assignment; a != nil {
		response.Assignment = &AssignmentResponse{
			ID:                  a.ID,
			Instructions:        a.Instructions,
			MaxScore:            a.MaxScore,
			DueDate:             a.DueDate,
			MaxAttempts:         a.MaxAttempts,
			AllowLateSubmission: a.AllowLateSubmission,
			LatePenaltyPercent:  a.LatePenaltyPercent,
		}
	}

	if q := model.Quiz; q != nil {
		questions := append([]models.QuizQuestion(nil), q.Questions.Data()...)
		if !revealAnswers {
			for i := range questions {
				questions[i].Answer = ""
			}
		}
		response.Quiz = &QuizResponse{
			ID:               q.ID,
			Instructions:     q.Instructions,
			MaxScore:         q.MaxScore,
			DueDate:          q.DueDate,
			MaxAttempts:      q.MaxAttempts,
			TimeLimitMinutes: q.TimeLimitMinutes,
			AutoGrade:        q.AutoGrade,
			Questions:        questions,
		}
	}

	return response
}
