package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Module content node types.
const (
	ContentTypeSection     = "section"
	ContentTypeSubsection  = "subsection"
	ContentTypeLesson      = "lesson"
	ContentTypeAssignment  = "assignment"
	ContentTypeQuiz        = "quiz"
	ContentTypeVideo       = "video"
	ContentTypeExternalURL = "external_url"
	ContentTypeFile        = "file"
)

// ModuleContent is a node in the course material tree of an LMS.
type ModuleContent struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LmsID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"lms_id"`
	ParentID      *uuid.UUID     `gorm:"type:uuid;index" json:"parent_id"`
	ContentType   string         `gorm:"size:32;not null" json:"content_type"`
	Title         string         `gorm:"size:255;not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	Position      int            `gorm:"not null;default:0" json:"position"`
	PublishedAt   *time.Time     `gorm:"index" json:"published_at"`
	ToPublishAt   *time.Time     `gorm:"index" json:"to_publish_at"`
	UnpublishedAt *time.Time     `json:"unpublished_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Assignment   *Assignment   `gorm:"foreignKey:ModuleContentID" json:"assignment,omitempty"`
	Quiz         *Quiz         `gorm:"foreignKey:ModuleContentID" json:"quiz,omitempty"`
	Video        *Video        `gorm:"foreignKey:ModuleContentID" json:"video,omitempty"`
	ExternalURL  *ExternalURL  `gorm:"foreignKey:ModuleContentID" json:"external_url,omitempty"`
	FileResource *FileResource `gorm:"foreignKey:ModuleContentID" json:"file_resource,omitempty"`
}

// BeforeCreate assigns a UUID when missing.
func (m *ModuleContent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// IsContainer reports whether the node groups other nodes.
func (m ModuleContent) IsContainer() bool {
	return m.ContentType == ContentTypeSection || m.ContentType == ContentTypeSubsection
}

// IsPublishedAt reports whether the node is visible to learners at the reference time.
// A scheduled date that has already passed counts as published even before the promoter runs.
func (m ModuleContent) IsPublishedAt(reference time.Time) bool {
	if m.PublishedAt != nil && !m.PublishedAt.After(reference) {
		return true
	}
	if m.ToPublishAt != nil && !m.ToPublishAt.After(reference) {
		return true
	}
	return false
}

// IsScheduled reports whether the node waits for a future publish date.
func (m ModuleContent) IsScheduled(reference time.Time) bool {
	return m.PublishedAt == nil && m.ToPublishAt != nil && m.ToPublishAt.After(reference)
}

// IsLeafType reports whether a content type carries learning material rather than children.
func IsLeafType(contentType string) bool {
	switch contentType {
	case ContentTypeLesson, ContentTypeAssignment, ContentTypeQuiz, ContentTypeVideo, ContentTypeExternalURL, ContentTypeFile:
		return true
	default:
		return false
	}
}

// AllowsChild reports whether a node of parentType may hold a node of childType.
// A nil parent denotes the LMS root.
func AllowsChild(parentType *string, childType string) bool {
	if parentType == nil {
		return childType == ContentTypeSection
	}

	switch *parentType {
	case ContentTypeSection:
		return childType == ContentTypeSubsection || IsLeafType(childType)
	case ContentTypeSubsection:
		return IsLeafType(childType)
	default:
		return false
	}
}
