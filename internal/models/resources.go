package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Video is the payload attached to a video content node.
type Video struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleContentID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"module_content_id"`
	URL             string    `gorm:"size:1024;not null" json:"url"`
	Provider        string    `gorm:"size:32" json:"provider"`
	DurationSeconds int       `gorm:"not null;default:0" json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when missing.
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// ExternalURL is the payload attached to an external link content node.
type ExternalURL struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleContentID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"module_content_id"`
	URL             string    `gorm:"size:1024;not null" json:"url"`
	OpenInNewTab    bool      `gorm:"not null" json:"open_in_new_tab"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName keeps the acronym readable in the schema.
func (ExternalURL) TableName() string { return "external_urls" }

// BeforeCreate assigns a UUID when missing.
func (e *ExternalURL) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// FileResource is the payload attached to a downloadable file content node.
type FileResource struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleContentID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"module_content_id"`
	FileName        string    `gorm:"size:255;not null" json:"file_name"`
	URL             string    `gorm:"size:1024;not null" json:"url"`
	MimeType        string    `gorm:"size:128" json:"mime_type"`
	SizeBytes       int64     `gorm:"not null;default:0" json:"size_bytes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when missing.
func (f *FileResource) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}

// UploadRecord stores metadata about uploaded files.
type UploadRecord struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	FileName  string     `gorm:"size:255;not null" json:"file_name"`
	URL       string     `gorm:"size:1024;not null" json:"url"`
	MimeType  string     `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes int64      `gorm:"not null" json:"size_bytes"`
	Checksum  string     `gorm:"size:128;index" json:"checksum"`
	CreatedAt time.Time  `json:"created_at"`
}

// BeforeCreate assigns a UUID when missing.
func (u *UploadRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
