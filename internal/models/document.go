package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentEmbedding is a chunk of course material with its embedding vector.
// The vector column is written and read through raw SQL so the struct only tracks metadata.
type DocumentEmbedding struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	LmsID     *uuid.UUID        `gorm:"type:uuid;index" json:"lms_id"`
	ContentID *uuid.UUID        `gorm:"type:uuid;index" json:"content_id"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Content   string            `gorm:"type:text;not null" json:"content"`
	Source    string            `gorm:"size:255" json:"source"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	Embedding string            `gorm:"type:vector(1536)" json:"-"`
	CreatedAt time.Time         `json:"created_at"`
}

// BeforeCreate assigns a UUID when missing.
func (d *DocumentEmbedding) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// ChatbotMessage is a stored question/answer exchange.
type ChatbotMessage struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	Question  string                      `gorm:"type:text;not null" json:"question"`
	Answer    string                      `gorm:"type:text;not null" json:"answer"`
	Sources   datatypes.JSONSlice[string] `json:"sources"`
	Model     string                      `gorm:"size:64" json:"model"`
	CreatedAt time.Time                   `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUID when missing.
func (m *ChatbotMessage) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
