package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// ChatbotMessageRepository stores chatbot exchanges.
type ChatbotMessageRepository interface {
	Create(ctx context.Context, message *models.ChatbotMessage) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatbotMessage, error)
}

type chatbotMessageRepository struct {
	db *gorm.DB
}

// NewChatbotMessageRepository constructs a GORM-backed repository.
func NewChatbotMessageRepository(db *gorm.DB) ChatbotMessageRepository {
	return &chatbotMessageRepository{db: db}
}

func (r *chatbotMessageRepository) Create(ctx context.Context, message *models.ChatbotMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListByUser returns the most recent exchanges, newest first.
func (r *chatbotMessageRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatbotMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var messages []models.ChatbotMessage
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
