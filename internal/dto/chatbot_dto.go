package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// ChatTurn is a previous exchange supplied by the client for context.
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

// ChatbotAskRequest asks the course assistant a question.
type ChatbotAskRequest struct {
	Message string     `json:"message" validate:"required,min=1,max=2000"`
	History []ChatTurn `json:"history" validate:"omitempty,max=20,dive"`
}

// SearchResultResponse is a course material chunk matched by similarity search.
type SearchResultResponse struct {
	ID         uuid.UUID  `json:"id"`
	LmsID      *uuid.UUID `json:"lms_id,omitempty"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Source     string     `json:"source"`
	Similarity float64    `json:"similarity"`
}

// ChatbotAnswerResponse is the assistant's reply.
type ChatbotAnswerResponse struct {
	ID        uuid.UUID              `json:"id"`
	Question  string                 `json:"question"`
	Answer    string                 `json:"answer"`
	Sources   []SearchResultResponse `json:"sources"`
	Model     string                 `json:"model"`
	CreatedAt time.Time              `json:"created_at"`
}

// ChatbotHistoryItem is a stored exchange.
type ChatbotHistoryItem struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []string  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChatbotHistoryItem converts a stored exchange.
func NewChatbotHistoryItem(model models.ChatbotMessage) ChatbotHistoryItem {
	sources := []string(model.Sources)
	if sources == nil {
		sources = []string{}
	}
	return ChatbotHistoryItem{
		ID:        model.ID,
		Question:  model.Question,
		Answer:    model.Answer,
		Sources:   sources,
		CreatedAt: model.CreatedAt,
	}
}

// VectorSearchRequest runs a similarity search. Zero values fall back to configured defaults.
type VectorSearchRequest struct {
	Query     string  `json:"query" validate:"required,max=2000"`
	Limit     int     `json:"limit" validate:"omitempty,gte=1,lte=20"`
	Threshold float64 `json:"threshold" validate:"omitempty,gt=0,lte=1"`
}

// DocumentIngestRequest stores a chunk of course material for retrieval.
type DocumentIngestRequest struct {
	Title     string                 `json:"title" validate:"required,max=255"`
	Content   string                 `json:"content" validate:"required,min=10,max=20000"`
	Source    string                 `json:"source" validate:"omitempty,max=255"`
	LmsID     *string                `json:"lms_id" validate:"omitempty,uuid"`
	ContentID *string                `json:"content_id" validate:"omitempty,uuid"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// DocumentResponse describes a stored chunk.
type DocumentResponse struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Source    string     `json:"source"`
	LmsID     *uuid.UUID `json:"lms_id"`
	ContentID *uuid.UUID `json:"content_id"`
	CreatedAt time.Time  `json:"created_at"`
}
