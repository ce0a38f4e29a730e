package ai

import (
	"context"
	"errors"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles understood by the completion backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Completion is the answer produced by a chat model.
type Completion struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChatCompleter produces a reply for a list of messages.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

// ErrDisabled is returned by Disabled.
var ErrDisabled = errors.New("ai backend is not configured")

// Disabled stands in for the OpenAI client when no API key is configured.
type Disabled struct{}

// Embed always fails with ErrDisabled.
func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrDisabled
}

// Complete always fails with ErrDisabled.
func (Disabled) Complete(context.Context, []Message) (Completion, error) {
	return Completion{}, ErrDisabled
}
