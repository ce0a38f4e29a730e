package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
	"github.com/noah-isme/lms-go-api/pkg/ai"
)

const (
	chatbotSystemPrompt = "You are a teaching assistant for an online course. " +
		"Answer the student's question using the course material below. " +
		"When the material does not cover the question, say so instead of guessing. " +
		"Refer to sources by their number in square brackets."
	noContextNotice    = "No course material matched this question."
	defaultHistorySize = 20
	maxHistorySize     = 100
)

// ChatbotService answers course questions with retrieved material.
type ChatbotService interface {
	Ask(ctx context.Context, actor Actor, req dto.ChatbotAskRequest) (dto.ChatbotAnswerResponse, error)
	History(ctx context.Context, actor Actor, limit int) ([]dto.ChatbotHistoryItem, error)
	Search(ctx context.Context, actor Actor, req dto.VectorSearchRequest) ([]dto.SearchResultResponse, error)
}

type chatbotService struct {
	searcher  VectorSearcher
	completer ai.ChatCompleter
	messages  repository.ChatbotMessageRepository
	access    AccessChecker
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewChatbotService wires the retrieval-augmented assistant. Retrieved material bound to a
// course is only shown to actors with access to that course.
func NewChatbotService(searcher VectorSearcher, completer ai.ChatCompleter, messages repository.ChatbotMessageRepository, access AccessChecker, validate *validator.Validate, logger zerolog.Logger) ChatbotService {
	return &chatbotService{
		searcher:  searcher,
		completer: completer,
		messages:  messages,
		access:    access,
		validator: validate,
		logger:    logger.With().Str("component", "chatbot_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lms-go-api/internal/service/chatbot"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *chatbotService) Ask(ctx context.Context, actor Actor, req dto.ChatbotAskRequest) (dto.ChatbotAnswerResponse, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatbotAnswerResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "chatbot.ask", trace.WithAttributes(
		attribute.String("user.id", actor.ID.String()),
		attribute.Int("chat.history", len(req.History)),
	))
	defer span.End()

	sources, err := s.searcher.Search(ctx, req.Message, 0, 0)
	if err == nil {
		sources, err = s.readable(ctx, actor, sources)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return dto.ChatbotAnswerResponse{}, err
	}
	span.SetAttributes(attribute.Int("chat.sources", len(sources)))

	completion, err := s.completer.Complete(ctx, BuildChatMessages(sources, req.History, req.Message))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		s.logger.Error().Err(err).Str("user_id", actor.ID.String()).Msg("chat completion failed")
		return dto.ChatbotAnswerResponse{}, apperror.New(http.StatusBadGateway, "assistant is unavailable", err)
	}

	titles := make([]string, 0, len(sources))
	for _, source := range sources {
		titles = append(titles, source.Title)
	}

	message := models.ChatbotMessage{
		UserID:    actor.ID,
		Question:  req.Message,
		Answer:    completion.Content,
		Sources:   datatypes.JSONSlice[string](titles),
		Model:     completion.Model,
		CreatedAt: s.now(),
	}
	if err := invokeErr(ctx, s.logger, op{name: "chatbot_message.create", fields: fields("user_id", actor.ID)}, func(ctx context.Context) error {
		return s.messages.Create(ctx, &message)
	}); err != nil {
		return dto.ChatbotAnswerResponse{}, err
	}

	return dto.ChatbotAnswerResponse{
		ID:        message.ID,
		Question:  message.Question,
		Answer:    message.Answer,
		Sources:   sources,
		Model:     message.Model,
		CreatedAt: message.CreatedAt,
	}, nil
}

func (s *chatbotService) Search(ctx context.Context, actor Actor, req dto.VectorSearchRequest) ([]dto.SearchResultResponse, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	results, err := s.searcher.Search(ctx, req.Query, req.Limit, req.Threshold)
	if err != nil {
		return nil, err
	}
	return s.readable(ctx, actor, results)
}

// readable drops results bound to courses the actor cannot read. Search results are cached
// across users, so the filter runs after the cache.
func (s *chatbotService) readable(ctx context.Context, actor Actor, results []dto.SearchResultResponse) ([]dto.SearchResultResponse, error) {
	if actor.IsAdmin() {
		return results, nil
	}

	allowed := make(map[uuid.UUID]bool)
	visible := make([]dto.SearchResultResponse, 0, len(results))
	for _, result := range results {
		if result.LmsID == nil {
			visible = append(visible, result)
			continue
		}

		ok, seen := allowed[*result.LmsID]
		if !seen {
			access, err := s.access.Resolve(ctx, actor, *result.LmsID)
			if err != nil && !isNotFound(err) {
				return nil, err
			}
			ok = err == nil && access != AccessNone
			allowed[*result.LmsID] = ok
		}
		if ok {
			visible = append(visible, result)
		}
	}
	return visible, nil
}

func (s *chatbotService) History(ctx context.Context, actor Actor, limit int) ([]dto.ChatbotHistoryItem, error) {
	if limit <= 0 {
		limit = defaultHistorySize
	}
	if limit > maxHistorySize {
		limit = maxHistorySize
	}

	messages, err := invoke(ctx, s.logger, op{name: "chatbot_message.list", fields: fields("user_id", actor.ID, "limit", limit)}, func(ctx context.Context) ([]models.ChatbotMessage, error) {
		return s.messages.ListByUser(ctx, actor.ID, limit)
	})
	if err != nil {
		return nil, err
	}

	items := make([]dto.ChatbotHistoryItem, 0, len(messages))
	for _, message := range messages {
		items = append(items, dto.NewChatbotHistoryItem(message))
	}
	return items, nil
}

// BuildChatMessages assembles the prompt: the system instructions with numbered material,
// earlier turns, then the question.
func BuildChatMessages(sources []dto.SearchResultResponse, history []dto.ChatTurn, question string) []ai.Message {
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{
		Role:    ai.RoleSystem,
		Content: chatbotSystemPrompt + "\n\nCourse material:\n" + formatContext(sources),
	})
	for _, turn := range history {
		messages = append(messages, ai.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: question})
	return messages
}

func formatContext(sources []dto.SearchResultResponse) string {
	if len(sources) == 0 {
		return noContextNotice
	}

	var b strings.Builder
	for i, source := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, source.Title)
		if source.Source != "" {
			fmt.Fprintf(&b, " (%s)", source.Source)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(source.Content))
	}
	return b.String()
}
