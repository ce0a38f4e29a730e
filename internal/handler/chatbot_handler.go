package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/middleware"
	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/internal/utils"
)

// ChatbotHandler wires the course assistant, including the websocket session.
type ChatbotHandler struct {
	chatbot   service.ChatbotService
	documents service.DocumentService
	validator *validator.Validate
	logger    zerolog.Logger
}

type chatbotSocketError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// NewChatbotHandler creates a chatbot handler instance.
func NewChatbotHandler(chatbot service.ChatbotService, documents service.DocumentService, validate *validator.Validate, logger zerolog.Logger) *ChatbotHandler {
	return &ChatbotHandler{
		chatbot:   chatbot,
		documents: documents,
		validator: validate,
		logger:    logger.With().Str("component", "chatbot_handler").Logger(),
	}
}

// Register binds the chatbot routes except Ask, which the router mounts behind a rate limiter.
func (h *ChatbotHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			if _, ok := middleware.CurrentIdentity(c); !ok {
				return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
			}
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))

	router.Get("/history", h.history)
	router.Post("/documents", middleware.RequireRole(middleware.AuthRoleAdmin, middleware.AuthRoleTeacher), h.ingest)
	router.Post("/search", middleware.RequireRole(middleware.AuthRoleAdmin, middleware.AuthRoleTeacher), h.search)
}

// Ask handles POST /chatbot.
func (h *ChatbotHandler) Ask(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.ChatbotAskRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	answer, err := h.chatbot.Ask(requestContext(c), actor, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "answer generated", answer)
}

func (h *ChatbotHandler) history(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	items, err := h.chatbot.History(requestContext(c), actor, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "chat history", items)
}

func (h *ChatbotHandler) ingest(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.DocumentIngestRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	document, err := h.documents.Ingest(requestContext(c), actor, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "document ingested", document)
}

func (h *ChatbotHandler) search(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.VectorSearchRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}
	payload.Query = strings.TrimSpace(payload.Query)
	if err := h.validator.Struct(payload); err != nil {
		return respondError(c, h.logger, err)
	}

	results, err := h.chatbot.Search(requestContext(c), actor, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "search results", results)
}

// handleConnection answers one question per JSON frame until the client disconnects.
func (h *ChatbotHandler) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	userID, _ := conn.Locals(middleware.LocalUserID).(uuid.UUID)
	role, _ := conn.Locals(middleware.LocalUserRole).(string)
	correlation, _ := conn.Locals("correlation_id").(string)
	actor := service.Actor{ID: userID, Role: role}

	logger := h.logger.With().Str("user_id", userID.String()).Str("correlation_id", correlation).Logger()
	logger.Info().Msg("chatbot websocket connected")
	defer logger.Info().Msg("chatbot websocket disconnected")

	ctx, cancel := context.WithCancel(middleware.ContextWithCorrelation(context.Background(), correlation))
	defer cancel()

	for {
		var request dto.ChatbotAskRequest
		if err := conn.ReadJSON(&request); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("chatbot websocket read failed")
			}
			return
		}

		answer, err := h.chatbot.Ask(ctx, actor, request)
		if err != nil {
			if writeErr := conn.WriteJSON(socketError(err)); writeErr != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(answer); err != nil {
			logger.Debug().Err(err).Msg("chatbot websocket write failed")
			return
		}
	}
}

func socketError(err error) chatbotSocketError {
	if appErr, ok := apperror.As(err); ok {
		return chatbotSocketError{Error: appErr.Message, Status: appErr.Status}
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return chatbotSocketError{Error: "validation failed", Status: fiber.StatusBadRequest}
	}
	return chatbotSocketError{Error: "internal server error", Status: fiber.StatusInternalServerError}
}
