package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/internal/utils"
)

// UserHandler exposes the account directory.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register binds the user routes. Create and List are admin only.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Get("/", h.list)
	router.Post("/", h.create)
}

func (h *UserHandler) me(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	user, err := h.service.Get(requestContext(c), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if !actor.IsAdmin() {
		return respondError(c, h.logger, apperror.Forbidden("only administrators can list users"))
	}

	var query dto.UserListRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	users, err := h.service.List(requestContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, users.Items, "users retrieved", users.Pagination)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if !actor.IsAdmin() {
		return respondError(c, h.logger, apperror.Forbidden("only administrators can create users"))
	}

	var payload dto.UserCreateRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	user, err := h.service.Create(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Str("user_id", user.ID.String()).Str("role", user.Role).Msg("user created")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created", user)
}
