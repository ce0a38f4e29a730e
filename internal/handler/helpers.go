package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/middleware"
	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/internal/utils"
)

var errUnauthenticated = apperror.Unauthorized("authentication required")

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperror.BadRequest("invalid " + key)
	}
	return parsed, nil
}

func parseUUIDParam(c *fiber.Ctx, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Params(key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.BadRequest("invalid " + key)
	}
	return id, nil
}

// parseUUIDParams reads several path parameters in order.
func parseUUIDParams(c *fiber.Ctx, keys ...string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		id, err := parseUUIDParam(c, key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func actorFromContext(c *fiber.Ctx) (service.Actor, error) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return service.Actor{}, errUnauthenticated
	}
	return service.Actor{ID: identity.UserID, Role: identity.Role}, nil
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func bindJSON(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	return nil
}

// respondError renders service errors: application errors keep their status, validation
// failures become 400 and everything else is logged and hidden behind a 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	if appErr, ok := apperror.As(err); ok {
		return utils.Fail(c, appErr.Status, appErr.Message, nil)
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	return utils.Fail(c, fiber.StatusInternalServerError, "internal server error", nil)
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		message := fieldErr.Tag()
		if fieldErr.Param() != "" {
			message += "=" + fieldErr.Param()
		}
		details[strings.ToLower(fieldErr.Field())] = message
	}
	return details
}
