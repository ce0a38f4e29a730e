package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/internal/utils"
)

// GradeHandler serves gradebooks.
type GradeHandler struct {
	service service.GradeService
	logger  zerolog.Logger
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(service service.GradeService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// ListForLms handles GET /lms/:lmsId/grades.
func (h *GradeHandler) ListForLms(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	lmsID, err := parseUUIDParam(c, "lmsId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	gradebook, err := h.service.ListForLms(requestContext(c), actor, lmsID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grades retrieved", gradebook)
}

// ListMine handles GET /grades/me.
func (h *GradeHandler) ListMine(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	gradebook, err := h.service.ListMine(requestContext(c), actor)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grades retrieved", gradebook)
}
