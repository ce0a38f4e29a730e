package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/internal/utils"
)

// LmsHandler manages courses and enrollments.
type LmsHandler struct {
	service service.LmsService
	logger  zerolog.Logger
}

// NewLmsHandler constructs a course handler.
func NewLmsHandler(service service.LmsService, logger zerolog.Logger) *LmsHandler {
	return &LmsHandler{
		service: service,
		logger:  logger.With().Str("component", "lms_handler").Logger(),
	}
}

// Register binds course and enrollment routes under /lms.
func (h *LmsHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/", h.list)
	router.Get("/:lmsId", h.get)
	router.Patch("/:lmsId", h.update)
	router.Delete("/:lmsId", h.delete)

	router.Post("/:lmsId/enrollments", h.enroll)
	router.Get("/:lmsId/enrollments", h.listEnrollments)
	router.Delete("/:lmsId/enrollments/:userId", h.drop)
}

func (h *LmsHandler) create(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.LmsCreateRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	course, err := h.service.Create(requestContext(c), actor, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "lms created", course)
}

func (h *LmsHandler) list(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var query dto.ListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	courses, err := h.service.List(requestContext(c), actor, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, courses.Items, "lms retrieved", courses.Pagination)
}

func (h *LmsHandler) get(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := parseUUIDParam(c, "lmsId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	course, err := h.service.Get(requestContext(c), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "lms retrieved", course)
}

func (h *LmsHandler) update(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := parseUUIDParam(c, "lmsId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.LmsUpdateRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	course, err := h.service.Update(requestContext(c), actor, id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "lms updated", course)
}

func (h *LmsHandler) delete(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := parseUUIDParam(c, "lmsId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.service.Delete(requestContext(c), actor, id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "lms deleted", nil)
}

func (h *LmsHandler) enroll(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	lmsID, err := parseUUIDParam(c, "lmsId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.EnrollmentCreateRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	enrollment, err := h.service.Enroll(requestContext(c), actor, lmsID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user enrolled", enrollment)
}

func (h *LmsHandler) listEnrollments(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	lmsID, err := parseUUIDParam(c, "lmsId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	enrollments, err := h.service.ListEnrollments(requestContext(c), actor, lmsID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "enrollments retrieved", enrollments)
}

func (h *LmsHandler) drop(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "lmsId", "userId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	enrollment, err := h.service.Drop(requestContext(c), actor, ids[0], ids[1])
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "enrollment dropped", enrollment)
}
