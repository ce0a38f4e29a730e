package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/internal/utils"
)

// ContentHandler serves the module content tree of a course and its publishing state.
type ContentHandler struct {
	contents  service.ContentService
	publisher service.PublishService
	logger    zerolog.Logger
}

// NewContentHandler constructs a content handler.
func NewContentHandler(contents service.ContentService, publisher service.PublishService, logger zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		contents:  contents,
		publisher: publisher,
		logger:    logger.With().Str("component", "content_handler").Logger(),
	}
}

// Register binds the routes relative to /lms/:lmsId/contents.
func (h *ContentHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/", h.tree)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/file", h.attachFile)
	router.Patch("/:id/publish", h.publish)
	router.Patch("/:id/unpublish", h.unpublish)
}

func (h *ContentHandler) create(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	lmsID, err := parseUUIDParam(c, "lmsId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.ContentCreateRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	content, err := h.contents.Create(requestContext(c), actor, lmsID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "content created", content)
}

func (h *ContentHandler) tree(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	lmsID, err := parseUUIDParam(c, "lmsId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	tree, err := h.contents.Tree(requestContext(c), actor, lmsID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "contents retrieved", tree)
}

func (h *ContentHandler) get(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "lmsId", "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	content, err := h.contents.Get(requestContext(c), actor, ids[0], ids[1])
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "content retrieved", content)
}

func (h *ContentHandler) update(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "lmsId", "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.ContentUpdateRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	content, err := h.contents.Update(requestContext(c), actor, ids[0], ids[1], payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "content updated", content)
}

func (h *ContentHandler) delete(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "lmsId", "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	direct := strings.EqualFold(strings.TrimSpace(c.Query("direct")), "true")
	if err := h.contents.Delete(requestContext(c), actor, ids[0], ids[1], direct); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "content deleted", fiber.Map{"direct": direct})
}

func (h *ContentHandler) attachFile(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "lmsId", "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	content, err := h.contents.AttachFile(requestContext(c), actor, ids[0], ids[1], file)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "file attached", content)
}

func (h *ContentHandler) publish(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "lmsId", "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.PublishRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	state, message, err := h.publisher.Publish(requestContext(c), actor, ids[0], ids[1], payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, message, state)
}

func (h *ContentHandler) unpublish(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "lmsId", "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	state, message, err := h.publisher.Unpublish(requestContext(c), actor, ids[0], ids[1])
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, message, state)
}
