package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/internal/utils"
)

// SubmissionHandler manages assignment submission endpoints.
type SubmissionHandler struct {
	service service.AssignmentSubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.AssignmentSubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes relative to /assignments.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("/:assignmentId/submissions", h.list)
	router.Post("/:assignmentId/submission", h.createDraft)
	router.Post("/:assignmentId/submit", h.submit)
	router.Put("/:assignmentId/submission/:submissionId", h.updateDraft)
	router.Post("/:assignmentId/submission/:submissionId/finalize", h.finalize)
	router.Post("/:assignmentId/submission/:submissionId/grade", h.grade)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	assignmentID, err := parseUUIDParam(c, "assignmentId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	submissions, err := h.service.List(requestContext(c), actor, assignmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) createDraft(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	assignmentID, err := parseUUIDParam(c, "assignmentId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.AssignmentSubmissionRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.CreateDraft(requestContext(c), actor, assignmentID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "draft created", submission)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	assignmentID, err := parseUUIDParam(c, "assignmentId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.AssignmentSubmissionRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Submit(requestContext(c), actor, assignmentID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Str("assignment_id", assignmentID.String()).
		Str("submission_id", submission.ID.String()).
		Bool("late", submission.IsLate).
		Msg("assignment submitted")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) updateDraft(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "assignmentId", "submissionId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.AssignmentSubmissionUpdateRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.UpdateDraft(requestContext(c), actor, ids[0], ids[1], payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "draft updated", submission)
}

func (h *SubmissionHandler) finalize(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "assignmentId", "submissionId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Finalize(requestContext(c), actor, ids[0], ids[1])
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission finalized", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "assignmentId", "submissionId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.GradeRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Grade(requestContext(c), actor, ids[0], ids[1], payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission graded", submission)
}
