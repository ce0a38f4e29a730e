package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/internal/utils"
)

// QuizSubmissionHandler manages quiz attempts.
type QuizSubmissionHandler struct {
	service service.QuizSubmissionService
	logger  zerolog.Logger
}

// NewQuizSubmissionHandler builds a quiz submission handler.
func NewQuizSubmissionHandler(service service.QuizSubmissionService, logger zerolog.Logger) *QuizSubmissionHandler {
	return &QuizSubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "quiz_submission_handler").Logger(),
	}
}

// Register attaches the routes relative to /quizzes.
func (h *QuizSubmissionHandler) Register(router fiber.Router) {
	router.Get("/:quizId/submissions", h.list)
	router.Post("/:quizId/submission", h.start)
	router.Put("/:quizId/submission/:submissionId", h.updateAnswers)
	router.Post("/:quizId/submission/:submissionId/submit", h.submit)
	router.Patch("/:quizId/submission/:submissionId/grade", h.grade)
	router.Patch("/:quizId/submission/:submissionId/return", h.returnAttempt)
	router.Patch("/:quizId/submission/:submissionId/resubmit", h.resubmit)
}

func (h *QuizSubmissionHandler) list(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	quizID, err := parseUUIDParam(c, "quizId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	submissions, err := h.service.List(requestContext(c), actor, quizID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "quiz submissions retrieved", submissions)
}

func (h *QuizSubmissionHandler) start(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	quizID, err := parseUUIDParam(c, "quizId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.QuizStartRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Start(requestContext(c), actor, quizID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz attempt started", submission)
}

func (h *QuizSubmissionHandler) updateAnswers(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "quizId", "submissionId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.QuizAnswersRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.UpdateAnswers(requestContext(c), actor, ids[0], ids[1], payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "answers saved", submission)
}

func (h *QuizSubmissionHandler) submit(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "quizId", "submissionId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Submit(requestContext(c), actor, ids[0], ids[1])
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "quiz submitted", submission)
}

func (h *QuizSubmissionHandler) grade(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "quizId", "submissionId")
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
	return utils.SendSuccess(c, "quiz graded", submission)
}

func (h *QuizSubmissionHandler) returnAttempt(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "quizId", "submissionId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.QuizReturnRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Return(requestContext(c), actor, ids[0], ids[1], payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "quiz returned", submission)
}

func (h *QuizSubmissionHandler) resubmit(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ids, err := parseUUIDParams(c, "quizId", "submissionId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var payload dto.QuizResubmitRequest
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Resubmit(requestContext(c), actor, ids[0], ids[1], payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "quiz resubmitted", submission)
}
