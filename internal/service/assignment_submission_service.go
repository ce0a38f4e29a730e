package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/observability"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

var (
	assignmentNotFound = apperror.Overrides{apperror.KindNotFound: "assignment not found"}
	submissionNotFound = apperror.Overrides{apperror.KindNotFound: "submission not found"}
	attemptConflict    = apperror.Overrides{
		apperror.KindDuplicate:  "submission attempt already exists",
		apperror.KindForeignKey: "assignment or student does not exist",
	}
)

// AssignmentSubmissionService drives the assignment attempt workflow:
// draft → submitted → graded.
type AssignmentSubmissionService interface {
	CreateDraft(ctx context.Context, actor Actor, assignmentID uuid.UUID, req dto.AssignmentSubmissionRequest) (dto.AssignmentSubmissionResponse, error)
	Submit(ctx context.Context, actor Actor, assignmentID uuid.UUID, req dto.AssignmentSubmissionRequest) (dto.AssignmentSubmissionResponse, error)
	UpdateDraft(ctx context.Context, actor Actor, assignmentID, submissionID uuid.UUID, req dto.AssignmentSubmissionUpdateRequest) (dto.AssignmentSubmissionResponse, error)
	Finalize(ctx context.Context, actor Actor, assignmentID, submissionID uuid.UUID) (dto.AssignmentSubmissionResponse, error)
	Grade(ctx context.Context, actor Actor, assignmentID, submissionID uuid.UUID, req dto.GradeRequest) (dto.AssignmentSubmissionResponse, error)
	List(ctx context.Context, actor Actor, assignmentID uuid.UUID) ([]dto.AssignmentSubmissionResponse, error)
}

// SubmissionServiceDeps groups the collaborators shared by both submission services.
type SubmissionServiceDeps struct {
	Assignments           repository.AssignmentRepository
	Quizzes               repository.QuizRepository
	AssignmentSubmissions repository.AssignmentSubmissionRepository
	QuizSubmissions       repository.QuizSubmissionRepository
	Contents              repository.ContentRepository
	Access                AccessChecker
	Grades                GradeService
	Notifier              Notifier
	Events                EventPublisher
}

type assignmentSubmissionService struct {
	assignments repository.AssignmentRepository
	submissions repository.AssignmentSubmissionRepository
	contents    repository.ContentRepository
	access      AccessChecker
	grades      GradeService
	notifier    Notifier
	events      EventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAssignmentSubmissionService constructs the assignment submission service.
func NewAssignmentSubmissionService(deps SubmissionServiceDeps, validate *validator.Validate, logger zerolog.Logger) AssignmentSubmissionService {
	return &assignmentSubmissionService{
		assignments: deps.Assignments,
		submissions: deps.AssignmentSubmissions,
		contents:    deps.Contents,
		access:      deps.Access,
		grades:      deps.Grades,
		notifier:    deps.Notifier,
		events:      deps.Events,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "assignment_submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/lms-go-api/internal/service/assignment_submission"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *assignmentSubmissionService) CreateDraft(ctx context.Context, actor Actor, assignmentID uuid.UUID, req dto.AssignmentSubmissionRequest) (dto.AssignmentSubmissionResponse, error) {
	return s.create(ctx, actor, assignmentID, req, models.SubmissionStatusDraft)
}

func (s *assignmentSubmissionService) Submit(ctx context.Context, actor Actor, assignmentID uuid.UUID, req dto.AssignmentSubmissionRequest) (dto.AssignmentSubmissionResponse, error) {
	return s.create(ctx, actor, assignmentID, req, models.SubmissionStatusSubmitted)
}

func (s *assignmentSubmissionService) create(ctx context.Context, actor Actor, assignmentID uuid.UUID, req dto.AssignmentSubmissionRequest, status string) (dto.AssignmentSubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assignment_submission.create", trace.WithAttributes(
		attribute.String("assignment.id", assignmentID.String()),
		attribute.String("submission.status", status),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}

	assignment, access, err := s.resolve(ctx, actor, assignmentID)
	if err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}
	if access.CanManage() {
		return dto.AssignmentSubmissionResponse{}, apperror.Forbidden("only enrolled students can submit work")
	}

	used, err := invoke(ctx, s.logger, op{name: "assignment_submission.count", fields: fields("assignment_id", assignment.ID)}, func(ctx context.Context) (int, error) {
		return s.submissions.CountAttempts(ctx, assignment.ID, actor.ID)
	})
	if err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}
	if assignment.AttemptsExhausted(used) {
		return dto.AssignmentSubmissionResponse{}, apperror.BadRequest("maximum number of attempts reached")
	}

	attempt := 0
	if req.AttemptNumber != nil {
		attempt = *req.AttemptNumber
		if assignment.MaxAttempts > 0 && attempt > assignment.MaxAttempts {
			return dto.AssignmentSubmissionResponse{}, apperror.BadRequest(fmt.Sprintf("attempt number must not exceed %d", assignment.MaxAttempts))
		}
	} else {
		latest, err := invoke(ctx, s.logger, op{name: "assignment_submission.latest", fields: fields("assignment_id", assignment.ID)}, func(ctx context.Context) (int, error) {
			return s.submissions.LatestAttempt(ctx, assignment.ID, actor.ID)
		})
		if err != nil {
			return dto.AssignmentSubmissionResponse{}, err
		}
		attempt = latest + 1
	}

	submission := models.AssignmentSubmission{
		AssignmentID:  assignment.ID,
		StudentID:     actor.ID,
		AttemptNumber: attempt,
		Status:        models.SubmissionStatusDraft,
		Content:       s.sanitizer.Sanitize(req.Content),
		FileURL:       strings.TrimSpace(req.FileURL),
	}
	if status == models.SubmissionStatusSubmitted {
		if err := s.markSubmitted(&submission, assignment); err != nil {
			return dto.AssignmentSubmissionResponse{}, err
		}
	}

	err = invokeErr(ctx, s.logger, op{
		name:      "assignment_submission.create",
		fields:    fields("assignment_id", assignment.ID, "student_id", actor.ID, "attempt", attempt),
		overrides: attemptConflict,
	}, func(ctx context.Context) error {
		return s.submissions.Create(ctx, &submission)
	})
	if err != nil {
		span.RecordError(err)
		return dto.AssignmentSubmissionResponse{}, err
	}

	observability.SubmissionTransitions().WithLabelValues(models.GradeSourceAssignment, submission.Status).Inc()
	if submission.Status == models.SubmissionStatusSubmitted {
		s.emitSubmitted(ctx, assignment, submission)
	}

	return dto.NewAssignmentSubmissionResponse(submission), nil
}

func (s *assignmentSubmissionService) UpdateDraft(ctx context.Context, actor Actor, assignmentID, submissionID uuid.UUID, req dto.AssignmentSubmissionUpdateRequest) (dto.AssignmentSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}

	_, submission, err := s.ownDraft(ctx, actor, assignmentID, submissionID)
	if err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}

	if req.Content != nil {
		submission.Content = s.sanitizer.Sanitize(*req.Content)
	}
	if req.FileURL != nil {
		submission.FileURL = strings.TrimSpace(*req.FileURL)
	}

	if err := s.save(ctx, &submission); err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}
	return dto.NewAssignmentSubmissionResponse(submission), nil
}

func (s *assignmentSubmissionService) Finalize(ctx context.Context, actor Actor, assignmentID, submissionID uuid.UUID) (dto.AssignmentSubmissionResponse, error) {
	assignment, submission, err := s.ownDraft(ctx, actor, assignmentID, submissionID)
	if err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}

	if err := s.markSubmitted(&submission, assignment); err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}
	if err := s.save(ctx, &submission); err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}

	observability.SubmissionTransitions().WithLabelValues(models.GradeSourceAssignment, submission.Status).Inc()
	s.emitSubmitted(ctx, assignment, submission)

	return dto.NewAssignmentSubmissionResponse(submission), nil
}

func (s *assignmentSubmissionService) Grade(ctx context.Context, actor Actor, assignmentID, submissionID uuid.UUID, req dto.GradeRequest) (dto.AssignmentSubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assignment_submission.grade", trace.WithAttributes(attribute.String("submission.id", submissionID.String())))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}

	assignment, access, err := s.resolve(ctx, actor, assignmentID)
	if err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}
	if !access.CanManage() {
		return dto.AssignmentSubmissionResponse{}, apperror.Forbidden("only course teachers can grade submissions")
	}

	submission, err := s.load(ctx, assignment.ID, submissionID)
	if err != nil {
		return dto.AssignmentSubmissionResponse{}, err
	}
	if submission.Status != models.SubmissionStatusSubmitted {
		return dto.AssignmentSubmissionResponse{}, apperror.BadRequest("only submitted work can be graded")
	}

	maxScore := assignment.EffectiveMaxScore()
	score := *req.Score
	if score > maxScore {
		return dto.AssignmentSubmissionResponse{}, apperror.BadRequest(fmt.Sprintf("score must not exceed %.2f", maxScore))
	}

	now := s.now()
	graderID := actor.ID
	submission.Status = models.SubmissionStatusGraded
	submission.Score = &score
	submission.Feedback = s.sanitizer.Sanitize(req.Feedback)
	submission.GradedBy = &graderID
	submission.GradedAt = &now

	if err := s.save(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.AssignmentSubmissionResponse{}, err
	}

	grade, err := s.grades.Record(ctx, GradeInput{
		LmsID:              assignment.ModuleContent.LmsID,
		StudentID:          submission.StudentID,
		ContentID:          assignment.ModuleContentID,
		SubmissionType:     models.GradeSourceAssignment,
		SubmissionID:       submission.ID,
		RawScore:           score,
		MaxScore:           maxScore,
		Late:               submission.IsLate,
		LatePenaltyPercent: assignment.LatePenaltyPercent,
		Feedback:           submission.Feedback,
		GradedBy:           graderID,
		GradedAt:           now,
	})
	if err != nil {
		span.RecordError(err)
		return dto.AssignmentSubmissionResponse{}, err
	}

	observability.SubmissionTransitions().WithLabelValues(models.GradeSourceAssignment, submission.Status).Inc()

	notify(ctx, s.notifier, s.logger, dto.NotificationCreateRequest{
		UserID:  submission.StudentID,
		Type:    models.NotificationTypeGraded,
		Title:   "Assignment graded",
		Message: fmt.Sprintf("Your submission for %q was graded: %.2f/%.2f (%s).", assignment.ModuleContent.Title, grade.FinalScore, maxScore, grade.Letter),
	})
	emit(ctx, s.events, s.logger, EventSubmissionGraded, map[string]interface{}{
		"submission_type": models.GradeSourceAssignment,
		"submission_id":   submission.ID,
		"student_id":      submission.StudentID,
		"final_score":     grade.FinalScore,
		"letter":          grade.Letter,
	})

	return dto.NewAssignmentSubmissionResponse(submission), nil
}

func (s *assignmentSubmissionService) List(ctx context.Context, actor Actor, assignmentID uuid.UUID) ([]dto.AssignmentSubmissionResponse, error) {
	assignment, access, err := s.resolve(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}

	filter := repository.SubmissionFilter{ParentID: assignment.ID}
	if !access.CanManage() {
		studentID := actor.ID
		filter.StudentID = &studentID
	}

	submissions, err := invoke(ctx, s.logger, op{name: "assignment_submission.list", fields: fields("assignment_id", assignment.ID)}, func(ctx context.Context) ([]models.AssignmentSubmission, error) {
		return s.submissions.List(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentSubmissionResponseSlice(submissions), nil
}

// resolve loads the assignment and checks the actor may see it. Learners only see
// assignments that are currently published.
func (s *assignmentSubmissionService) resolve(ctx context.Context, actor Actor, assignmentID uuid.UUID) (models.Assignment, Access, error) {
	assignment, err := invoke(ctx, s.logger, op{name: "assignment.get", fields: fields("assignment_id", assignmentID), overrides: assignmentNotFound}, func(ctx context.Context) (models.Assignment, error) {
		return s.assignments.GetByID(ctx, assignmentID)
	})
	if err != nil {
		return models.Assignment{}, AccessNone, err
	}

	access, err := s.access.RequireMember(ctx, actor, assignment.ModuleContent.LmsID)
	if err != nil {
		return models.Assignment{}, AccessNone, err
	}
	if access.CanManage() {
		return assignment, access, nil
	}

	visible, err := invoke(ctx, s.logger, op{name: "content.visibility", fields: fields("content_id", assignment.ModuleContentID)}, func(ctx context.Context) (bool, error) {
		return learnerCanSee(ctx, s.contents, assignment.ModuleContent.LmsID, assignment.ModuleContentID, s.now())
	})
	if err != nil {
		return models.Assignment{}, AccessNone, err
	}
	if !visible {
		return models.Assignment{}, AccessNone, apperror.NotFound("assignment not found")
	}
	return assignment, access, nil
}

func (s *assignmentSubmissionService) ownDraft(ctx context.Context, actor Actor, assignmentID, submissionID uuid.UUID) (models.Assignment, models.AssignmentSubmission, error) {
	assignment, _, err := s.resolve(ctx, actor, assignmentID)
	if err != nil {
		return models.Assignment{}, models.AssignmentSubmission{}, err
	}

	submission, err := s.load(ctx, assignment.ID, submissionID)
	if err != nil {
		return models.Assignment{}, models.AssignmentSubmission{}, err
	}
	if submission.StudentID != actor.ID {
		return models.Assignment{}, models.AssignmentSubmission{}, apperror.Forbidden("you can only modify your own submission")
	}
	if !submission.IsDraft() {
		return models.Assignment{}, models.AssignmentSubmission{}, apperror.BadRequest("only draft submissions can be changed")
	}
	return assignment, submission, nil
}

// markSubmitted moves the attempt to submitted, enforcing the deadline.
func (s *assignmentSubmissionService) markSubmitted(submission *models.AssignmentSubmission, assignment models.Assignment) error {
	if strings.TrimSpace(submission.Content) == "" && submission.FileURL == "" {
		return apperror.BadRequest("submission must include content or a file")
	}

	now := s.now()
	if assignment.IsPastDue(now) {
		if !assignment.AllowLateSubmission {
			return apperror.BadRequest("the submission deadline has passed")
		}
		submission.IsLate = true
	}
	submission.Status = models.SubmissionStatusSubmitted
	submission.SubmittedAt = &now
	return nil
}

func (s *assignmentSubmissionService) load(ctx context.Context, assignmentID, submissionID uuid.UUID) (models.AssignmentSubmission, error) {
	return invoke(ctx, s.logger, op{name: "assignment_submission.get", fields: fields("submission_id", submissionID), overrides: submissionNotFound}, func(ctx context.Context) (models.AssignmentSubmission, error) {
		return s.submissions.GetByID(ctx, assignmentID, submissionID)
	})
}

func (s *assignmentSubmissionService) save(ctx context.Context, submission *models.AssignmentSubmission) error {
	return invokeErr(ctx, s.logger, op{name: "assignment_submission.update", fields: fields("submission_id", submission.ID), overrides: submissionNotFound}, func(ctx context.Context) error {
		return s.submissions.Update(ctx, submission)
	})
}

func (s *assignmentSubmissionService) emitSubmitted(ctx context.Context, assignment models.Assignment, submission models.AssignmentSubmission) {
	emit(ctx, s.events, s.logger, EventSubmissionSubmitted, map[string]interface{}{
		"submission_type": models.GradeSourceAssignment,
		"submission_id":   submission.ID,
		"assignment_id":   assignment.ID,
		"student_id":      submission.StudentID,
		"attempt":         submission.AttemptNumber,
		"is_late":         submission.IsLate,
	})
}
