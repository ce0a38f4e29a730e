package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/observability"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

var quizNotFound = apperror.Overrides{apperror.KindNotFound: "quiz not found"}

// QuizSubmissionService drives the quiz attempt workflow:
// draft → submitted → graded, with returned → resubmitted revisions.
type QuizSubmissionService interface {
	Start(ctx context.Context, actor Actor, quizID uuid.UUID, req dto.QuizStartRequest) (dto.QuizSubmissionResponse, error)
	UpdateAnswers(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID, req dto.QuizAnswersRequest) (dto.QuizSubmissionResponse, error)
	Submit(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID) (dto.QuizSubmissionResponse, error)
	Grade(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID, req dto.GradeRequest) (dto.QuizSubmissionResponse, error)
	Return(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID, req dto.QuizReturnRequest) (dto.QuizSubmissionResponse, error)
	Resubmit(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID, req dto.QuizResubmitRequest) (dto.QuizSubmissionResponse, error)
	List(ctx context.Context, actor Actor, quizID uuid.UUID) ([]dto.QuizSubmissionResponse, error)
}

type quizSubmissionService struct {
	quizzes     repository.QuizRepository
	submissions repository.QuizSubmissionRepository
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

// NewQuizSubmissionService constructs the quiz submission service.
func NewQuizSubmissionService(deps SubmissionServiceDeps, validate *validator.Validate, logger zerolog.Logger) QuizSubmissionService {
	return &quizSubmissionService{
		quizzes:     deps.Quizzes,
		submissions: deps.QuizSubmissions,
		contents:    deps.Contents,
		access:      deps.Access,
		grades:      deps.Grades,
		notifier:    deps.Notifier,
		events:      deps.Events,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "quiz_submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/lms-go-api/internal/service/quiz_submission"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *quizSubmissionService) Start(ctx context.Context, actor Actor, quizID uuid.UUID, req dto.QuizStartRequest) (dto.QuizSubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "quiz_submission.start", trace.WithAttributes(attribute.String("quiz.id", quizID.String())))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	quiz, access, err := s.resolve(ctx, actor, quizID)
	if err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	if access.CanManage() {
		return dto.QuizSubmissionResponse{}, apperror.Forbidden("only enrolled students can take quizzes")
	}

	now := s.now()
	if quiz.IsPastDue(now) {
		return dto.QuizSubmissionResponse{}, apperror.BadRequest("the quiz deadline has passed")
	}

	used, err := invoke(ctx, s.logger, op{name: "quiz_submission.count", fields: fields("quiz_id", quiz.ID)}, func(ctx context.Context) (int, error) {
		return s.submissions.CountAttempts(ctx, quiz.ID, actor.ID)
	})
	if err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	if quiz.AttemptsExhausted(used) {
		return dto.QuizSubmissionResponse{}, apperror.BadRequest("maximum number of attempts reached")
	}

	attempt := 0
	if req.AttemptNumber != nil {
		attempt = *req.AttemptNumber
		if quiz.MaxAttempts > 0 && attempt > quiz.MaxAttempts {
			return dto.QuizSubmissionResponse{}, apperror.BadRequest(fmt.Sprintf("attempt number must not exceed %d", quiz.MaxAttempts))
		}
	} else {
		latest, err := invoke(ctx, s.logger, op{name: "quiz_submission.latest", fields: fields("quiz_id", quiz.ID)}, func(ctx context.Context) (int, error) {
			return s.submissions.LatestAttempt(ctx, quiz.ID, actor.ID)
		})
		if err != nil {
			return dto.QuizSubmissionResponse{}, err
		}
		attempt = latest + 1
	}

	submission := models.QuizSubmission{
		QuizID:        quiz.ID,
		StudentID:     actor.ID,
		AttemptNumber: attempt,
		Status:        models.SubmissionStatusDraft,
		Answers:       datatypes.NewJSONType(s.cleanAnswers(req.Answers)),
		StartedAt:     now,
	}

	err = invokeErr(ctx, s.logger, op{
		name:   "quiz_submission.create",
		fields: fields("quiz_id", quiz.ID, "student_id", actor.ID, "attempt", attempt),
		overrides: apperror.Overrides{
			apperror.KindDuplicate:  "submission attempt already exists",
			apperror.KindForeignKey: "quiz or student does not exist",
		},
	}, func(ctx context.Context) error {
		return s.submissions.Create(ctx, &submission)
	})
	if err != nil {
		span.RecordError(err)
		return dto.QuizSubmissionResponse{}, err
	}

	observability.SubmissionTransitions().WithLabelValues(models.GradeSourceQuiz, submission.Status).Inc()
	return dto.NewQuizSubmissionResponse(submission), nil
}

func (s *quizSubmissionService) UpdateAnswers(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID, req dto.QuizAnswersRequest) (dto.QuizSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	_, submission, err := s.own(ctx, actor, quizID, submissionID)
	if err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	if !submission.IsEditable() {
		return dto.QuizSubmissionResponse{}, apperror.BadRequest("answers can only be changed on draft or returned attempts")
	}

	submission.Answers = datatypes.NewJSONType(s.cleanAnswers(req.Answers))
	if err := s.save(ctx, &submission); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	return dto.NewQuizSubmissionResponse(submission), nil
}

func (s *quizSubmissionService) Submit(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID) (dto.QuizSubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "quiz_submission.submit", trace.WithAttributes(attribute.String("submission.id", submissionID.String())))
	defer span.End()

	quiz, submission, err := s.own(ctx, actor, quizID, submissionID)
	if err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	if submission.Status != models.SubmissionStatusDraft {
		return dto.QuizSubmissionResponse{}, apperror.BadRequest("only draft attempts can be submitted")
	}

	now := s.now()
	submission.Status = models.SubmissionStatusSubmitted
	submission.SubmittedAt = &now
	submission.IsLate = quizLate(quiz, submission.StartedAt, now)

	autoGraded := quiz.AutoGrade && quiz.FullyObjective()
	var score float64
	if autoGraded {
		score = scoreQuiz(quiz, submission.Answers.Data())
		submission.Status = models.SubmissionStatusGraded
		submission.Score = &score
		submission.GradedAt = &now
	}

	if err := s.save(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.QuizSubmissionResponse{}, err
	}
	observability.SubmissionTransitions().WithLabelValues(models.GradeSourceQuiz, models.SubmissionStatusSubmitted).Inc()
	s.emitSubmitted(ctx, quiz, submission)

	if autoGraded {
		if err := s.finishGrading(ctx, quiz, submission, score, uuid.Nil, now); err != nil {
			span.RecordError(err)
			return dto.QuizSubmissionResponse{}, err
		}
	}

	return dto.NewQuizSubmissionResponse(submission), nil
}

func (s *quizSubmissionService) Grade(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID, req dto.GradeRequest) (dto.QuizSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	quiz, submission, err := s.managed(ctx, actor, quizID, submissionID)
	if err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	if !submission.AwaitingGrade() {
		return dto.QuizSubmissionResponse{}, apperror.BadRequest("only submitted attempts can be graded")
	}

	score := *req.Score
	if maxScore := quiz.EffectiveMaxScore(); score > maxScore {
		return dto.QuizSubmissionResponse{}, apperror.BadRequest(fmt.Sprintf("score must not exceed %.2f", maxScore))
	}

	now := s.now()
	graderID := actor.ID
	submission.Status = models.SubmissionStatusGraded
	submission.Score = &score
	submission.Feedback = s.sanitizer.Sanitize(req.Feedback)
	submission.GradedBy = &graderID
	submission.GradedAt = &now

	if err := s.save(ctx, &submission); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	if err := s.finishGrading(ctx, quiz, submission, score, graderID, now); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	return dto.NewQuizSubmissionResponse(submission), nil
}

func (s *quizSubmissionService) Return(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID, req dto.QuizReturnRequest) (dto.QuizSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	quiz, submission, err := s.managed(ctx, actor, quizID, submissionID)
	if err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	if !submission.Returnable() {
		return dto.QuizSubmissionResponse{}, apperror.BadRequest("only submitted or graded attempts can be returned")
	}

	now := s.now()
	submission.Status = models.SubmissionStatusReturned
	submission.ReturnReason = s.sanitizer.Sanitize(strings.TrimSpace(req.Reason))
	submission.ReturnedAt = &now

	if err := s.save(ctx, &submission); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	observability.SubmissionTransitions().WithLabelValues(models.GradeSourceQuiz, submission.Status).Inc()

	notify(ctx, s.notifier, s.logger, dto.NotificationCreateRequest{
		UserID:  submission.StudentID,
		Type:    models.NotificationTypeReturned,
		Title:   "Quiz returned for revision",
		Message: fmt.Sprintf("Your attempt on %q was returned: %s", quizTitle(quiz), submission.ReturnReason),
	})
	emit(ctx, s.events, s.logger, EventSubmissionReturned, map[string]interface{}{
		"submission_type": models.GradeSourceQuiz,
		"submission_id":   submission.ID,
		"student_id":      submission.StudentID,
		"reason":          submission.ReturnReason,
	})

	return dto.NewQuizSubmissionResponse(submission), nil
}

func (s *quizSubmissionService) Resubmit(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID, req dto.QuizResubmitRequest) (dto.QuizSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	quiz, submission, err := s.own(ctx, actor, quizID, submissionID)
	if err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	if submission.Status != models.SubmissionStatusReturned {
		return dto.QuizSubmissionResponse{}, apperror.BadRequest("only returned attempts can be resubmitted")
	}

	now := s.now()
	if req.Answers != nil {
		submission.Answers = datatypes.NewJSONType(s.cleanAnswers(req.Answers))
	}
	submission.Status = models.SubmissionStatusResubmitted
	submission.SubmittedAt = &now
	submission.IsLate = quiz.IsPastDue(now)

	if err := s.save(ctx, &submission); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}
	observability.SubmissionTransitions().WithLabelValues(models.GradeSourceQuiz, submission.Status).Inc()
	s.emitSubmitted(ctx, quiz, submission)

	return dto.NewQuizSubmissionResponse(submission), nil
}

func (s *quizSubmissionService) List(ctx context.Context, actor Actor, quizID uuid.UUID) ([]dto.QuizSubmissionResponse, error) {
	quiz, access, err := s.resolve(ctx, actor, quizID)
	if err != nil {
		return nil, err
	}

	filter := repository.SubmissionFilter{ParentID: quiz.ID}
	if !access.CanManage() {
		studentID := actor.ID
		filter.StudentID = &studentID
	}

	submissions, err := invoke(ctx, s.logger, op{name: "quiz_submission.list", fields: fields("quiz_id", quiz.ID)}, func(ctx context.Context) ([]models.QuizSubmission, error) {
		return s.submissions.List(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewQuizSubmissionResponseSlice(submissions), nil
}

func (s *quizSubmissionService) finishGrading(ctx context.Context, quiz models.Quiz, submission models.QuizSubmission, score float64, graderID uuid.UUID, at time.Time) error {
	grade, err := s.grades.Record(ctx, GradeInput{
		LmsID:          quiz.ModuleContent.LmsID,
		StudentID:      submission.StudentID,
		ContentID:      quiz.ModuleContentID,
		SubmissionType: models.GradeSourceQuiz,
		SubmissionID:   submission.ID,
		RawScore:       score,
		MaxScore:       quiz.EffectiveMaxScore(),
		Late:           submission.IsLate,
		Feedback:       submission.Feedback,
		GradedBy:       graderID,
		GradedAt:       at,
	})
	if err != nil {
		return err
	}

	observability.SubmissionTransitions().WithLabelValues(models.GradeSourceQuiz, models.SubmissionStatusGraded).Inc()
	notify(ctx, s.notifier, s.logger, dto.NotificationCreateRequest{
		UserID:  submission.StudentID,
		Type:    models.NotificationTypeGraded,
		Title:   "Quiz graded",
		Message: fmt.Sprintf("Your attempt on %q was graded: %.2f/%.2f (%s).", quizTitle(quiz), grade.FinalScore, grade.MaxScore, grade.Letter),
	})
	emit(ctx, s.events, s.logger, EventSubmissionGraded, map[string]interface{}{
		"submission_type": models.GradeSourceQuiz,
		"submission_id":   submission.ID,
		"student_id":      submission.StudentID,
		"final_score":     grade.FinalScore,
		"letter":          grade.Letter,
		"auto_graded":     graderID == uuid.Nil,
	})
	return nil
}

func (s *quizSubmissionService) resolve(ctx context.Context, actor Actor, quizID uuid.UUID) (models.Quiz, Access, error) {
	quiz, err := invoke(ctx, s.logger, op{name: "quiz.get", fields: fields("quiz_id", quizID), overrides: quizNotFound}, func(ctx context.Context) (models.Quiz, error) {
		return s.quizzes.GetByID(ctx, quizID)
	})
	if err != nil {
		return models.Quiz{}, AccessNone, err
	}

	access, err := s.access.RequireMember(ctx, actor, quiz.ModuleContent.LmsID)
	if err != nil {
		return models.Quiz{}, AccessNone, err
	}
	if access.CanManage() {
		return quiz, access, nil
	}

	visible, err := invoke(ctx, s.logger, op{name: "content.visibility", fields: fields("content_id", quiz.ModuleContentID)}, func(ctx context.Context) (bool, error) {
		return learnerCanSee(ctx, s.contents, quiz.ModuleContent.LmsID, quiz.ModuleContentID, s.now())
	})
	if err != nil {
		return models.Quiz{}, AccessNone, err
	}
	if !visible {
		return models.Quiz{}, AccessNone, apperror.NotFound("quiz not found")
	}
	return quiz, access, nil
}

func (s *quizSubmissionService) own(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID) (models.Quiz, models.QuizSubmission, error) {
	quiz, _, err := s.resolve(ctx, actor, quizID)
	if err != nil {
		return models.Quiz{}, models.QuizSubmission{}, err
	}
	submission, err := s.load(ctx, quiz.ID, submissionID)
	if err != nil {
		return models.Quiz{}, models.QuizSubmission{}, err
	}
	if submission.StudentID != actor.ID {
		return models.Quiz{}, models.QuizSubmission{}, apperror.Forbidden("you can only modify your own submission")
	}
	return quiz, submission, nil
}

func (s *quizSubmissionService) managed(ctx context.Context, actor Actor, quizID, submissionID uuid.UUID) (models.Quiz, models.QuizSubmission, error) {
	quiz, access, err := s.resolve(ctx, actor, quizID)
	if err != nil {
		return models.Quiz{}, models.QuizSubmission{}, err
	}
	if !access.CanManage() {
		return models.Quiz{}, models.QuizSubmission{}, apperror.Forbidden("only course teachers can review quiz attempts")
	}
	submission, err := s.load(ctx, quiz.ID, submissionID)
	if err != nil {
		return models.Quiz{}, models.QuizSubmission{}, err
	}
	return quiz, submission, nil
}

func (s *quizSubmissionService) load(ctx context.Context, quizID, submissionID uuid.UUID) (models.QuizSubmission, error) {
	return invoke(ctx, s.logger, op{name: "quiz_submission.get", fields: fields("submission_id", submissionID), overrides: submissionNotFound}, func(ctx context.Context) (models.QuizSubmission, error) {
		return s.submissions.GetByID(ctx, quizID, submissionID)
	})
}

func (s *quizSubmissionService) save(ctx context.Context, submission *models.QuizSubmission) error {
	return invokeErr(ctx, s.logger, op{name: "quiz_submission.update", fields: fields("submission_id", submission.ID), overrides: submissionNotFound}, func(ctx context.Context) error {
		return s.submissions.Update(ctx, submission)
	})
}

func (s *quizSubmissionService) cleanAnswers(answers map[string]string) models.QuizAnswers {
	out := make(models.QuizAnswers, len(answers))
	for id, answer := range answers {
		key := strings.TrimSpace(id)
		if key == "" {
			continue
		}
		out[key] = s.sanitizer.Sanitize(strings.TrimSpace(answer))
	}
	return out
}

func (s *quizSubmissionService) emitSubmitted(ctx context.Context, quiz models.Quiz, submission models.QuizSubmission) {
	emit(ctx, s.events, s.logger, EventSubmissionSubmitted, map[string]interface{}{
		"submission_type": models.GradeSourceQuiz,
		"submission_id":   submission.ID,
		"quiz_id":         quiz.ID,
		"student_id":      submission.StudentID,
		"attempt":         submission.AttemptNumber,
		"status":          submission.Status,
		"is_late":         submission.IsLate,
	})
}

// quizLate flags attempts submitted after the time limit or the due date.
func quizLate(quiz models.Quiz, startedAt, submittedAt time.Time) bool {
	if quiz.IsPastDue(submittedAt) {
		return true
	}
	if quiz.TimeLimitMinutes <= 0 {
		return false
	}
	deadline := startedAt.Add(time.Duration(quiz.TimeLimitMinutes) * time.Minute)
	return submittedAt.After(deadline)
}

// scoreQuiz scales the earned points to the quiz maximum score. Stored answers are
// sanitised, so they are unescaped before comparison.
func scoreQuiz(quiz models.Quiz, answers models.QuizAnswers) float64 {
	var earned, total float64
	for _, question := range quiz.Questions.Data() {
		total += question.Points
		if strings.EqualFold(strings.TrimSpace(html.UnescapeString(answers[question.ID])), strings.TrimSpace(question.Answer)) {
			earned += question.Points
		}
	}
	if total == 0 {
		return 0
	}
	return round2(earned / total * quiz.EffectiveMaxScore())
}

func quizTitle(quiz models.Quiz) string {
	if quiz.ModuleContent != nil {
		return quiz.ModuleContent.Title
	}
	return "quiz"
}
