package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
)

const objectiveQuestions = `[
  {"id": "q1", "type": "multiple_choice", "prompt": "Which keyword starts a goroutine?", "options": ["go", "async"], "answer": "go", "points": 1},
  {"id": "q2", "type": "true_false", "prompt": "Channels are safe for concurrent use.", "answer": "true", "points": 3}
]`

const mixedQuestions = `[
  {"id": "q1", "type": "true_false", "prompt": "Maps are ordered.", "answer": "false", "points": 1},
  {"id": "q2", "type": "essay", "prompt": "Explain the select statement.", "points": 4}
]`

func (f *courseFixture) publishedQuiz(t *testing.T, payload dto.QuizPayload) uuid.UUID {
	t.Helper()
	section := f.publishedSection(t)
	node := f.createNode(t, dto.ContentCreateRequest{
		ParentID:    stringPtr(section.ID.String()),
		ContentType: models.ContentTypeQuiz,
		Title:       "Concurrency quiz",
		Quiz:        &payload,
	})
	require.NotNil(t, node.Quiz)
	return node.Quiz.ID
}

func TestQuizSubmissionAutoGradesObjectiveQuiz(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	quizID := f.publishedQuiz(t, dto.QuizPayload{AutoGrade: true, Questions: json.RawMessage(objectiveQuestions)})
	svc := NewQuizSubmissionService(f.submissionDeps(), testValidator(), testLogger())

	started, err := svc.Start(ctx, f.student, quizID, dto.QuizStartRequest{Answers: map[string]string{"q1": "async"}})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusDraft, started.Status)

	_, err = svc.UpdateAnswers(ctx, f.student, quizID, started.ID, dto.QuizAnswersRequest{Answers: map[string]string{"q1": "async", "q2": "TRUE"}})
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, f.student, quizID, started.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusGraded, submitted.Status)
	require.NotNil(t, submitted.Score)
	require.InDelta(t, 75, *submitted.Score, 0.001)
	require.Nil(t, submitted.GradedBy)

	book, err := f.gradeService().ListMine(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, book.Items, 1)
	require.Equal(t, models.GradeSourceQuiz, book.Items[0].SubmissionType)
	require.Equal(t, uuid.Nil, book.Items[0].GradedBy)
	require.Equal(t, "C", book.Items[0].Letter)
}

func TestQuizSubmissionManualReviewCycle(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	quizID := f.publishedQuiz(t, dto.QuizPayload{AutoGrade: true, Questions: json.RawMessage(mixedQuestions)})
	svc := NewQuizSubmissionService(f.submissionDeps(), testValidator(), testLogger())

	started, err := svc.Start(ctx, f.student, quizID, dto.QuizStartRequest{Answers: map[string]string{"q1": "false", "q2": "It waits on channels"}})
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, f.student, quizID, started.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, submitted.Status)
	require.Nil(t, submitted.Score)

	_, err = svc.Resubmit(ctx, f.student, quizID, started.ID, dto.QuizResubmitRequest{})
	require.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	returned, err := svc.Return(ctx, f.teacher, quizID, started.ID, dto.QuizReturnRequest{Reason: "Expand on q2"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusReturned, returned.Status)
	require.Equal(t, "Expand on q2", returned.ReturnReason)
	require.NotNil(t, returned.ReturnedAt)

	resubmitted, err := svc.Resubmit(ctx, f.student, quizID, started.ID, dto.QuizResubmitRequest{Answers: map[string]string{"q1": "false", "q2": "It multiplexes channel operations"}})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusResubmitted, resubmitted.Status)
	require.Equal(t, "It multiplexes channel operations", resubmitted.Answers["q2"])

	graded, err := svc.Grade(ctx, f.teacher, quizID, started.ID, dto.GradeRequest{Score: floatPtr(88), Feedback: "Good"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusGraded, graded.Status)
	require.Equal(t, f.teacher.ID, *graded.GradedBy)

	notifications := f.notifier.all()
	require.Len(t, notifications, 2)
	require.Equal(t, models.NotificationTypeReturned, notifications[0].Type)
	require.Equal(t, models.NotificationTypeGraded, notifications[1].Type)
	require.Contains(t, f.events.names(), EventSubmissionReturned)
}

func TestQuizSubmissionFlagsTimeLimitOverrun(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	quizID := f.publishedQuiz(t, dto.QuizPayload{TimeLimitMinutes: 30, Questions: json.RawMessage(mixedQuestions)})
	svc := NewQuizSubmissionService(f.submissionDeps(), testValidator(), testLogger())

	clock := time.Now().UTC()
	svc.(*quizSubmissionService).now = func() time.Time { return clock }

	started, err := svc.Start(ctx, f.student, quizID, dto.QuizStartRequest{})
	require.NoError(t, err)

	clock = clock.Add(31 * time.Minute)
	submitted, err := svc.Submit(ctx, f.student, quizID, started.ID)
	require.NoError(t, err)
	require.True(t, submitted.IsLate)
}

func TestQuizSubmissionStartRules(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	due := time.Now().Add(-time.Hour)
	closedQuiz := f.publishedQuiz(t, dto.QuizPayload{DueDate: &due})
	openQuiz := f.publishedQuiz(t, dto.QuizPayload{MaxAttempts: intPtr(2)})
	svc := NewQuizSubmissionService(f.submissionDeps(), testValidator(), testLogger())

	_, err := svc.Start(ctx, f.student, closedQuiz, dto.QuizStartRequest{})
	require.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	_, err = svc.Start(ctx, f.teacher, openQuiz, dto.QuizStartRequest{})
	require.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	_, err = svc.Start(ctx, f.student, openQuiz, dto.QuizStartRequest{AttemptNumber: intPtr(2)})
	require.NoError(t, err)
	_, err = svc.Start(ctx, f.student, openQuiz, dto.QuizStartRequest{AttemptNumber: intPtr(2)})
	require.Equal(t, http.StatusConflict, apperror.StatusOf(err))

	_, err = svc.Start(ctx, f.student, openQuiz, dto.QuizStartRequest{})
	require.NoError(t, err)
	_, err = svc.Start(ctx, f.student, openQuiz, dto.QuizStartRequest{})
	require.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	_, err = svc.Start(ctx, f.student, uuid.New(), dto.QuizStartRequest{})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, "quiz not found", appErr.Message)
}

func TestScoreQuizComparesUnescapedAnswers(t *testing.T) {
	quiz := models.Quiz{MaxScore: 10}
	var questions []models.QuizQuestion
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"q1","type":"multiple_choice","prompt":"p","options":["a & b","c"],"answer":"a & b","points":2}]`), &questions))
	quiz.Questions = datatypes.NewJSONType(questions)

	require.InDelta(t, 10, scoreQuiz(quiz, models.QuizAnswers{"q1": "a &amp; b"}), 0.001)
	require.InDelta(t, 0, scoreQuiz(quiz, models.QuizAnswers{"q1": "c"}), 0.001)
	require.InDelta(t, 0, scoreQuiz(models.Quiz{}, models.QuizAnswers{}), 0.001)
}

func TestQuizSubmissionDuplicateAttemptConflicts(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	quizID := f.publishedQuiz(t, dto.QuizPayload{MaxAttempts: intPtr(3)})
	svc := NewQuizSubmissionService(f.submissionDeps(), testValidator(), testLogger())

	first, err := svc.Start(ctx, f.student, quizID, dto.QuizStartRequest{AttemptNumber: intPtr(1)})
	require.NoError(t, err)

	_, err = svc.Start(ctx, f.student, quizID, dto.QuizStartRequest{AttemptNumber: intPtr(1), Answers: map[string]string{"q1": "go"}})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, http.StatusConflict, appErr.Status)
	require.Equal(t, "submission attempt already exists", appErr.Message)

	var count int64
	require.NoError(t, f.db.Model(&models.QuizSubmission{}).Where("quiz_id = ? AND student_id = ?", quizID, f.student.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	attempts, err := svc.List(ctx, f.student, quizID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Equal(t, first.ID, attempts[0].ID)
	require.Empty(t, attempts[0].Answers)
}
