package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
)

func TestContentServiceEnforcesPlacement(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.contentService()
	ctx := context.Background()

	_, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{ContentType: models.ContentTypeLesson, Title: "Loose lesson"})
	require.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	section, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{ContentType: models.ContentTypeSection, Title: "Week 1"})
	require.NoError(t, err)
	require.Equal(t, dto.ContentStatusDraft, section.Status)

	sub, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{ParentID: stringPtr(section.ID.String()), ContentType: models.ContentTypeSubsection, Title: "Basics"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{ParentID: stringPtr(sub.ID.String()), ContentType: models.ContentTypeSubsection, Title: "Too deep"})
	require.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	lesson, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{ParentID: stringPtr(sub.ID.String()), ContentType: models.ContentTypeLesson, Title: "Hello, Go"})
	require.NoError(t, err)
	require.Equal(t, sub.ID, *lesson.ParentID)
}

func TestContentServiceRequiresManager(t *testing.T) {
	f := newCourseFixture(t)

	_, err := f.contentService().Create(context.Background(), f.student, f.lms.ID, dto.ContentCreateRequest{ContentType: models.ContentTypeSection, Title: "Mine"})
	require.Equal(t, http.StatusForbidden, apperror.StatusOf(err))
}

func TestContentServiceAppliesPayloadDefaults(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.contentService()
	ctx := context.Background()
	section := f.publishedSection(t)

	assignment, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{
		ParentID:    stringPtr(section.ID.String()),
		ContentType: models.ContentTypeAssignment,
		Title:       "Essay",
		Assignment:  &dto.AssignmentPayload{Instructions: "<p>Write</p><script>alert(1)</script>"},
	})
	require.NoError(t, err)
	require.NotNil(t, assignment.Assignment)
	require.Equal(t, 100.0, assignment.Assignment.MaxScore)
	require.Equal(t, 1, assignment.Assignment.MaxAttempts)
	require.NotContains(t, assignment.Assignment.Instructions, "script")

	link, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{
		ParentID:    stringPtr(section.ID.String()),
		ContentType: models.ContentTypeExternalURL,
		Title:       "Tour of Go",
		ExternalURL: &dto.ExternalURLPayload{URL: "https://go.dev/tour"},
	})
	require.NoError(t, err)
	require.True(t, link.ExternalURL.OpenInNewTab)

	video, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{
		ParentID:    stringPtr(section.ID.String()),
		ContentType: models.ContentTypeVideo,
		Title:       "Intro",
		Video:       &dto.VideoPayload{URL: "https://www.youtube.com/watch?v=abc"},
	})
	require.NoError(t, err)
	require.Equal(t, "youtube", video.Video.Provider)

	_, err = svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{
		ParentID:    stringPtr(section.ID.String()),
		ContentType: models.ContentTypeLesson,
		Title:       "Mismatch",
		Video:       &dto.VideoPayload{URL: "https://vimeo.com/1"},
	})
	require.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
}

func TestContentServiceValidatesQuizQuestions(t *testing.T) {
	f := newCourseFixture(t)
	section := f.publishedSection(t)

	_, err := f.contentService().Create(context.Background(), f.teacher, f.lms.ID, dto.ContentCreateRequest{
		ParentID:    stringPtr(section.ID.String()),
		ContentType: models.ContentTypeQuiz,
		Title:       "Broken quiz",
		Quiz: &dto.QuizPayload{
			Questions: json.RawMessage(`[{"id":"q1","type":"multiple_choice","prompt":"Pick one"}]`),
		},
	})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, appErr.Status)
	require.Contains(t, appErr.Message, "invalid quiz questions")
}

func TestContentServiceTreeHidesUnpublishedBranches(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.contentService()
	ctx := context.Background()

	visible := f.publishedSection(t)
	f.createNode(t, dto.ContentCreateRequest{ParentID: stringPtr(visible.ID.String()), ContentType: models.ContentTypeLesson, Title: "Published lesson"})
	_, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{ParentID: stringPtr(visible.ID.String()), ContentType: models.ContentTypeLesson, Title: "Draft lesson"})
	require.NoError(t, err)

	hidden, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{ContentType: models.ContentTypeSection, Title: "Week 2"})
	require.NoError(t, err)
	f.createNode(t, dto.ContentCreateRequest{ParentID: stringPtr(hidden.ID.String()), ContentType: models.ContentTypeLesson, Title: "Orphaned lesson"})

	learnerTree, err := svc.Tree(ctx, f.student, f.lms.ID)
	require.NoError(t, err)
	require.Len(t, learnerTree, 1)
	require.Equal(t, visible.ID, learnerTree[0].ID)
	require.Len(t, learnerTree[0].Children, 1)
	require.Equal(t, "Published lesson", learnerTree[0].Children[0].Title)

	teacherTree, err := svc.Tree(ctx, f.teacher, f.lms.ID)
	require.NoError(t, err)
	require.Len(t, teacherTree, 2)

	_, err = svc.Get(ctx, f.student, f.lms.ID, hidden.ID)
	require.Equal(t, http.StatusNotFound, apperror.StatusOf(err))

	_, err = svc.Tree(ctx, f.outsider, f.lms.ID)
	require.Equal(t, http.StatusForbidden, apperror.StatusOf(err))
}

func TestContentServiceUpdateAndDelete(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.contentService()
	ctx := context.Background()
	section := f.publishedSection(t)
	lesson := f.createNode(t, dto.ContentCreateRequest{ParentID: stringPtr(section.ID.String()), ContentType: models.ContentTypeLesson, Title: "Draft"})

	updated, err := svc.Update(ctx, f.teacher, f.lms.ID, lesson.ID, dto.ContentUpdateRequest{Title: stringPtr("Variables"), Position: intPtr(3)})
	require.NoError(t, err)
	require.Equal(t, "Variables", updated.Title)
	require.Equal(t, 3, updated.Position)

	require.NoError(t, svc.Delete(ctx, f.teacher, f.lms.ID, section.ID, false))

	tree, err := svc.Tree(ctx, f.teacher, f.lms.ID)
	require.NoError(t, err)
	require.Empty(t, tree)

	err = svc.Delete(ctx, f.teacher, f.lms.ID, uuid.New(), false)
	require.Equal(t, http.StatusNotFound, apperror.StatusOf(err))
}

func TestContentServiceUpdateKeepsAbsentAssignmentFields(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.contentService()
	ctx := context.Background()
	section := f.publishedSection(t)
	due := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)

	created, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{
		ParentID:    stringPtr(section.ID.String()),
		ContentType: models.ContentTypeAssignment,
		Title:       "Essay",
		Assignment: &dto.AssignmentPayload{
			Instructions:        "Write 500 words",
			DueDate:             &due,
			AllowLateSubmission: true,
			LatePenaltyPercent:  10,
		},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, f.teacher, f.lms.ID, created.ID, dto.ContentUpdateRequest{
		Assignment: &dto.AssignmentPatch{MaxScore: floatPtr(50)},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Assignment)
	require.InDelta(t, 50, updated.Assignment.MaxScore, 1e-9)
	require.Equal(t, "Write 500 words", updated.Assignment.Instructions)
	require.NotNil(t, updated.Assignment.DueDate)
	require.True(t, due.Equal(*updated.Assignment.DueDate))
	require.True(t, updated.Assignment.AllowLateSubmission)
	require.InDelta(t, 10, updated.Assignment.LatePenaltyPercent, 1e-9)

	updated, err = svc.Update(ctx, f.teacher, f.lms.ID, created.ID, dto.ContentUpdateRequest{
		Assignment: &dto.AssignmentPatch{ClearDueDate: true, AllowLateSubmission: boolPtr(false)},
	})
	require.NoError(t, err)
	require.Nil(t, updated.Assignment.DueDate)
	require.False(t, updated.Assignment.AllowLateSubmission)
	require.InDelta(t, 50, updated.Assignment.MaxScore, 1e-9)
}

func TestContentServiceUpdateKeepsAbsentQuizFields(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.contentService()
	ctx := context.Background()
	section := f.publishedSection(t)

	created, err := svc.Create(ctx, f.teacher, f.lms.ID, dto.ContentCreateRequest{
		ParentID:    stringPtr(section.ID.String()),
		ContentType: models.ContentTypeQuiz,
		Title:       "Checkpoint",
		Quiz:        &dto.QuizPayload{Instructions: "No notes", TimeLimitMinutes: 20, AutoGrade: true},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, f.teacher, f.lms.ID, created.ID, dto.ContentUpdateRequest{
		Quiz: &dto.QuizPatch{MaxAttempts: intPtr(3)},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Quiz)
	require.Equal(t, 3, updated.Quiz.MaxAttempts)
	require.Equal(t, "No notes", updated.Quiz.Instructions)
	require.Equal(t, 20, updated.Quiz.TimeLimitMinutes)
	require.True(t, updated.Quiz.AutoGrade)
}
