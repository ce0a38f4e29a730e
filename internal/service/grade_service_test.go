package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/models"
)

func TestComputeGrade(t *testing.T) {
	cases := []struct {
		name           string
		raw, max, pct  float64
		late           bool
		penalty, final float64
		percentage     float64
	}{
		{name: "on time", raw: 45, max: 50, pct: 10, late: false, penalty: 0, final: 45, percentage: 90},
		{name: "late with penalty", raw: 40, max: 50, pct: 10, late: true, penalty: 4, final: 36, percentage: 72},
		{name: "late without penalty", raw: 40, max: 50, pct: 0, late: true, penalty: 0, final: 40, percentage: 80},
		{name: "rounds to cents", raw: 33.333, max: 100, pct: 15, late: true, penalty: 5, final: 28.33, percentage: 28.33},
		{name: "zero max", raw: 10, max: 0, pct: 0, late: false, penalty: 0, final: 10, percentage: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			penalty, final, percentage := computeGrade(tc.raw, tc.max, tc.pct, tc.late)
			require.InDelta(t, tc.penalty, penalty, 0.001)
			require.InDelta(t, tc.final, final, 0.001)
			require.InDelta(t, tc.percentage, percentage, 0.001)
		})
	}
}

func TestLetterBoundaries(t *testing.T) {
	require.Equal(t, "A", models.LetterFor(90))
	require.Equal(t, "B", models.LetterFor(89.99))
	require.Equal(t, "B", models.LetterFor(80))
	require.Equal(t, "C", models.LetterFor(70))
	require.Equal(t, "D", models.LetterFor(60))
	require.Equal(t, "F", models.LetterFor(59.99))
}

func TestGradeServiceScopesGradebook(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.gradeService()
	ctx := context.Background()
	other := f.seedUser(t, models.RoleStudent)
	f.enroll(t, other, models.RoleStudent, models.EnrollmentStatusActive)

	for _, input := range []GradeInput{
		{StudentID: f.student.ID, RawScore: 90, MaxScore: 100},
		{StudentID: other.ID, RawScore: 70, MaxScore: 100},
	} {
		input.LmsID = f.lms.ID
		input.ContentID = uuid.New()
		input.SubmissionType = models.GradeSourceAssignment
		input.SubmissionID = uuid.New()
		input.GradedBy = f.teacher.ID
		input.GradedAt = time.Now().UTC()
		_, err := svc.Record(ctx, input)
		require.NoError(t, err)
	}

	all, err := svc.ListForLms(ctx, f.teacher, f.lms.ID)
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.InDelta(t, 80, all.AveragePercentage, 0.001)
	require.Equal(t, "B", all.Letter)

	own, err := svc.ListForLms(ctx, f.student, f.lms.ID)
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	require.Equal(t, f.student.ID, own.Items[0].StudentID)
	require.Equal(t, "A", own.Items[0].Letter)

	mine, err := svc.ListMine(ctx, other)
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	require.Equal(t, "C", mine.Letter)
}

func TestGradeServiceRecordIsIdempotentPerSubmission(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.gradeService()
	ctx := context.Background()
	input := GradeInput{
		LmsID:          f.lms.ID,
		StudentID:      f.student.ID,
		ContentID:      uuid.New(),
		SubmissionType: models.GradeSourceQuiz,
		SubmissionID:   uuid.New(),
		RawScore:       50,
		MaxScore:       100,
		GradedAt:       time.Now().UTC(),
	}

	_, err := svc.Record(ctx, input)
	require.NoError(t, err)
	input.RawScore = 95
	regraded, err := svc.Record(ctx, input)
	require.NoError(t, err)
	require.Equal(t, "A", regraded.Letter)

	book, err := svc.ListMine(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, book.Items, 1)
	require.InDelta(t, 95, book.Items[0].FinalScore, 0.001)
}
