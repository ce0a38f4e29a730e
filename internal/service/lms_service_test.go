package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

func (f *courseFixture) lmsService() LmsService {
	return NewLmsService(LmsServiceDeps{
		Courses:     f.courses,
		Enrollments: f.enrollments,
		Users:       repository.NewUserRepository(f.db),
		Access:      f.access,
		Events:      f.events,
	}, testValidator(), testLogger())
}

func TestLmsServiceCreateAndUpdate(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.lmsService()
	ctx := context.Background()

	created, err := svc.Create(ctx, f.admin, dto.LmsCreateRequest{
		Code:        " bio-201 ",
		Title:       "Cell Biology",
		Description: `<p>Cells</p><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	require.Equal(t, "BIO-201", created.Code)
	require.NotContains(t, created.Description, "<script>")

	_, err = svc.Create(ctx, f.admin, dto.LmsCreateRequest{Code: "BIO-201", Title: "Duplicate"})
	require.Equal(t, http.StatusConflict, apperror.StatusOf(err))

	_, err = svc.Create(ctx, f.teacher, dto.LmsCreateRequest{Code: "CHEM-1", Title: "Chemistry"})
	require.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	title := "Cell Biology II"
	var fee int64 = 250000
	updated, err := svc.Update(ctx, f.admin, created.ID, dto.LmsUpdateRequest{Title: &title, EnrollmentFeeIDR: &fee})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.EqualValues(t, fee, updated.EnrollmentFeeIDR)

	_, err = svc.Update(ctx, f.admin, uuid.New(), dto.LmsUpdateRequest{Title: &title})
	require.Equal(t, http.StatusNotFound, apperror.StatusOf(err))

	require.NoError(t, svc.Delete(ctx, f.admin, created.ID))
	err = svc.Delete(ctx, f.admin, created.ID)
	require.Equal(t, http.StatusNotFound, apperror.StatusOf(err))
}

func TestLmsServiceVisibility(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.lmsService()
	ctx := context.Background()

	other := models.Lms{Code: "ART-1", Title: "Art History"}
	require.NoError(t, f.db.Create(&other).Error)

	all, err := svc.List(ctx, f.admin, dto.ListQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 2, all.Pagination.TotalItems)

	mine, err := svc.List(ctx, f.student, dto.ListQuery{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	require.Equal(t, f.lms.ID, mine.Items[0].ID)

	none, err := svc.List(ctx, f.outsider, dto.ListQuery{})
	require.NoError(t, err)
	require.Empty(t, none.Items)

	_, err = svc.Get(ctx, f.student, f.lms.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, f.outsider, f.lms.ID)
	require.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	_, err = svc.Get(ctx, f.admin, uuid.New())
	require.Equal(t, http.StatusNotFound, apperror.StatusOf(err))
}

func TestLmsServiceEnrollmentLifecycle(t *testing.T) {
	f := newCourseFixture(t)
	svc := f.lmsService()
	ctx := context.Background()

	enrollment, err := svc.Enroll(ctx, f.teacher, f.lms.ID, dto.EnrollmentCreateRequest{UserID: f.outsider.ID.String(), Role: models.RoleStudent})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.NotNil(t, enrollment.User)
	require.Contains(t, f.events.names(), EventEnrollmentActivated)

	_, err = svc.Enroll(ctx, f.teacher, f.lms.ID, dto.EnrollmentCreateRequest{UserID: f.outsider.ID.String(), Role: models.RoleStudent})
	require.Equal(t, http.StatusConflict, apperror.StatusOf(err))

	_, err = svc.Enroll(ctx, f.student, f.lms.ID, dto.EnrollmentCreateRequest{UserID: uuid.NewString(), Role: models.RoleStudent})
	require.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	_, err = svc.Enroll(ctx, f.teacher, f.lms.ID, dto.EnrollmentCreateRequest{UserID: uuid.NewString(), Role: models.RoleStudent})
	require.Equal(t, http.StatusNotFound, apperror.StatusOf(err))

	listed, err := svc.ListEnrollments(ctx, f.teacher, f.lms.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	dropped, err := svc.Drop(ctx, f.teacher, f.lms.ID, f.outsider.ID)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusDropped, dropped.Status)

	level, err := f.access.Resolve(ctx, f.outsider, f.lms.ID)
	require.NoError(t, err)
	require.Equal(t, AccessNone, level)

	rejoined, err := svc.Enroll(ctx, f.admin, f.lms.ID, dto.EnrollmentCreateRequest{UserID: f.outsider.ID.String(), Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, dropped.ID, rejoined.ID)
	require.Equal(t, models.RoleTeacher, rejoined.Role)

	level, err = f.access.Resolve(ctx, f.outsider, f.lms.ID)
	require.NoError(t, err)
	require.Equal(t, AccessManager, level)

	_, err = svc.Drop(ctx, f.teacher, f.lms.ID, uuid.New())
	require.Equal(t, http.StatusNotFound, apperror.StatusOf(err))
}
