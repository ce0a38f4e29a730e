package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/handler"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/service"
)

type stubGradeService struct {
	service.GradeService
	mineFor uuid.UUID
}

func (s *stubGradeService) ListForLms(_ context.Context, actor service.Actor, lmsID uuid.UUID) (dto.GradebookResponse, error) {
	if actor.Role == models.RoleStudent {
		return dto.GradebookResponse{}, apperror.Forbidden("only course teachers can perform this action")
	}
	return dto.GradebookResponse{AveragePercentage: 81.5, Letter: "B"}, nil
}

func (s *stubGradeService) ListMine(_ context.Context, actor service.Actor) (dto.GradebookResponse, error) {
	s.mineFor = actor.ID
	return dto.GradebookResponse{Items: []dto.GradeResponse{}, AveragePercentage: 90, Letter: "A"}, nil
}

func TestGradeHandlerListForLms(t *testing.T) {
	h := handler.NewGradeHandler(&stubGradeService{}, testLogger)

	teacherApp := fiber.New()
	teacherApp.Get("/lms/:lmsId/grades", asUser(uuid.New(), models.RoleTeacher), h.ListForLms)
	resp, err := teacherApp.Test(httptest.NewRequest(http.MethodGet, "/lms/"+uuid.NewString()+"/grades", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var gradebook dto.GradebookResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &gradebook))
	require.Equal(t, "B", gradebook.Letter)

	resp, err = teacherApp.Test(httptest.NewRequest(http.MethodGet, "/lms/bad/grades", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	studentApp := fiber.New()
	studentApp.Get("/lms/:lmsId/grades", asUser(uuid.New(), models.RoleStudent), h.ListForLms)
	resp, err = studentApp.Test(httptest.NewRequest(http.MethodGet, "/lms/"+uuid.NewString()+"/grades", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGradeHandlerListMine(t *testing.T) {
	svc := &stubGradeService{}
	studentID := uuid.New()
	app := fiber.New()
	app.Get("/grades/me", asUser(studentID, models.RoleStudent), handler.NewGradeHandler(svc, testLogger).ListMine)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/grades/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "grades retrieved", decodeEnvelope(t, resp).Message)
	require.Equal(t, studentID, svc.mineFor)
}
