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

type stubLmsService struct {
	service.LmsService
	lastQuery  dto.ListQuery
	lastCreate dto.LmsCreateRequest
	dropped    [2]uuid.UUID
	dropErr    error
}

func (s *stubLmsService) Create(_ context.Context, _ service.Actor, req dto.LmsCreateRequest) (dto.LmsResponse, error) {
	s.lastCreate = req
	return dto.LmsResponse{ID: uuid.New(), Code: req.Code, Title: req.Title}, nil
}

func (s *stubLmsService) List(_ context.Context, _ service.Actor, req dto.ListQuery) (dto.LmsListResponse, error) {
	s.lastQuery = req
	return dto.LmsListResponse{
		Items:      []dto.LmsResponse{{ID: uuid.New(), Code: "GO-101", Title: "Practical Go"}},
		Pagination: dto.PaginationMeta{Page: req.Page, PageSize: req.PageSize, TotalItems: 1, TotalPages: 1},
	}, nil
}

func (s *stubLmsService) Drop(_ context.Context, _ service.Actor, lmsID, userID uuid.UUID) (dto.EnrollmentResponse, error) {
	if s.dropErr != nil {
		return dto.EnrollmentResponse{}, s.dropErr
	}
	s.dropped = [2]uuid.UUID{lmsID, userID}
	return dto.EnrollmentResponse{LmsID: lmsID, UserID: userID, Status: models.EnrollmentStatusDropped}, nil
}

func newLmsApp(svc *stubLmsService) *fiber.App {
	app := fiber.New()
	group := app.Group("/lms", asUser(uuid.New(), models.RoleAdmin))
	handler.NewLmsHandler(svc, testLogger).Register(group)
	return app
}

func TestLmsHandlerCreate(t *testing.T) {
	svc := &stubLmsService{}
	app := newLmsApp(svc)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/lms", `{"code":"GO-101","title":"Practical Go","enrollment_fee_idr":150000}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "lms created", decodeEnvelope(t, resp).Message)
	require.EqualValues(t, 150000, svc.lastCreate.EnrollmentFeeIDR)
}

func TestLmsHandlerListPassesPagination(t *testing.T) {
	svc := &stubLmsService{}
	app := newLmsApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/lms?page=2&page_size=5&search=go", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, dto.ListQuery{Page: 2, PageSize: 5, Search: "go"}, svc.lastQuery)

	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Meta, &meta))
	require.Equal(t, 2, meta.Page)
	require.EqualValues(t, 1, meta.TotalItems)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/lms?page=two", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid query parameters", decodeEnvelope(t, resp).Message)
}

func TestLmsHandlerDropEnrollment(t *testing.T) {
	svc := &stubLmsService{}
	app := newLmsApp(svc)
	lmsID, userID := uuid.New(), uuid.New()

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/lms/"+lmsID.String()+"/enrollments/"+userID.String(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, [2]uuid.UUID{lmsID, userID}, svc.dropped)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/lms/"+lmsID.String()+"/enrollments/someone", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid userId", decodeEnvelope(t, resp).Message)

	svc.dropErr = apperror.NotFound("enrollment not found")
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/lms/"+lmsID.String()+"/enrollments/"+userID.String(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLmsHandlerRejectsInvalidLmsID(t *testing.T) {
	app := newLmsApp(&stubLmsService{})

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp, err := app.Test(httptest.NewRequest(method, "/lms/not-a-uuid", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "invalid lmsId", decodeEnvelope(t, resp).Message)
	}
}
