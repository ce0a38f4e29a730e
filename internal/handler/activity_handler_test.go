package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/handler"
	"github.com/noah-isme/lms-go-api/internal/service"
)

type stubActivityService struct {
	service.ActivityService
	last dto.ActivityListRequest
}

func (s *stubActivityService) List(_ context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	s.last = req
	return dto.ActivityListResponse{Items: []dto.ActivityResponse{}, Pagination: dto.PaginationMeta{Page: 1, PageSize: 20}}, nil
}

func TestActivityHandlerListFilters(t *testing.T) {
	svc := &stubActivityService{}
	app := fiber.New()
	app.Get("/admin/activities", handler.NewActivityHandler(svc, testLogger).List)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/activities?action=lms.created&entity_type=lms&page_size=20", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "activities retrieved", decodeEnvelope(t, resp).Message)
	require.Equal(t, "lms.created", svc.last.Action)
	require.Equal(t, "lms", svc.last.EntityType)
	require.Equal(t, 20, svc.last.PageSize)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin/activities?page=x", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
