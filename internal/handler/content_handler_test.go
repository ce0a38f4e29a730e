package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/handler"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/service"
)

type stubContentService struct {
	service.ContentService
	deleted    bool
	lastDirect bool
	deleteErr  error
}

func (s *stubContentService) Delete(_ context.Context, _ service.Actor, _, _ uuid.UUID, direct bool) error {
	s.deleted = true
	s.lastDirect = direct
	return s.deleteErr
}

type stubPublishService struct {
	service.PublishService
	lastActor service.Actor
	lastReq   dto.PublishRequest
	message   string
	err       error
}

func (s *stubPublishService) Publish(_ context.Context, actor service.Actor, _, id uuid.UUID, req dto.PublishRequest) (dto.PublishResponse, string, error) {
	s.lastActor = actor
	s.lastReq = req
	if s.err != nil {
		return dto.PublishResponse{}, "", s.err
	}
	return dto.PublishResponse{Content: dto.ContentResponse{ID: id}, Scheduled: req.ToPublishAt != nil}, s.message, nil
}

func newContentApp(contents *stubContentService, publisher *stubPublishService, userID uuid.UUID) *fiber.App {
	app := fiber.New()
	group := app.Group("/lms/:lmsId/contents", asUser(userID, models.RoleTeacher))
	handler.NewContentHandler(contents, publisher, testLogger).Register(group)
	return app
}

func TestContentHandlerPublishReturnsServiceMessage(t *testing.T) {
	teacherID := uuid.New()
	publisher := &stubPublishService{message: "content scheduled"}
	app := newContentApp(&stubContentService{}, publisher, teacherID)

	at := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	body, err := json.Marshal(dto.PublishRequest{ToPublishAt: &at})
	require.NoError(t, err)

	contentID := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/lms/"+uuid.NewString()+"/contents/"+contentID.String()+"/publish", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.True(t, payload.Success)
	require.Equal(t, "content scheduled", payload.Message)

	var state dto.PublishResponse
	require.NoError(t, json.Unmarshal(payload.Data, &state))
	require.True(t, state.Scheduled)
	require.Equal(t, contentID, state.Content.ID)

	require.Equal(t, teacherID, publisher.lastActor.ID)
	require.Equal(t, models.RoleTeacher, publisher.lastActor.Role)
	require.NotNil(t, publisher.lastReq.ToPublishAt)
	require.True(t, at.Equal(*publisher.lastReq.ToPublishAt))
}

func TestContentHandlerPublishAcceptsEmptyBody(t *testing.T) {
	publisher := &stubPublishService{message: "content published"}
	app := newContentApp(&stubContentService{}, publisher, uuid.New())

	req := httptest.NewRequest(http.MethodPatch, "/lms/"+uuid.NewString()+"/contents/"+uuid.NewString()+"/publish", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Nil(t, publisher.lastReq.ToPublishAt)
}

func TestContentHandlerRejectsInvalidIdentifiers(t *testing.T) {
	app := newContentApp(&stubContentService{}, &stubPublishService{}, uuid.New())

	req := httptest.NewRequest(http.MethodPatch, "/lms/not-a-uuid/contents/"+uuid.NewString()+"/publish", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.False(t, payload.Success)
	require.Equal(t, "invalid lmsId", payload.Message)
}

func TestContentHandlerMapsServiceErrors(t *testing.T) {
	publisher := &stubPublishService{err: apperror.Forbidden("only course managers can publish content")}
	app := newContentApp(&stubContentService{}, publisher, uuid.New())

	req := httptest.NewRequest(http.MethodPatch, "/lms/"+uuid.NewString()+"/contents/"+uuid.NewString()+"/publish", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "only course managers can publish content", decodeEnvelope(t, resp).Message)
}

func TestContentHandlerDeleteReadsDirectFlag(t *testing.T) {
	contents := &stubContentService{}
	app := newContentApp(contents, &stubPublishService{}, uuid.New())

	req := httptest.NewRequest(http.MethodDelete, "/lms/"+uuid.NewString()+"/contents/"+uuid.NewString()+"?direct=TRUE", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, contents.deleted)
	require.True(t, contents.lastDirect)
}

func TestContentHandlerHidesUnexpectedErrors(t *testing.T) {
	contents := &stubContentService{deleteErr: context.DeadlineExceeded}
	app := newContentApp(contents, &stubPublishService{}, uuid.New())

	req := httptest.NewRequest(http.MethodDelete, "/lms/"+uuid.NewString()+"/contents/"+uuid.NewString(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "internal server error", decodeEnvelope(t, resp).Message)
	require.False(t, contents.lastDirect)
}

func TestContentHandlerRequiresIdentity(t *testing.T) {
	app := fiber.New()
	handler.NewContentHandler(&stubContentService{}, &stubPublishService{}, testLogger).Register(app.Group("/lms/:lmsId/contents"))

	req := httptest.NewRequest(http.MethodDelete, "/lms/"+uuid.NewString()+"/contents/"+uuid.NewString(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
