package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/handler"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/service"
)

type stubChatbotService struct {
	service.ChatbotService
	lastReq    dto.ChatbotAskRequest
	lastSearch *dto.VectorSearchRequest
	err        error
}

func (s *stubChatbotService) Ask(_ context.Context, _ service.Actor, req dto.ChatbotAskRequest) (dto.ChatbotAnswerResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return dto.ChatbotAnswerResponse{}, s.err
	}
	return dto.ChatbotAnswerResponse{ID: uuid.New(), Question: req.Message, Answer: "Goroutines are cheap threads.", Model: "gpt-4o-mini"}, nil
}

func (s *stubChatbotService) Search(_ context.Context, _ service.Actor, req dto.VectorSearchRequest) ([]dto.SearchResultResponse, error) {
	s.lastSearch = &req
	return []dto.SearchResultResponse{{ID: uuid.New(), Title: "Goroutines", Similarity: 0.91}}, nil
}

func newChatbotApp(chatbot *stubChatbotService, role string) *fiber.App {
	app := fiber.New()
	group := app.Group("/chatbot", asUser(uuid.New(), role))
	h := handler.NewChatbotHandler(chatbot, nil, validator.New(), testLogger)
	group.Post("/", h.Ask)
	h.Register(group)
	return app
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestChatbotHandlerAsk(t *testing.T) {
	chatbot := &stubChatbotService{}
	app := newChatbotApp(chatbot, models.RoleStudent)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/chatbot", `{"message":"what is a goroutine?","history":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var answer dto.ChatbotAnswerResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &answer))
	require.Equal(t, "what is a goroutine?", answer.Question)
	require.Len(t, chatbot.lastReq.History, 1)
}

func TestChatbotHandlerAskUpstreamFailure(t *testing.T) {
	chatbot := &stubChatbotService{err: apperror.New(fiber.StatusBadGateway, "assistant is unavailable", nil)}
	app := newChatbotApp(chatbot, models.RoleStudent)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/chatbot", `{"message":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}

func TestChatbotHandlerSearchRequiresStaff(t *testing.T) {
	chatbot := &stubChatbotService{}
	app := newChatbotApp(chatbot, models.RoleStudent)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/chatbot/search", `{"query":"goroutines"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Nil(t, chatbot.lastSearch)
}

func TestChatbotHandlerSearch(t *testing.T) {
	chatbot := &stubChatbotService{}
	app := newChatbotApp(chatbot, models.RoleTeacher)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/chatbot/search", `{"query":"  goroutines  ","limit":3,"threshold":0.5}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, chatbot.lastSearch)
	require.Equal(t, "goroutines", chatbot.lastSearch.Query)
	require.Equal(t, 3, chatbot.lastSearch.Limit)
	require.InDelta(t, 0.5, chatbot.lastSearch.Threshold, 1e-9)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/chatbot/search", `{"query":"   "}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "required", decodeEnvelope(t, resp).Details["query"])
}

func TestChatbotHandlerWebsocketRequiresUpgrade(t *testing.T) {
	app := newChatbotApp(&stubChatbotService{}, models.RoleStudent)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/chatbot/ws", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
