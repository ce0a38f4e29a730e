package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
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
)

type mockUploadService struct {
	lastUserID *uuid.UUID
	lastName   string
	response   dto.UploadResponse
	err        error
}

func (m *mockUploadService) Upload(_ context.Context, file *multipart.FileHeader, userID *uuid.UUID) (dto.UploadResponse, error) {
	if file != nil {
		m.lastName = file.Filename
	}
	m.lastUserID = userID
	if m.err != nil {
		return dto.UploadResponse{}, m.err
	}
	return m.response, nil
}

func newUploadApp(svc *mockUploadService, userID uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Post("/uploads", asUser(userID, models.RoleStudent), handler.NewUploadHandler(svc, testLogger).Handle)
	return app
}

func multipartRequest(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadHandlerSuccess(t *testing.T) {
	userID := uuid.New()
	svc := &mockUploadService{response: dto.UploadResponse{
		ID:        uuid.New(),
		URL:       "https://cdn.example.com/syllabus.pdf",
		FileName:  "syllabus.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 3,
		Checksum:  "abc",
	}}
	app := newUploadApp(svc, userID)

	resp, err := app.Test(multipartRequest(t, "file", "syllabus.pdf", []byte("pdf")))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.True(t, payload.Success)
	require.Equal(t, "file uploaded", payload.Message)

	var result dto.UploadResponse
	require.NoError(t, json.Unmarshal(payload.Data, &result))
	require.Equal(t, svc.response.URL, result.URL)
	require.Equal(t, "syllabus.pdf", svc.lastName)
	require.NotNil(t, svc.lastUserID)
	require.Equal(t, userID, *svc.lastUserID)
}

func TestUploadHandlerMissingFile(t *testing.T) {
	svc := &mockUploadService{}
	app := newUploadApp(svc, uuid.New())

	resp, err := app.Test(multipartRequest(t, "", "", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "file is required", decodeEnvelope(t, resp).Message)
	require.Nil(t, svc.lastUserID)
}

func TestUploadHandlerServiceError(t *testing.T) {
	svc := &mockUploadService{err: apperror.New(fiber.StatusRequestEntityTooLarge, "file exceeds maximum size", nil)}
	app := newUploadApp(svc, uuid.New())

	resp, err := app.Test(multipartRequest(t, "file", "huge.bin", []byte("x")))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
	require.Equal(t, "file exceeds maximum size", decodeEnvelope(t, resp).Message)
}
