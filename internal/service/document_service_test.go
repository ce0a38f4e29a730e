package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
)

func TestDocumentServiceIngest(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	repo := &fakeDocumentRepo{}
	embedder := &fakeEmbedder{}
	svc := NewDocumentService(embedder, repo, f.access, nil, testValidator(), testLogger())

	lmsID := f.lms.ID.String()
	doc, err := svc.Ingest(ctx, f.teacher, dto.DocumentIngestRequest{
		Title:    "  Goroutines ",
		Content:  "A goroutine is a lightweight thread managed by the runtime.",
		Source:   "lesson-3",
		LmsID:    &lmsID,
		Metadata: map[string]interface{}{"author_email": "teacher@example.com", "week": 3},
	})
	require.NoError(t, err)
	require.Equal(t, "Goroutines", doc.Title)
	require.NotNil(t, doc.LmsID)
	require.Equal(t, f.lms.ID, *doc.LmsID)

	require.Len(t, repo.inserted, 1)
	stored := repo.inserted[0]
	require.Equal(t, "[0.1,0.2,0.3]", stored.Embedding)
	require.NotEqual(t, "teacher@example.com", stored.Metadata["author_email"])
	require.EqualValues(t, 3, stored.Metadata["week"])
	require.Equal(t, 1, embedder.calls)

	global, err := svc.Ingest(ctx, f.admin, dto.DocumentIngestRequest{Title: "Style guide", Content: "Prefer small interfaces near their use."})
	require.NoError(t, err)
	require.Nil(t, global.LmsID)
}

func TestDocumentServiceIngestAccess(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	repo := &fakeDocumentRepo{}
	svc := NewDocumentService(&fakeEmbedder{}, repo, f.access, nil, testValidator(), testLogger())
	lmsID := f.lms.ID.String()

	_, err := svc.Ingest(ctx, f.teacher, dto.DocumentIngestRequest{Title: "Global", Content: "Material shared by every course."})
	require.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	_, err = svc.Ingest(ctx, f.student, dto.DocumentIngestRequest{Title: "Notes", Content: "Student notes on channels.", LmsID: &lmsID})
	require.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	invalid := "not-a-uuid"
	_, err = svc.Ingest(ctx, f.admin, dto.DocumentIngestRequest{Title: "Notes", Content: "Material with a broken course id.", LmsID: &invalid})
	require.Error(t, err)

	_, err = svc.Ingest(ctx, f.admin, dto.DocumentIngestRequest{Title: "Short", Content: "tiny"})
	require.Error(t, err)

	require.Empty(t, repo.inserted)
}

func TestDocumentServiceEmbeddingFailure(t *testing.T) {
	f := newCourseFixture(t)
	repo := &fakeDocumentRepo{}
	svc := NewDocumentService(&fakeEmbedder{err: errors.New("timeout")}, repo, f.access, nil, testValidator(), testLogger())

	_, err := svc.Ingest(context.Background(), f.admin, dto.DocumentIngestRequest{Title: "Style guide", Content: "Prefer small interfaces near their use."})
	require.Equal(t, http.StatusBadGateway, apperror.StatusOf(err))
	require.Empty(t, repo.inserted)
}
