package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

func seedNode(t *testing.T, db *gorm.DB, lmsID uuid.UUID, parent *uuid.UUID, contentType string) models.ModuleContent {
	t.Helper()
	node := models.ModuleContent{LmsID: lmsID, ParentID: parent, ContentType: contentType, Title: contentType}
	if contentType == models.ContentTypeAssignment {
		node.Assignment = &models.Assignment{MaxScore: 100, MaxAttempts: 1}
	}
	require.NoError(t, db.Create(&node).Error)
	return node
}

func TestContentRepositoryDescendantIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	lms := seedLms(t, db, "CS101")

	section := seedNode(t, db, lms.ID, nil, models.ContentTypeSection)
	sub := seedNode(t, db, lms.ID, &section.ID, models.ContentTypeSubsection)
	lesson := seedNode(t, db, lms.ID, &sub.ID, models.ContentTypeLesson)
	other := seedNode(t, db, lms.ID, nil, models.ContentTypeSection)

	ids, err := repo.DescendantIDs(context.Background(), lms.ID, section.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{section.ID, sub.ID, lesson.ID}, ids)
	require.NotContains(t, ids, other.ID)

	_, err = repo.DescendantIDs(context.Background(), lms.ID, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestContentRepositorySoftAndHardDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	lms := seedLms(t, db, "CS102")
	ctx := context.Background()

	section := seedNode(t, db, lms.ID, nil, models.ContentTypeSection)
	assignment := seedNode(t, db, lms.ID, &section.ID, models.ContentTypeAssignment)

	require.NoError(t, repo.Delete(ctx, []uuid.UUID{assignment.ID}, false))
	nodes, err := repo.ListByLms(ctx, lms.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	var softCount int64
	require.NoError(t, db.Unscoped().Model(&models.ModuleContent{}).Where("id = ?", assignment.ID).Count(&softCount).Error)
	require.Equal(t, int64(1), softCount)

	require.NoError(t, repo.Delete(ctx, []uuid.UUID{section.ID, assignment.ID}, true))

	var remaining int64
	require.NoError(t, db.Unscoped().Model(&models.ModuleContent{}).Count(&remaining).Error)
	require.Zero(t, remaining)

	var payloads int64
	require.NoError(t, db.Model(&models.Assignment{}).Count(&payloads).Error)
	require.Zero(t, payloads)
}

func TestContentRepositoryPromoteDue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	lms := seedLms(t, db, "CS103")
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := seedNode(t, db, lms.ID, nil, models.ContentTypeSection)
	pending := seedNode(t, db, lms.ID, nil, models.ContentTypeSection)
	require.NoError(t, repo.SetPublishState(ctx, due.ID, PublishState{ToPublishAt: &past}))
	require.NoError(t, repo.SetPublishState(ctx, pending.ID, PublishState{ToPublishAt: &future}))

	promoted, err := repo.PromoteDue(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), promoted)

	reloaded, err := repo.GetByID(ctx, lms.ID, due.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.PublishedAt)
	require.True(t, reloaded.PublishedAt.Equal(past))
	require.Nil(t, reloaded.ToPublishAt)

	untouched, err := repo.GetByID(ctx, lms.ID, pending.ID)
	require.NoError(t, err)
	require.Nil(t, untouched.PublishedAt)
	require.NotNil(t, untouched.ToPublishAt)
}

func TestContentRepositorySetPublishStateMissingNode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)

	err := repo.SetPublishState(context.Background(), uuid.New(), PublishState{})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAssignmentRepositoryResolvesContentID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	lms := seedLms(t, db, "CS104")

	section := seedNode(t, db, lms.ID, nil, models.ContentTypeSection)
	node := seedNode(t, db, lms.ID, &section.ID, models.ContentTypeAssignment)

	byPayload, err := repo.GetByID(context.Background(), node.Assignment.ID)
	require.NoError(t, err)
	require.Equal(t, lms.ID, byPayload.ModuleContent.LmsID)

	byNode, err := repo.GetByID(context.Background(), node.ID)
	require.NoError(t, err)
	require.Equal(t, byPayload.ID, byNode.ID)
}
