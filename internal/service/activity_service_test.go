package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksEmail(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testValidator(), testLogger())
	actorID := uuid.New()
	entityID := uuid.New()

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    actorID,
		ActorRole:  "Admin",
		Action:     "Enrollment.Activated",
		EntityType: "enrollment",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"email":        "student@example.com",
			"access_token": "abc",
			"field":        "status",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "***", entry.Metadata["access_token"])
	require.Equal(t, "status", entry.Metadata["field"])
	require.Equal(t, actorID, entry.ActorID)
	require.Equal(t, "admin", entry.ActorRole)
	require.Equal(t, "enrollment.activated", entry.Action)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testValidator(), testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{ActorID: uuid.New(), EntityType: "lms"})
	require.Error(t, err)
}

func TestActivityServiceListFiltersAndPaginates(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testValidator(), testLogger())
	ctx := context.Background()
	actorID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, ActivityEntry{ActorID: actorID, ActorRole: models.RoleTeacher, Action: "content.published", EntityType: "module_content"})
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, ActivityEntry{ActorID: uuid.New(), ActorRole: models.RoleAdmin, Action: "lms.created", EntityType: "lms"})
	require.NoError(t, err)

	page, err := svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 2, ActorID: actorID.String()})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, int64(3), page.Pagination.TotalItems)
	require.Equal(t, 2, page.Pagination.TotalPages)

	filtered, err := svc.List(ctx, dto.ActivityListRequest{Action: "lms.created"})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	require.Equal(t, "lms", filtered.Items[0].EntityType)
}

func TestActivityServiceListRejectsInvalidActor(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testValidator(), testLogger())

	_, err := svc.List(context.Background(), dto.ActivityListRequest{ActorID: "not-a-uuid"})
	require.Error(t, err)
}
