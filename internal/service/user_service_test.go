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

func TestUserService(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewUserService(repository.NewUserRepository(db), testValidator(), testLogger())
	ctx := context.Background()

	ada, err := svc.Create(ctx, dto.UserCreateRequest{Name: " Ada Lovelace ", Email: "Ada@Example.com", Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", ada.Name)
	require.Equal(t, "ada@example.com", ada.Email)

	_, err = svc.Create(ctx, dto.UserCreateRequest{Name: "Ada Again", Email: "ada@example.com", Role: models.RoleStudent})
	require.Equal(t, http.StatusConflict, apperror.StatusOf(err))

	_, err = svc.Create(ctx, dto.UserCreateRequest{Name: "Nobody", Email: "nobody@example.com", Role: "owner"})
	require.Error(t, err)

	_, err = svc.Create(ctx, dto.UserCreateRequest{Name: "Grace Hopper", Email: "grace@example.com", Role: models.RoleStudent})
	require.NoError(t, err)

	fetched, err := svc.Get(ctx, ada.ID)
	require.NoError(t, err)
	require.Equal(t, ada.Email, fetched.Email)

	_, err = svc.Get(ctx, uuid.New())
	require.Equal(t, http.StatusNotFound, apperror.StatusOf(err))

	teachers, err := svc.List(ctx, dto.UserListRequest{Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Len(t, teachers.Items, 1)
	require.EqualValues(t, 1, teachers.Pagination.TotalItems)

	search, err := svc.List(ctx, dto.UserListRequest{ListQuery: dto.ListQuery{Search: "grace"}})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	require.Equal(t, "Grace Hopper", search.Items[0].Name)
}
