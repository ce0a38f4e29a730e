package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

// UserService manages platform accounts.
type UserService interface {
	Create(ctx context.Context, req dto.UserCreateRequest) (dto.UserResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.UserResponse, error)
	List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, req dto.UserCreateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Role:  req.Role,
	}

	err := invokeErr(ctx, s.logger, op{
		name:      "user.create",
		fields:    fields("role", user.Role),
		overrides: apperror.Overrides{apperror.KindDuplicate: "email is already registered"},
	}, func(ctx context.Context) error {
		return s.repo.Create(ctx, &user)
	})
	if err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (dto.UserResponse, error) {
	user, err := invoke(ctx, s.logger, op{
		name:      "user.get",
		fields:    fields("user_id", id),
		overrides: apperror.Overrides{apperror.KindNotFound: "user not found"},
	}, func(ctx context.Context) (models.User, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserListResponse{}, err
	}

	filter := repository.UserFilter{
		Page:   repository.Page{Page: req.Page, PageSize: req.PageSize},
		Search: req.Search,
		Role:   req.Role,
	}

	type page struct {
		users []models.User
		total int64
	}
	result, err := invoke(ctx, s.logger, op{name: "user.list"}, func(ctx context.Context) (page, error) {
		users, total, err := s.repo.List(ctx, filter)
		return page{users: users, total: total}, err
	})
	if err != nil {
		return dto.UserListResponse{}, err
	}

	items := make([]dto.UserResponse, 0, len(result.users))
	for _, user := range result.users {
		items = append(items, dto.NewUserResponse(user))
	}

	return dto.UserListResponse{Items: items, Pagination: paginationMeta(req.Page, req.PageSize, result.total)}, nil
}
