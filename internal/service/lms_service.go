package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

var lmsNotFound = apperror.Overrides{apperror.KindNotFound: "lms not found"}

// LmsService manages courses and their memberships.
type LmsService interface {
	Create(ctx context.Context, actor Actor, req dto.LmsCreateRequest) (dto.LmsResponse, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (dto.LmsResponse, error)
	List(ctx context.Context, actor Actor, req dto.ListQuery) (dto.LmsListResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.LmsUpdateRequest) (dto.LmsResponse, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error

	Enroll(ctx context.Context, actor Actor, lmsID uuid.UUID, req dto.EnrollmentCreateRequest) (dto.EnrollmentResponse, error)
	ListEnrollments(ctx context.Context, actor Actor, lmsID uuid.UUID) ([]dto.EnrollmentResponse, error)
	Drop(ctx context.Context, actor Actor, lmsID, userID uuid.UUID) (dto.EnrollmentResponse, error)
}

type lmsService struct {
	courses     repository.LmsRepository
	enrollments repository.EnrollmentRepository
	users       repository.UserRepository
	access      AccessChecker
	activity    ActivityRecorder
	events      EventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// LmsServiceDeps groups the collaborators of the course service.
type LmsServiceDeps struct {
	Courses     repository.LmsRepository
	Enrollments repository.EnrollmentRepository
	Users       repository.UserRepository
	Access      AccessChecker
	Activity    ActivityRecorder
	Events      EventPublisher
}

// NewLmsService constructs the course service.
func NewLmsService(deps LmsServiceDeps, validate *validator.Validate, logger zerolog.Logger) LmsService {
	return &lmsService{
		courses:     deps.Courses,
		enrollments: deps.Enrollments,
		users:       deps.Users,
		access:      deps.Access,
		activity:    deps.Activity,
		events:      deps.Events,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "lms_service").Logger(),
	}
}

func (s *lmsService) Create(ctx context.Context, actor Actor, req dto.LmsCreateRequest) (dto.LmsResponse, error) {
	if !actor.IsAdmin() {
		return dto.LmsResponse{}, apperror.Forbidden("only administrators can create an lms")
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.LmsResponse{}, err
	}

	course := models.Lms{
		Code:             strings.ToUpper(strings.TrimSpace(req.Code)),
		Title:            strings.TrimSpace(req.Title),
		Description:      s.sanitizer.Sanitize(req.Description),
		EnrollmentFeeIDR: req.EnrollmentFeeIDR,
	}

	err := invokeErr(ctx, s.logger, op{
		name:      "lms.create",
		fields:    fields("code", course.Code),
		overrides: apperror.Overrides{apperror.KindDuplicate: "lms code already exists"},
	}, func(ctx context.Context) error {
		return s.courses.Create(ctx, &course)
	})
	if err != nil {
		return dto.LmsResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "lms.created",
		EntityType: "lms",
		EntityID:   &course.ID,
		Metadata:   map[string]interface{}{"code": course.Code},
	})

	return dto.NewLmsResponse(course), nil
}

func (s *lmsService) Get(ctx context.Context, actor Actor, id uuid.UUID) (dto.LmsResponse, error) {
	if _, err := s.access.RequireMember(ctx, actor, id); err != nil {
		return dto.LmsResponse{}, err
	}

	course, err := s.load(ctx, id)
	if err != nil {
		return dto.LmsResponse{}, err
	}
	return dto.NewLmsResponse(course), nil
}

func (s *lmsService) List(ctx context.Context, actor Actor, req dto.ListQuery) (dto.LmsListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LmsListResponse{}, err
	}

	filter := repository.LmsFilter{
		Page:   repository.Page{Page: req.Page, PageSize: req.PageSize},
		Search: req.Search,
	}
	if !actor.IsAdmin() {
		memberID := actor.ID
		filter.MemberID = &memberID
	}

	type page struct {
		courses []models.Lms
		total   int64
	}
	result, err := invoke(ctx, s.logger, op{name: "lms.list", fields: fields("actor_id", actor.ID)}, func(ctx context.Context) (page, error) {
		courses, total, err := s.courses.List(ctx, filter)
		return page{courses: courses, total: total}, err
	})
	if err != nil {
		return dto.LmsListResponse{}, err
	}

	items := make([]dto.LmsResponse, 0, len(result.courses))
	for _, course := range result.courses {
		items = append(items, dto.NewLmsResponse(course))
	}

	return dto.LmsListResponse{Items: items, Pagination: paginationMeta(req.Page, req.PageSize, result.total)}, nil
}

func (s *lmsService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.LmsUpdateRequest) (dto.LmsResponse, error) {
	if !actor.IsAdmin() {
		return dto.LmsResponse{}, apperror.Forbidden("only administrators can update an lms")
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.LmsResponse{}, err
	}

	course, err := s.load(ctx, id)
	if err != nil {
		return dto.LmsResponse{}, err
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = s.sanitizer.Sanitize(*req.Description)
	}
	if req.EnrollmentFeeIDR != nil {
		course.EnrollmentFeeIDR = *req.EnrollmentFeeIDR
	}

	err = invokeErr(ctx, s.logger, op{name: "lms.update", fields: fields("lms_id", id), overrides: lmsNotFound}, func(ctx context.Context) error {
		return s.courses.Update(ctx, &course)
	})
	if err != nil {
		return dto.LmsResponse{}, err
	}

	return dto.NewLmsResponse(course), nil
}

func (s *lmsService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperror.Forbidden("only administrators can delete an lms")
	}

	err := invokeErr(ctx, s.logger, op{name: "lms.delete", fields: fields("lms_id", id), overrides: lmsNotFound}, func(ctx context.Context) error {
		return s.courses.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "lms.deleted",
		EntityType: "lms",
		EntityID:   &id,
	})
	return nil
}

func (s *lmsService) Enroll(ctx context.Context, actor Actor, lmsID uuid.UUID, req dto.EnrollmentCreateRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EnrollmentResponse{}, err
	}
	if err := s.access.RequireManager(ctx, actor, lmsID); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return dto.EnrollmentResponse{}, apperror.BadRequest("user_id must be a valid uuid")
	}

	user, err := invoke(ctx, s.logger, op{
		name:      "user.get",
		fields:    fields("user_id", userID),
		overrides: apperror.Overrides{apperror.KindNotFound: "user not found"},
	}, func(ctx context.Context) (models.User, error) {
		return s.users.GetByID(ctx, userID)
	})
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	existing, err := s.enrollments.Get(ctx, lmsID, userID)
	switch {
	case err == nil && existing.Status == models.EnrollmentStatusDropped:
		existing.Status = models.EnrollmentStatusActive
		existing.Role = req.Role
		if err := invokeErr(ctx, s.logger, op{name: "enrollment.update", fields: fields("enrollment_id", existing.ID)}, func(ctx context.Context) error {
			return s.enrollments.Update(ctx, &existing)
		}); err != nil {
			return dto.EnrollmentResponse{}, err
		}
		existing.User = user
		s.afterEnroll(ctx, actor, existing)
		return dto.NewEnrollmentResponse(existing), nil
	case err == nil:
		return dto.EnrollmentResponse{}, apperror.Conflict("user is already enrolled in this lms")
	case !isNotFound(err):
		return dto.EnrollmentResponse{}, apperror.FromDatabase(err, nil)
	}

	enrollment := models.Enrollment{
		LmsID:  lmsID,
		UserID: userID,
		Role:   req.Role,
		Status: models.EnrollmentStatusActive,
	}
	err = invokeErr(ctx, s.logger, op{
		name:   "enrollment.create",
		fields: fields("lms_id", lmsID, "user_id", userID),
		overrides: apperror.Overrides{
			apperror.KindDuplicate:  "user is already enrolled in this lms",
			apperror.KindForeignKey: "lms or user does not exist",
		},
	}, func(ctx context.Context) error {
		return s.enrollments.Create(ctx, &enrollment)
	})
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	enrollment.User = user
	s.afterEnroll(ctx, actor, enrollment)
	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *lmsService) ListEnrollments(ctx context.Context, actor Actor, lmsID uuid.UUID) ([]dto.EnrollmentResponse, error) {
	if err := s.access.RequireManager(ctx, actor, lmsID); err != nil {
		return nil, err
	}

	enrollments, err := invoke(ctx, s.logger, op{name: "enrollment.list", fields: fields("lms_id", lmsID)}, func(ctx context.Context) ([]models.Enrollment, error) {
		return s.enrollments.ListByLms(ctx, lmsID)
	})
	if err != nil {
		return nil, err
	}

	out := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		out = append(out, dto.NewEnrollmentResponse(enrollment))
	}
	return out, nil
}

func (s *lmsService) Drop(ctx context.Context, actor Actor, lmsID, userID uuid.UUID) (dto.EnrollmentResponse, error) {
	if err := s.access.RequireManager(ctx, actor, lmsID); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	notFound := apperror.Overrides{apperror.KindNotFound: "enrollment not found"}
	enrollment, err := invoke(ctx, s.logger, op{name: "enrollment.get", fields: fields("lms_id", lmsID, "user_id", userID), overrides: notFound}, func(ctx context.Context) (models.Enrollment, error) {
		return s.enrollments.Get(ctx, lmsID, userID)
	})
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	enrollment.Status = models.EnrollmentStatusDropped
	err = invokeErr(ctx, s.logger, op{name: "enrollment.update", fields: fields("enrollment_id", enrollment.ID), overrides: notFound}, func(ctx context.Context) error {
		return s.enrollments.Update(ctx, &enrollment)
	})
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "enrollment.dropped",
		EntityType: "enrollment",
		EntityID:   &enrollment.ID,
		Metadata:   map[string]interface{}{"lms_id": lmsID.String(), "user_id": userID.String()},
	})

	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *lmsService) load(ctx context.Context, id uuid.UUID) (models.Lms, error) {
	return invoke(ctx, s.logger, op{name: "lms.get", fields: fields("lms_id", id), overrides: lmsNotFound}, func(ctx context.Context) (models.Lms, error) {
		return s.courses.GetByID(ctx, id)
	})
}

func (s *lmsService) afterEnroll(ctx context.Context, actor Actor, enrollment models.Enrollment) {
	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "enrollment.activated",
		EntityType: "enrollment",
		EntityID:   &enrollment.ID,
		Metadata:   map[string]interface{}{"lms_id": enrollment.LmsID.String(), "role": enrollment.Role},
	})
	emit(ctx, s.events, s.logger, EventEnrollmentActivated, map[string]interface{}{
		"lms_id":  enrollment.LmsID,
		"user_id": enrollment.UserID,
		"role":    enrollment.Role,
	})
}
