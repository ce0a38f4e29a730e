package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the actor holds platform-wide privileges.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Access is the level an actor holds on a course.
type Access int

// Access levels, ordered.
const (
	AccessNone Access = iota
	AccessMember
	AccessManager
)

// CanManage reports whether the level allows authoring and grading.
func (a Access) CanManage() bool {
	return a >= AccessManager
}

// AccessChecker resolves an actor's access to a course.
type AccessChecker interface {
	Resolve(ctx context.Context, actor Actor, lmsID uuid.UUID) (Access, error)
	RequireMember(ctx context.Context, actor Actor, lmsID uuid.UUID) (Access, error)
	RequireManager(ctx context.Context, actor Actor, lmsID uuid.UUID) error
}

type accessChecker struct {
	courses     repository.LmsRepository
	enrollments repository.EnrollmentRepository
	logger      zerolog.Logger
}

// NewAccessChecker builds the course access policy: admins always manage, everyone else
// needs an active enrollment and manages only with a teacher enrollment.
func NewAccessChecker(courses repository.LmsRepository, enrollments repository.EnrollmentRepository, logger zerolog.Logger) AccessChecker {
	return &accessChecker{
		courses:     courses,
		enrollments: enrollments,
		logger:      logger.With().Str("component", "access_checker").Logger(),
	}
}

func (a *accessChecker) Resolve(ctx context.Context, actor Actor, lmsID uuid.UUID) (Access, error) {
	_, err := invoke(ctx, a.logger, op{
		name:      "lms.get",
		fields:    fields("lms_id", lmsID),
		overrides: apperror.Overrides{apperror.KindNotFound: "lms not found"},
	}, func(ctx context.Context) (models.Lms, error) {
		return a.courses.GetByID(ctx, lmsID)
	})
	if err != nil {
		return AccessNone, err
	}

	if actor.IsAdmin() {
		return AccessManager, nil
	}

	enrollment, err := invoke(ctx, a.logger, op{
		name:   "enrollment.get",
		fields: fields("lms_id", lmsID, "user_id", actor.ID),
	}, func(ctx context.Context) (models.Enrollment, error) {
		return a.enrollments.Get(ctx, lmsID, actor.ID)
	})
	if err != nil {
		if isNotFound(err) {
			return AccessNone, nil
		}
		return AccessNone, err
	}

	switch {
	case enrollment.CanManage():
		return AccessManager, nil
	case enrollment.IsActive():
		return AccessMember, nil
	default:
		return AccessNone, nil
	}
}

func (a *accessChecker) RequireMember(ctx context.Context, actor Actor, lmsID uuid.UUID) (Access, error) {
	access, err := a.Resolve(ctx, actor, lmsID)
	if err != nil {
		return AccessNone, err
	}
	if access == AccessNone {
		return AccessNone, apperror.Forbidden("you are not enrolled in this lms")
	}
	return access, nil
}

func (a *accessChecker) RequireManager(ctx context.Context, actor Actor, lmsID uuid.UUID) error {
	access, err := a.Resolve(ctx, actor, lmsID)
	if err != nil {
		return err
	}
	if !access.CanManage() {
		return apperror.Forbidden("only course teachers can perform this action")
	}
	return nil
}
