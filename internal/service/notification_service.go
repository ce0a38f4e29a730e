package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/observability"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

const defaultNotificationLimit = 20

// Notifier raises notifications on behalf of domain services.
type Notifier interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// NotificationService stores notifications and fans them out on the Redis channel.
type NotificationService interface {
	Notifier
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (dto.NotificationResponse, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	redis     *redis.Client
	channel   string
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

type notificationEvent struct {
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

// NewNotificationService constructs a notification service. Fan-out is skipped when the
// Redis client or channel base is empty.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	channel := ""
	if channelBase != "" {
		channel = channelBase + ":notifications"
	}

	return &notificationService{
		repo:      repo,
		redis:     redisClient,
		channel:   channel,
		validator: validate,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lms-go-api/internal/service/notification"),
		sanitizer: bluemonday.StrictPolicy(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	cleanTitle := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if cleanMessage == "" || cleanTitle == "" {
		return dto.NotificationResponse{}, apperror.BadRequest("notification is empty after sanitization")
	}

	ctx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.String("notification.user_id", payload.UserID.String()),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	model := models.Notification{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Title:   cleanTitle,
		Message: cleanMessage,
	}

	err := invokeErr(ctx, s.logger, op{
		name:      "notification.create",
		fields:    fields("user_id", payload.UserID, "type", payload.Type),
		overrides: apperror.Overrides{apperror.KindForeignKey: "recipient does not exist"},
	}, func(ctx context.Context) error {
		return s.repo.Create(ctx, &model)
	})
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	if err := s.fanOut(ctx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to channel")
	}

	observability.NotificationsPublishedTotal().WithLabelValues(response.Type).Inc()

	return response, nil
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]dto.NotificationResponse, error) {
	if userID == uuid.Nil {
		return nil, apperror.Unauthorized("user id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = defaultNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := invoke(ctx, s.logger, op{name: "notification.list", fields: fields("user_id", userID)}, func(ctx context.Context) ([]models.Notification, error) {
		return s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
	})
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) (dto.NotificationResponse, error) {
	notification, err := invoke(ctx, s.logger, op{
		name:      "notification.mark_read",
		fields:    fields("notification_id", id, "user_id", userID),
		overrides: apperror.Overrides{apperror.KindNotFound: "notification not found"},
	}, func(ctx context.Context) (models.Notification, error) {
		return s.repo.MarkRead(ctx, id, userID, s.now())
	})
	if err != nil {
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) fanOut(ctx context.Context, notification dto.NotificationResponse) error {
	if s.redis == nil || s.channel == "" {
		return nil
	}

	payload, err := json.Marshal(notificationEvent{Notification: notification, SentAt: s.now()})
	if err != nil {
		return err
	}

	if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
		return errors.Join(errors.New("redis publish failed"), err)
	}
	return nil
}

func notify(ctx context.Context, notifier Notifier, logger zerolog.Logger, payload dto.NotificationCreateRequest) {
	if notifier == nil {
		return
	}
	if _, err := notifier.Publish(ctx, payload); err != nil {
		logger.Warn().Err(err).Str("type", payload.Type).Msg("failed to publish notification")
	}
}
