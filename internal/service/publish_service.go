package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/observability"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

// Publish outcome messages.
const (
	MessageContentPublished   = "content published"
	MessageContentScheduled   = "content scheduled for publishing"
	MessageContentUnpublished = "content unpublished"
)

// PublishService controls when content becomes visible to learners.
type PublishService interface {
	Publish(ctx context.Context, actor Actor, lmsID, id uuid.UUID, req dto.PublishRequest) (dto.PublishResponse, string, error)
	Unpublish(ctx context.Context, actor Actor, lmsID, id uuid.UUID) (dto.PublishResponse, string, error)
	PromoteDue(ctx context.Context) (int64, error)
}

// PublishServiceDeps groups the collaborators of the publish service.
type PublishServiceDeps struct {
	Contents repository.ContentRepository
	Access   AccessChecker
	Activity ActivityRecorder
	Events   EventPublisher
	Trees    *TreeCache
}

type publishService struct {
	contents repository.ContentRepository
	access   AccessChecker
	activity ActivityRecorder
	events   EventPublisher
	trees    *TreeCache
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewPublishService constructs the publish service.
func NewPublishService(deps PublishServiceDeps, logger zerolog.Logger) PublishService {
	return &publishService{
		contents: deps.Contents,
		access:   deps.Access,
		activity: deps.Activity,
		events:   deps.Events,
		trees:    deps.Trees,
		logger:   logger.With().Str("component", "publish_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/lms-go-api/internal/service/publish"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *publishService) Publish(ctx context.Context, actor Actor, lmsID, id uuid.UUID, req dto.PublishRequest) (dto.PublishResponse, string, error) {
	ctx, span := s.tracer.Start(ctx, "content.publish", trace.WithAttributes(attribute.String("content.id", id.String())))
	defer span.End()

	now := s.now()
	state := repository.PublishState{PublishedAt: &now}
	message := MessageContentPublished
	event := EventContentPublished
	scheduled := false
	if req.ToPublishAt != nil && req.ToPublishAt.After(now) {
		at := req.ToPublishAt.UTC()
		state = repository.PublishState{ToPublishAt: &at}
		message = MessageContentScheduled
		event = EventContentScheduled
		scheduled = true
	}
	span.SetAttributes(attribute.Bool("content.scheduled", scheduled))

	node, err := s.apply(ctx, actor, lmsID, id, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return dto.PublishResponse{}, "", err
	}

	metadata := map[string]interface{}{"lms_id": lmsID.String(), "scheduled": scheduled}
	if state.ToPublishAt != nil {
		metadata["to_publish_at"] = state.ToPublishAt.Format(time.RFC3339)
	}
	s.track(ctx, actor, node, "content.published", event, metadata)

	return dto.PublishResponse{Content: dto.NewContentResponse(node, now, true), Scheduled: scheduled}, message, nil
}

func (s *publishService) Unpublish(ctx context.Context, actor Actor, lmsID, id uuid.UUID) (dto.PublishResponse, string, error) {
	ctx, span := s.tracer.Start(ctx, "content.unpublish", trace.WithAttributes(attribute.String("content.id", id.String())))
	defer span.End()

	now := s.now()
	node, err := s.apply(ctx, actor, lmsID, id, repository.PublishState{UnpublishedAt: &now})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unpublish failed")
		return dto.PublishResponse{}, "", err
	}

	s.track(ctx, actor, node, "content.unpublished", EventContentUnpublished, map[string]interface{}{"lms_id": lmsID.String()})

	return dto.PublishResponse{Content: dto.NewContentResponse(node, now, true)}, MessageContentUnpublished, nil
}

// PromoteDue copies due schedule dates into published_at.
func (s *publishService) PromoteDue(ctx context.Context) (int64, error) {
	promoted, err := invoke(ctx, s.logger, op{name: "content.promote_due"}, func(ctx context.Context) (int64, error) {
		return s.contents.PromoteDue(ctx, s.now())
	})
	if err != nil {
		return 0, err
	}
	if promoted > 0 {
		observability.ContentPromotions().Add(float64(promoted))
		s.logger.Info().Int64("promoted", promoted).Msg("scheduled content published")
	}
	return promoted, nil
}

func (s *publishService) apply(ctx context.Context, actor Actor, lmsID, id uuid.UUID, state repository.PublishState) (models.ModuleContent, error) {
	if err := s.access.RequireManager(ctx, actor, lmsID); err != nil {
		return models.ModuleContent{}, err
	}

	node, err := invoke(ctx, s.logger, op{name: "content.get", fields: fields("content_id", id), overrides: contentNotFound}, func(ctx context.Context) (models.ModuleContent, error) {
		return s.contents.GetByID(ctx, lmsID, id)
	})
	if err != nil {
		return models.ModuleContent{}, err
	}

	err = invokeErr(ctx, s.logger, op{name: "content.set_publish_state", fields: fields("content_id", id), overrides: contentNotFound}, func(ctx context.Context) error {
		return s.contents.SetPublishState(ctx, id, state)
	})
	if err != nil {
		return models.ModuleContent{}, err
	}
	s.trees.Invalidate(ctx, lmsID)

	node.PublishedAt = state.PublishedAt
	node.ToPublishAt = state.ToPublishAt
	node.UnpublishedAt = state.UnpublishedAt
	return node, nil
}

func (s *publishService) track(ctx context.Context, actor Actor, node models.ModuleContent, action, event string, metadata map[string]interface{}) {
	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "module_content",
		EntityID:   &node.ID,
		Metadata:   metadata,
	})
	emit(ctx, s.events, s.logger, event, map[string]interface{}{
		"lms_id":         node.LmsID,
		"content_id":     node.ID,
		"content_type":   node.ContentType,
		"published_at":   node.PublishedAt,
		"to_publish_at":  node.ToPublishAt,
		"unpublished_at": node.UnpublishedAt,
	})
}
