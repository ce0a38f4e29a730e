package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
	"github.com/noah-isme/lms-go-api/pkg/ai"
)

// DocumentService stores course material for retrieval.
type DocumentService interface {
	Ingest(ctx context.Context, actor Actor, req dto.DocumentIngestRequest) (dto.DocumentResponse, error)
}

type documentService struct {
	embedder  ai.Embedder
	documents repository.DocumentRepository
	access    AccessChecker
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewDocumentService constructs the ingest service.
func NewDocumentService(embedder ai.Embedder, documents repository.DocumentRepository, access AccessChecker, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) DocumentService {
	return &documentService{
		embedder:  embedder,
		documents: documents,
		access:    access,
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "document_service").Logger(),
	}
}

// Ingest embeds and stores a chunk. Course-bound material needs manager access on that
// course, global material is admin only.
func (s *documentService) Ingest(ctx context.Context, actor Actor, req dto.DocumentIngestRequest) (dto.DocumentResponse, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Source = strings.TrimSpace(req.Source)
	if err := s.validator.Struct(req); err != nil {
		return dto.DocumentResponse{}, err
	}

	lmsID, err := parseOptionalUUID(req.LmsID, "lms_id")
	if err != nil {
		return dto.DocumentResponse{}, err
	}
	contentID, err := parseOptionalUUID(req.ContentID, "content_id")
	if err != nil {
		return dto.DocumentResponse{}, err
	}

	if lmsID != nil {
		if err := s.access.RequireManager(ctx, actor, *lmsID); err != nil {
			return dto.DocumentResponse{}, err
		}
	} else if !actor.IsAdmin() {
		return dto.DocumentResponse{}, apperror.Forbidden("only admins can ingest material outside a course")
	}

	embedding, err := s.embedder.Embed(ctx, req.Title+"\n\n"+req.Content)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to embed document")
		return dto.DocumentResponse{}, apperror.New(http.StatusBadGateway, "embedding service is unavailable", err)
	}

	document := models.DocumentEmbedding{
		LmsID:     lmsID,
		ContentID: contentID,
		Title:     req.Title,
		Content:   req.Content,
		Source:    req.Source,
		Metadata:  sanitizeMetadata(req.Metadata),
	}
	if err := invokeErr(ctx, s.logger, op{name: "document.insert", fields: fields("title", req.Title)}, func(ctx context.Context) error {
		return s.documents.Insert(ctx, &document, embedding)
	}); err != nil {
		return dto.DocumentResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "document.ingested",
		EntityType: "document",
		EntityID:   &document.ID,
	})

	return dto.DocumentResponse{
		ID:        document.ID,
		Title:     document.Title,
		Source:    document.Source,
		LmsID:     document.LmsID,
		ContentID: document.ContentID,
		CreatedAt: document.CreatedAt,
	}, nil
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperror.BadRequest(field + " must be a valid uuid")
	}
	return &id, nil
}
