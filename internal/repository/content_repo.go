package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// PublishState is the set of publish timestamps written together.
type PublishState struct {
	PublishedAt   *time.Time
	ToPublishAt   *time.Time
	UnpublishedAt *time.Time
}

// ContentRepository persists the module content tree and its payloads.
type ContentRepository interface {
	Create(ctx context.Context, node *models.ModuleContent) error
	GetByID(ctx context.Context, lmsID, id uuid.UUID) (models.ModuleContent, error)
	ListByLms(ctx context.Context, lmsID uuid.UUID) ([]models.ModuleContent, error)
	Update(ctx context.Context, node *models.ModuleContent) error
	SetPublishState(ctx context.Context, id uuid.UUID, state PublishState) error
	DescendantIDs(ctx context.Context, lmsID, id uuid.UUID) ([]uuid.UUID, error)
	Delete(ctx context.Context, ids []uuid.UUID, hard bool) error
	PromoteDue(ctx context.Context, now time.Time) (int64, error)
	UpsertFileResource(ctx context.Context, resource *models.FileResource) error
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository constructs a GORM-backed content repository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func withPayloads(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Assignment").
		Preload("Quiz").
		Preload("Video").
		Preload("ExternalURL").
		Preload("FileResource")
}

func (r *contentRepository) Create(ctx context.Context, node *models.ModuleContent) error {
	return r.db.WithContext(ctx).Create(node).Error
}

func (r *contentRepository) GetByID(ctx context.Context, lmsID, id uuid.UUID) (models.ModuleContent, error) {
	var node models.ModuleContent
	if err := withPayloads(r.db.WithContext(ctx)).
		Where("lms_id = ? AND id = ?", lmsID, id).
		First(&node).Error; err != nil {
		return models.ModuleContent{}, err
	}
	return node, nil
}

func (r *contentRepository) ListByLms(ctx context.Context, lmsID uuid.UUID) ([]models.ModuleContent, error) {
	var nodes []models.ModuleContent
	if err := withPayloads(r.db.WithContext(ctx)).
		Where("lms_id = ?", lmsID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *contentRepository) Update(ctx context.Context, node *models.ModuleContent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(node).Error; err != nil {
			return err
		}

		switch {
		case node.Assignment != nil:
			node.Assignment.ModuleContentID = node.ID
			return tx.Omit("ModuleContent").Save(node.Assignment).Error
		case node.Quiz != nil:
			node.Quiz.ModuleContentID = node.ID
			return tx.Omit("ModuleContent").Save(node.Quiz).Error
		case node.Video != nil:
			node.Video.ModuleContentID = node.ID
			return tx.Save(node.Video).Error
		case node.ExternalURL != nil:
			node.ExternalURL.ModuleContentID = node.ID
			return tx.Save(node.ExternalURL).Error
		case node.FileResource != nil:
			node.FileResource.ModuleContentID = node.ID
			return tx.Save(node.FileResource).Error
		}
		return nil
	})
}

func (r *contentRepository) SetPublishState(ctx context.Context, id uuid.UUID, state PublishState) error {
	result := r.db.WithContext(ctx).
		Model(&models.ModuleContent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"published_at":   state.PublishedAt,
			"to_publish_at":  state.ToPublishAt,
			"unpublished_at": state.UnpublishedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DescendantIDs returns id followed by every node beneath it.
func (r *contentRepository) DescendantIDs(ctx context.Context, lmsID, id uuid.UUID) ([]uuid.UUID, error) {
	type edge struct {
		ID       uuid.UUID
		ParentID *uuid.UUID
	}

	var edges []edge
	if err := r.db.WithContext(ctx).
		Model(&models.ModuleContent{}).
		Select("id", "parent_id").
		Where("lms_id = ?", lmsID).
		Find(&edges).Error; err != nil {
		return nil, err
	}

	children := make(map[uuid.UUID][]uuid.UUID, len(edges))
	found := false
	for _, e := range edges {
		if e.ID == id {
			found = true
		}
		if e.ParentID != nil {
			children[*e.ParentID] = append(children[*e.ParentID], e.ID)
		}
	}
	if !found {
		return nil, gorm.ErrRecordNotFound
	}

	ids := []uuid.UUID{id}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, children[ids[i]]...)
	}
	return ids, nil
}

func (r *contentRepository) Delete(ctx context.Context, ids []uuid.UUID, hard bool) error {
	if len(ids) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !hard {
			return tx.Where("id IN ?", ids).Delete(&models.ModuleContent{}).Error
		}

		payloads := []interface{}{
			&models.Assignment{},
			&models.Quiz{},
			&models.Video{},
			&models.ExternalURL{},
			&models.FileResource{},
		}
		for _, payload := range payloads {
			if err := tx.Where("module_content_id IN ?", ids).Delete(payload).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Where("id IN ?", ids).Delete(&models.ModuleContent{}).Error
	})
}

func (r *contentRepository) PromoteDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ModuleContent{}).
		Where("to_publish_at IS NOT NULL AND to_publish_at <= ? AND published_at IS NULL", now).
		Updates(map[string]interface{}{
			"published_at":   gorm.Expr("to_publish_at"),
			"to_publish_at":  nil,
			"unpublished_at": nil,
		})
	return result.RowsAffected, result.Error
}

func (r *contentRepository) UpsertFileResource(ctx context.Context, resource *models.FileResource) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "module_content_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_name", "url", "mime_type", "size_bytes", "updated_at"}),
	}).Create(resource).Error
}
