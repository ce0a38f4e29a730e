package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/observability"
)

const (
	treeViewManager = "manager"
	treeViewLearner = "learner"
)

// TreeCache keeps rendered content trees in Redis, one entry per course and view. A nil
// TreeCache or one without a client is a no-op.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewTreeCache builds the content tree cache. Entries expire after ttl so scheduled
// content becomes visible even when no write invalidates the course.
func NewTreeCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *TreeCache {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &TreeCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "content_tree_cache").Logger(),
	}
}

func (c *TreeCache) enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached tree for the given view.
func (c *TreeCache) Get(ctx context.Context, lmsID uuid.UUID, manager bool) ([]dto.ContentResponse, bool) {
	if !c.enabled() {
		return nil, false
	}

	cached, err := c.client.Get(ctx, treeCacheKey(lmsID, manager)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("lms_id", lmsID.String()).Msg("failed to read content tree cache")
		}
		observability.TreeCacheLookups().WithLabelValues("miss").Inc()
		return nil, false
	}

	var tree []dto.ContentResponse
	if err := json.Unmarshal(cached, &tree); err != nil {
		c.logger.Warn().Err(err).Str("lms_id", lmsID.String()).Msg("discarding corrupt content tree cache entry")
		observability.TreeCacheLookups().WithLabelValues("miss").Inc()
		return nil, false
	}

	observability.TreeCacheLookups().WithLabelValues("hit").Inc()
	return tree, true
}

// Set stores a rendered tree.
func (c *TreeCache) Set(ctx context.Context, lmsID uuid.UUID, manager bool, tree []dto.ContentResponse) {
	if !c.enabled() {
		return
	}

	payload, err := json.Marshal(tree)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, treeCacheKey(lmsID, manager), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("lms_id", lmsID.String()).Msg("failed to write content tree cache")
	}
}

// Invalidate drops both views of a course.
func (c *TreeCache) Invalidate(ctx context.Context, lmsID uuid.UUID) {
	if !c.enabled() {
		return
	}

	if err := c.client.Del(ctx, treeCacheKey(lmsID, true), treeCacheKey(lmsID, false)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("lms_id", lmsID.String()).Msg("failed to invalidate content tree cache")
	}
}

func treeCacheKey(lmsID uuid.UUID, manager bool) string {
	view := treeViewLearner
	if manager {
		view = treeViewManager
	}
	return fmt.Sprintf("lms_tree:v1:%s:%s", lmsID, view)
}
