package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/observability"
	"github.com/noah-isme/lms-go-api/internal/repository"
	"github.com/noah-isme/lms-go-api/pkg/ai"
)

const (
	maxSearchLimit        = 20
	defaultVectorCacheTTL = time.Hour
	warmTimeout           = 30 * time.Second
	vectorCachePrefix     = "vector_search:"
)

// SearchDefaults are applied when a caller leaves limit or threshold unset.
type SearchDefaults struct {
	Limit     int
	Threshold float64
}

// VectorSearcher finds course material similar to a query.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int, threshold float64) ([]dto.SearchResultResponse, error)
}

type vectorSearchService struct {
	embedder  ai.Embedder
	documents repository.DocumentRepository
	defaults  SearchDefaults
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewVectorSearchService embeds queries and runs the similarity query against stored documents.
func NewVectorSearchService(embedder ai.Embedder, documents repository.DocumentRepository, defaults SearchDefaults, logger zerolog.Logger) VectorSearcher {
	return &vectorSearchService{
		embedder:  embedder,
		documents: documents,
		defaults:  defaults,
		logger:    logger.With().Str("component", "vector_search_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lms-go-api/internal/service/vector_search"),
	}
}

func (s *vectorSearchService) Search(ctx context.Context, query string, limit int, threshold float64) ([]dto.SearchResultResponse, error) {
	query, limit, threshold, err := normalizeSearch(query, limit, threshold, s.defaults)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "vector_search.search", trace.WithAttributes(
		attribute.Int("search.limit", limit),
		attribute.Float64("search.threshold", threshold),
	))
	defer span.End()

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		s.logger.Error().Err(err).Msg("failed to embed search query")
		return nil, apperror.New(http.StatusBadGateway, "embedding service is unavailable", err)
	}

	documents, err := invoke(ctx, s.logger, op{name: "document.search", fields: fields("limit", limit, "threshold", threshold)}, func(ctx context.Context) ([]repository.ScoredDocument, error) {
		return s.documents.SearchSimilar(ctx, embedding, limit, threshold)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "similarity query failed")
		return nil, err
	}

	results := make([]dto.SearchResultResponse, 0, len(documents))
	for _, document := range documents {
		results = append(results, dto.SearchResultResponse{
			ID:         document.ID,
			LmsID:      document.LmsID,
			Title:      document.Title,
			Content:    document.Content,
			Source:     document.Source,
			Similarity: document.Similarity,
		})
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}

// CachedVectorSearchService memoises search results in Redis. Cache failures fall back to
// the underlying searcher.
type CachedVectorSearchService struct {
	inner    VectorSearcher
	cache    *redis.Client
	ttl      time.Duration
	defaults SearchDefaults
	logger   zerolog.Logger
}

// NewCachedVectorSearchService wraps inner with a Redis cache. A nil client disables caching.
func NewCachedVectorSearchService(inner VectorSearcher, cache *redis.Client, ttl time.Duration, defaults SearchDefaults, logger zerolog.Logger) *CachedVectorSearchService {
	if ttl <= 0 {
		ttl = defaultVectorCacheTTL
	}
	return &CachedVectorSearchService{
		inner:    inner,
		cache:    cache,
		ttl:      ttl,
		defaults: defaults,
		logger:   logger.With().Str("component", "vector_search_cache").Logger(),
	}
}

func (c *CachedVectorSearchService) Search(ctx context.Context, query string, limit int, threshold float64) ([]dto.SearchResultResponse, error) {
	query, limit, threshold, err := normalizeSearch(query, limit, threshold, c.defaults)
	if err != nil {
		return nil, err
	}
	if c.cache == nil {
		return c.inner.Search(ctx, query, limit, threshold)
	}

	key := VectorCacheKey(query, limit, threshold)
	cached, err := c.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		var results []dto.SearchResultResponse
		if unmarshalErr := json.Unmarshal([]byte(cached), &results); unmarshalErr == nil {
			observability.VectorCacheLookups().WithLabelValues("hit").Inc()
			return results, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding unreadable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		observability.VectorCacheLookups().WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Msg("failed to read vector search cache")
	}
	observability.VectorCacheLookups().WithLabelValues("miss").Inc()

	results, err := c.inner.Search(ctx, query, limit, threshold)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(results)
	if err == nil {
		if err := c.cache.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to store vector search cache")
		}
	}

	return results, nil
}

// Warm fills the cache for the given queries in the background and returns immediately.
func (c *CachedVectorSearchService) Warm(queries []string) {
	for _, query := range queries {
		query := query
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
			defer cancel()
			if _, err := c.Search(ctx, query, 0, 0); err != nil {
				c.logger.Warn().Err(err).Str("query", query).Msg("cache warm-up failed")
			}
		}()
	}
}

// VectorCacheKey derives the cache key of a normalised search.
func VectorCacheKey(query string, limit int, threshold float64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d|%g", query, limit, threshold)))
	return vectorCachePrefix + hex.EncodeToString(sum[:])
}

func normalizeSearch(query string, limit int, threshold float64, defaults SearchDefaults) (string, int, float64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", 0, 0, apperror.BadRequest("query must not be empty")
	}

	if limit <= 0 {
		limit = defaults.Limit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	if threshold <= 0 || threshold > 1 {
		threshold = defaults.Threshold
	}
	if threshold <= 0 || threshold > 1 {
		threshold = 0.75
	}
	return query, limit, threshold, nil
}
