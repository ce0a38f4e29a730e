package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// ScoredDocument is a document chunk with its cosine similarity to a query.
type ScoredDocument struct {
	ID         uuid.UUID  `json:"id"`
	LmsID      *uuid.UUID `json:"lms_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Source     string     `json:"source"`
	Similarity float64    `json:"similarity"`
}

// DocumentRepository stores and searches embedded course material on pgvector.
type DocumentRepository interface {
	Insert(ctx context.Context, doc *models.DocumentEmbedding, embedding []float32) error
	SearchSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]ScoredDocument, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository constructs the pgvector-backed document repository.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Insert(ctx context.Context, doc *models.DocumentEmbedding, embedding []float32) error {
	doc.Embedding = VectorLiteral(embedding)
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) SearchSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]ScoredDocument, error) {
	if r.db.Dialector.Name() != "postgres" {
		return r.scanSimilar(ctx, embedding, limit, threshold)
	}

	vector := VectorLiteral(embedding)

	var results []ScoredDocument
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, lms_id, title, content, source, similarity FROM (
			SELECT id, lms_id, title, content, source, 1 - (embedding <=> ?::vector) AS similarity
			FROM document_embeddings
		) scored
		WHERE similarity > ?
		ORDER BY similarity DESC
		LIMIT ?`, vector, threshold, limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// scanSimilar scores every stored vector in process. It serves databases without pgvector,
// such as the sqlite test database.
func (r *documentRepository) scanSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]ScoredDocument, error) {
	var documents []models.DocumentEmbedding
	if err := r.db.WithContext(ctx).Find(&documents).Error; err != nil {
		return nil, err
	}

	results := make([]ScoredDocument, 0, len(documents))
	for _, document := range documents {
		stored, err := ParseVectorLiteral(document.Embedding)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", document.ID, err)
		}
		similarity := cosineSimilarity(embedding, stored)
		if similarity <= threshold {
			continue
		}
		results = append(results, ScoredDocument{
			ID:         document.ID,
			LmsID:      document.LmsID,
			Title:      document.Title,
			Content:    document.Content,
			Source:     document.Source,
			Similarity: similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ParseVectorLiteral reads the pgvector text format written by VectorLiteral.
func ParseVectorLiteral(literal string) ([]float32, error) {
	trimmed := strings.TrimSpace(literal)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, fmt.Errorf("malformed vector literal %q", literal)
	}
	trimmed = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if trimmed == "" {
		return []float32{}, nil
	}

	parts := strings.Split(trimmed, ",")
	vector := make([]float32, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector literal: %w", err)
		}
		vector = append(vector, float32(v))
	}
	return vector, nil
}

// cosineSimilarity matches pgvector's 1 - (a <=> b). Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// VectorLiteral renders an embedding in the pgvector text format, e.g. "[0.1,0.2]".
func VectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.Grow(len(embedding)*10 + 2)
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
