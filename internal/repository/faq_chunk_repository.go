package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-faq-assistant/internal/model"
)

// ScoredChunk is a chunk joined with its document and a cosine similarity.
type ScoredChunk struct {
	Content    string
	Title      string
	Category   string
	Similarity float64
}

// FAQChunkRepository works on the pgvector layout of faq_chunks.
type FAQChunkRepository struct {
	db *gorm.DB
}

func NewFAQChunkRepository(db *gorm.DB) *FAQChunkRepository {
	return &FAQChunkRepository{db: db}
}

func (r *FAQChunkRepository) Create(ctx context.Context, chunk *model.FAQChunk) error {
	if err := r.db.WithContext(ctx).Create(chunk).Error; err != nil {
		return fmt.Errorf("create faq chunk failed: %w", err)
	}
	return nil
}

func (r *FAQChunkRepository) DeleteByDocumentID(ctx context.Context, documentID uint) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.FAQChunk{}).Error; err != nil {
		return fmt.Errorf("delete faq chunks by document failed: %w", err)
	}
	return nil
}

// SearchNearest orders by cosine distance (<=>) and reports 1 - distance.
// Ties fall back to insertion order.
func (r *FAQChunkRepository) SearchNearest(ctx context.Context, embedding []float32, embeddingModel string, limit int) ([]ScoredChunk, error) {
	queryVector := pgvector.NewVector(embedding)

	var rows []ScoredChunk
	err := r.db.WithContext(ctx).
		Table("faq_chunks").
		Select("faq_chunks.content, faq_documents.title, faq_documents.category, 1 - (faq_chunks.embedding <=> ?) AS similarity", queryVector).
		Joins("JOIN faq_documents ON faq_documents.id = faq_chunks.document_id").
		Where("faq_chunks.embedding_model = ?", embeddingModel).
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "faq_chunks.embedding <=> ?, faq_chunks.id",
			Vars:               []interface{}{queryVector},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search nearest faq chunks failed: %w", err)
	}
	return rows, nil
}

// EnableVectorExtension creates the vector extension; it must run before
// AutoMigrate on a fresh database.
func EnableVectorExtension(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create vector extension failed: %w", err)
	}
	return nil
}
