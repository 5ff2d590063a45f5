package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clinic-faq-assistant/internal/model"
)

// PortableChunkRow is a stored chunk with its document fields.
type PortableChunkRow struct {
	ID        uint
	Content   string
	Title     string
	Category  string
	Embedding string
}

// PortableChunkRepository works on the JSON-embedding layout of faq_chunks.
type PortableChunkRepository struct {
	db *gorm.DB
}

func NewPortableChunkRepository(db *gorm.DB) *PortableChunkRepository {
	return &PortableChunkRepository{db: db}
}

func (r *PortableChunkRepository) Create(ctx context.Context, chunk *model.PortableChunk) error {
	if err := r.db.WithContext(ctx).Create(chunk).Error; err != nil {
		return fmt.Errorf("create faq chunk failed: %w", err)
	}
	return nil
}

func (r *PortableChunkRepository) DeleteByDocumentID(ctx context.Context, documentID uint) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.PortableChunk{}).Error; err != nil {
		return fmt.Errorf("delete faq chunks by document failed: %w", err)
	}
	return nil
}

func (r *PortableChunkRepository) ListByEmbeddingModel(ctx context.Context, embeddingModel string) ([]PortableChunkRow, error) {
	var rows []PortableChunkRow
	err := r.db.WithContext(ctx).
		Table("faq_chunks").
		Select("faq_chunks.id, faq_chunks.content, faq_documents.title, faq_documents.category, faq_chunks.embedding").
		Joins("JOIN faq_documents ON faq_documents.id = faq_chunks.document_id").
		Where("faq_chunks.embedding_model = ?", embeddingModel).
		Order("faq_chunks.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list faq chunks by embedding model failed: %w", err)
	}
	return rows, nil
}
