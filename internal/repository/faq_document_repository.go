package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clinic-faq-assistant/internal/model"
)

type FAQDocumentRepository struct {
	db *gorm.DB
}

func NewFAQDocumentRepository(db *gorm.DB) *FAQDocumentRepository {
	return &FAQDocumentRepository{db: db}
}

func (r *FAQDocumentRepository) ListAll(ctx context.Context) ([]model.FAQDocument, error) {
	var docs []model.FAQDocument
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list faq documents failed: %w", err)
	}
	return docs, nil
}

func (r *FAQDocumentRepository) CreateBatch(ctx context.Context, docs []model.FAQDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&docs).Error; err != nil {
		return fmt.Errorf("create faq documents batch failed: %w", err)
	}
	return nil
}

func (r *FAQDocumentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.FAQDocument{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count faq documents failed: %w", err)
	}
	return n, nil
}

func (r *FAQDocumentRepository) ListByIDs(ctx context.Context, ids []uint) ([]model.FAQDocument, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var docs []model.FAQDocument
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list faq documents by ids failed: %w", err)
	}
	return docs, nil
}
