// Package vectorstore holds the rag.VectorStore adapters. Every adapter reads
// documents from faq_documents; they differ in where chunk vectors live.
package vectorstore

import (
	"context"

	"clinic-faq-assistant/internal/model"
	"clinic-faq-assistant/internal/rag"
)

type DocumentReader interface {
	ListAll(ctx context.Context) ([]model.FAQDocument, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.FAQDocument, error)
}

// Documents implements the read side of rag.VectorStore.
type Documents struct {
	repo DocumentReader
}

func NewDocuments(repo DocumentReader) *Documents {
	return &Documents{repo: repo}
}

func (d *Documents) ListDocuments(ctx context.Context) ([]rag.Document, error) {
	rows, err := d.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toRAG(rows), nil
}

// Lookup returns the documents with the given ids keyed by id. Missing ids
// are absent from the map.
func (d *Documents) Lookup(ctx context.Context, ids []uint) (map[uint]rag.Document, error) {
	rows, err := d.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]rag.Document, len(rows))
	for _, doc := range toRAG(rows) {
		out[doc.ID] = doc
	}
	return out, nil
}

func toRAG(rows []model.FAQDocument) []rag.Document {
	docs := make([]rag.Document, len(rows))
	for i, r := range rows {
		docs[i] = rag.Document{ID: r.ID, Title: r.Title, Source: r.Source, Category: r.Category}
	}
	return docs
}
