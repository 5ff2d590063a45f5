package pgvector

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"clinic-faq-assistant/internal/model"
	"clinic-faq-assistant/internal/rag"
	"clinic-faq-assistant/internal/repository"
	"clinic-faq-assistant/internal/vectorstore"
)

// Store ranks chunks inside Postgres with the pgvector cosine operator.
type Store struct {
	*vectorstore.Documents
	chunks *repository.FAQChunkRepository
}

func New(docs *vectorstore.Documents, chunks *repository.FAQChunkRepository) *Store {
	return &Store{Documents: docs, chunks: chunks}
}

func (s *Store) InsertChunk(ctx context.Context, chunk rag.Chunk) error {
	return s.chunks.Create(ctx, &model.FAQChunk{
		DocumentID:     chunk.DocumentID,
		Content:        chunk.Content,
		Embedding:      pgvector.NewVector(chunk.Embedding),
		EmbeddingModel: chunk.EmbeddingVersion,
	})
}

func (s *Store) DeleteChunks(ctx context.Context, documentID uint) error {
	return s.chunks.DeleteByDocumentID(ctx, documentID)
}

func (s *Store) NearestChunks(ctx context.Context, query []float32, version string, k int) ([]rag.QueryResult, error) {
	rows, err := s.chunks.SearchNearest(ctx, query, version, k)
	if err != nil {
		return nil, err
	}
	results := make([]rag.QueryResult, len(rows))
	for i, r := range rows {
		results[i] = rag.QueryResult{
			Content:    r.Content,
			Title:      r.Title,
			Category:   r.Category,
			Similarity: r.Similarity,
		}
	}
	return results, nil
}
