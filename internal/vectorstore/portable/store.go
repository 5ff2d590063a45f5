// Package portable stores embeddings as JSON text and ranks them in process,
// so any gorm dialect without a vector type can back the assistant.
package portable

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"clinic-faq-assistant/internal/model"
	"clinic-faq-assistant/internal/rag"
	"clinic-faq-assistant/internal/repository"
	"clinic-faq-assistant/internal/vectorstore"
)

type ChunkRepository interface {
	Create(ctx context.Context, chunk *model.PortableChunk) error
	DeleteByDocumentID(ctx context.Context, documentID uint) error
	ListByEmbeddingModel(ctx context.Context, embeddingModel string) ([]repository.PortableChunkRow, error)
}

type Store struct {
	*vectorstore.Documents
	chunks ChunkRepository
	logger *zap.Logger
}

func New(docs *vectorstore.Documents, chunks ChunkRepository, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{Documents: docs, chunks: chunks, logger: logger}
}

func (s *Store) InsertChunk(ctx context.Context, chunk rag.Chunk) error {
	row := &model.PortableChunk{
		DocumentID:     chunk.DocumentID,
		Content:        chunk.Content,
		EmbeddingModel: chunk.EmbeddingVersion,
	}
	row.SetEmbedding(chunk.Embedding)
	return s.chunks.Create(ctx, row)
}

func (s *Store) DeleteChunks(ctx context.Context, documentID uint) error {
	return s.chunks.DeleteByDocumentID(ctx, documentID)
}

// NearestChunks scores every chunk of the given version. Equal scores keep
// insertion order.
func (s *Store) NearestChunks(ctx context.Context, query []float32, version string, k int) ([]rag.QueryResult, error) {
	rows, err := s.chunks.ListByEmbeddingModel(ctx, version)
	if err != nil {
		return nil, err
	}

	results := make([]rag.QueryResult, 0, len(rows))
	for _, row := range rows {
		pc := model.PortableChunk{Embedding: row.Embedding}
		vec := pc.EmbeddingVector()
		if len(vec) != len(query) {
			s.logger.Warn("skipping chunk with unusable embedding",
				zap.Uint("chunk_id", row.ID),
				zap.Int("dimension", len(vec)),
				zap.Int("query_dimension", len(query)),
			)
			continue
		}
		results = append(results, rag.QueryResult{
			Content:    row.Content,
			Title:      row.Title,
			Category:   row.Category,
			Similarity: rag.CosineSimilarity(query, vec),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
