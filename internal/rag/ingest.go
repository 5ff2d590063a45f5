package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const DefaultEmbeddingBatchSize = 10

type IngestOptions struct {
	// Refresh replaces a document's previously stored chunks. The old chunks
	// are deleted only after every new chunk of that document is embedded.
	Refresh bool
}

type IngestResult struct {
	DocumentsProcessed int `json:"documents_processed"`
	ChunksCreated      int `json:"chunks_created"`
}

// IngestionPipeline chunks, embeds and persists every document in the store.
// A run is at-least-once: a failure leaves already written chunks in place.
type IngestionPipeline struct {
	store     VectorStore
	embedder  Embedder
	chunker   *Chunker
	batchSize int
	logger    *zap.Logger
}

func NewIngestionPipeline(store VectorStore, embedder Embedder, chunker *Chunker, batchSize int, logger *zap.Logger) *IngestionPipeline {
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionPipeline{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (p *IngestionPipeline) Ingest(ctx context.Context, opts IngestOptions) (IngestResult, error) {
	var result IngestResult

	docs, err := p.store.ListDocuments(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: list documents failed: %w", ErrPersistence, err)
	}
	if len(docs) == 0 {
		return result, ErrNoDocuments
	}

	version := p.embedder.Version()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, p.abort(result, doc.ID, err)
		}

		chunks := nonBlank(p.chunker.Split(doc.Text()))
		vectors, err := p.embedDocument(ctx, doc, chunks)
		if err != nil {
			return result, p.abort(result, doc.ID, err)
		}

		if opts.Refresh {
			if err := p.store.DeleteChunks(ctx, doc.ID); err != nil {
				return result, p.abort(result, doc.ID, fmt.Errorf("%w: delete previous chunks failed: %w", ErrPersistence, err))
			}
		}

		for i, content := range chunks {
			if err := p.persist(ctx, doc.ID, content, vectors[i], version); err != nil {
				return result, p.abort(result, doc.ID, err)
			}
			result.ChunksCreated++
		}
		result.DocumentsProcessed++

		p.logger.Debug("document ingested",
			zap.Uint("document_id", doc.ID),
			zap.String("title", doc.Title),
			zap.Int("chunks", len(chunks)),
		)
	}

	p.logger.Info("ingestion finished",
		zap.Int("documents", result.DocumentsProcessed),
		zap.Int("chunks", result.ChunksCreated),
		zap.String("embedding_version", version),
		zap.Bool("refresh", opts.Refresh),
	)
	return result, nil
}

// embedDocument returns one vector per chunk. Nothing is written, so a
// failure leaves the document's stored chunks untouched.
func (p *IngestionPipeline) embedDocument(ctx context.Context, doc Document, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	batcher, ok := p.embedder.(BatchEmbedder)
	if !ok || p.batchSize == 1 {
		for i, content := range chunks {
			vec, err := p.embedder.Embed(ctx, content)
			if err == nil && len(vec) == 0 {
				err = errors.New("empty vector")
			}
			if err != nil {
				return nil, fmt.Errorf("%w: chunk %d of document %d: %w", ErrEmbedding, i, doc.ID, err)
			}
			vectors = append(vectors, vec)
		}
		return vectors, nil
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		got, err := batcher.EmbedBatch(ctx, batch)
		if err == nil && len(got) != len(batch) {
			err = fmt.Errorf("got %d vectors for %d chunks", len(got), len(batch))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: chunks %d-%d of document %d: %w", ErrEmbedding, start, end-1, doc.ID, err)
		}
		for i, vec := range got {
			if len(vec) == 0 {
				return nil, fmt.Errorf("%w: chunk %d of document %d: empty vector", ErrEmbedding, start+i, doc.ID)
			}
		}
		vectors = append(vectors, got...)
	}
	return vectors, nil
}

func (p *IngestionPipeline) persist(ctx context.Context, documentID uint, content string, vec []float32, version string) error {
	err := p.store.InsertChunk(ctx, Chunk{
		DocumentID:       documentID,
		Content:          content,
		Embedding:        vec,
		EmbeddingVersion: version,
	})
	if err != nil {
		return fmt.Errorf("%w: insert chunk for document %d: %w", ErrPersistence, documentID, err)
	}
	return nil
}

func (p *IngestionPipeline) abort(result IngestResult, documentID uint, err error) error {
	p.logger.Error("ingestion aborted",
		zap.Uint("document_id", documentID),
		zap.Int("documents_processed", result.DocumentsProcessed),
		zap.Int("chunks_created", result.ChunksCreated),
		zap.Error(err),
	)
	return &IngestionError{
		DocumentsProcessed: result.DocumentsProcessed,
		ChunksCreated:      result.ChunksCreated,
		DocumentID:         documentID,
		Err:                err,
	}
}

func nonBlank(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}
