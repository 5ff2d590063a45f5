package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clinicDocs() []Document {
	return []Document{
		{ID: 1, Title: "Office Hours", Source: "We are open Monday through Friday. Closed weekends.", Category: "general"},
		{ID: 2, Title: "Insurance", Source: "We accept most major plans. Bring your card to every visit.", Category: "billing"},
	}
}

func newTestPipeline(t *testing.T, store VectorStore, embedder Embedder, batchSize int) *IngestionPipeline {
	t.Helper()
	chunker, err := NewChunker(50, 10)
	require.NoError(t, err)
	return NewIngestionPipeline(store, embedder, chunker, batchSize, nil)
}

func TestIngest_NoDocuments(t *testing.T) {
	store := &memoryStore{}
	embedder := &topicEmbedder{}

	result, err := newTestPipeline(t, store, embedder, 1).Ingest(context.Background(), IngestOptions{})

	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.Equal(t, IngestResult{}, result)
	assert.Empty(t, store.chunks)
	assert.Empty(t, embedder.calls)
}

func TestIngest_ListFailureIsPersistenceError(t *testing.T) {
	store := &memoryStore{listErr: errors.New("connection refused")}

	_, err := newTestPipeline(t, store, &topicEmbedder{}, 1).Ingest(context.Background(), IngestOptions{})

	assert.ErrorIs(t, err, ErrPersistence)
}

func TestIngest_PersistsEveryChunk(t *testing.T) {
	store := &memoryStore{docs: clinicDocs()}
	embedder := &topicEmbedder{version: "topic-v2"}

	result, err := newTestPipeline(t, store, embedder, 1).Ingest(context.Background(), IngestOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.DocumentsProcessed)
	assert.Equal(t, len(store.chunks), result.ChunksCreated)
	assert.Equal(t, len(embedder.calls), result.ChunksCreated)
	require.GreaterOrEqual(t, len(store.chunks), 3)

	assert.Equal(t, "Office Hours\n\nWe are open Monday through Friday.", store.chunks[0].Content)
	assert.Equal(t, uint(1), store.chunks[0].DocumentID)
	assert.Equal(t, uint(2), store.chunks[len(store.chunks)-1].DocumentID)
	for _, c := range store.chunks {
		assert.Equal(t, "topic-v2", c.EmbeddingVersion)
		assert.NotEmpty(t, c.Embedding)
	}
}

func TestIngest_SkipsBlankDocuments(t *testing.T) {
	store := &memoryStore{docs: []Document{{ID: 7, Title: " ", Source: "  "}}}

	result, err := newTestPipeline(t, store, &topicEmbedder{}, 1).Ingest(context.Background(), IngestOptions{})
	require.NoError(t, err)

	assert.Equal(t, IngestResult{DocumentsProcessed: 1}, result)
	assert.Empty(t, store.chunks)
}

func TestIngest_EmbeddingFailureReportsProgress(t *testing.T) {
	store := &memoryStore{docs: clinicDocs()}
	// The first document yields two chunks, so call three fails on document 2.
	embedder := &topicEmbedder{failOn: 3}

	result, err := newTestPipeline(t, store, embedder, 1).Ingest(context.Background(), IngestOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbedding)

	var ingestErr *IngestionError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, 1, ingestErr.DocumentsProcessed)
	assert.Equal(t, 2, ingestErr.ChunksCreated)
	assert.Equal(t, uint(2), ingestErr.DocumentID)
	assert.Equal(t, 1, result.DocumentsProcessed)
	assert.Len(t, store.chunks, 2)
}

func TestIngest_InsertFailureIsPersistenceError(t *testing.T) {
	store := &memoryStore{docs: clinicDocs(), failAfter: 1}

	_, err := newTestPipeline(t, store, &topicEmbedder{}, 1).Ingest(context.Background(), IngestOptions{})

	assert.ErrorIs(t, err, ErrPersistence)
	var ingestErr *IngestionError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, 1, ingestErr.ChunksCreated)
	assert.Equal(t, 0, ingestErr.DocumentsProcessed)
}

func TestIngest_RepeatedRunsAppendUnlessRefreshed(t *testing.T) {
	store := &memoryStore{docs: clinicDocs()}
	pipeline := newTestPipeline(t, store, &topicEmbedder{}, 1)

	first, err := pipeline.Ingest(context.Background(), IngestOptions{})
	require.NoError(t, err)
	_, err = pipeline.Ingest(context.Background(), IngestOptions{})
	require.NoError(t, err)
	assert.Len(t, store.chunks, 2*first.ChunksCreated)

	_, err = pipeline.Ingest(context.Background(), IngestOptions{Refresh: true})
	require.NoError(t, err)
	assert.Len(t, store.chunks, first.ChunksCreated)
	assert.Equal(t, []uint{1, 2}, store.deleted)
}

func TestIngest_FailedRefreshKeepsStoredChunks(t *testing.T) {
	store := &memoryStore{docs: clinicDocs()}
	embedder := &topicEmbedder{}
	pipeline := newTestPipeline(t, store, embedder, 1)

	first, err := pipeline.Ingest(context.Background(), IngestOptions{})
	require.NoError(t, err)
	before := append([]Chunk(nil), store.chunks...)

	t.Run("first document", func(t *testing.T) {
		// second chunk of the Office Hours document
		embedder.failOn = len(embedder.calls) + 2

		_, err := pipeline.Ingest(context.Background(), IngestOptions{Refresh: true})

		assert.ErrorIs(t, err, ErrEmbedding)
		assert.Empty(t, store.deleted)
		assert.Equal(t, before, store.chunks)
	})

	t.Run("second document", func(t *testing.T) {
		embedder.failOn = len(embedder.calls) + 3

		_, err := pipeline.Ingest(context.Background(), IngestOptions{Refresh: true})

		var ingestErr *IngestionError
		require.ErrorAs(t, err, &ingestErr)
		assert.Equal(t, uint(2), ingestErr.DocumentID)
		assert.Equal(t, []uint{1}, store.deleted, "only the fully embedded document was replaced")
		assert.Len(t, store.chunks, first.ChunksCreated)
	})
}

func TestIngest_BatchEmbedderGroupsChunks(t *testing.T) {
	store := &memoryStore{docs: clinicDocs()}
	embedder := &batchTopicEmbedder{}

	result, err := newTestPipeline(t, store, embedder, 10).Ingest(context.Background(), IngestOptions{})
	require.NoError(t, err)

	assert.Len(t, embedder.batches, 2, "one batch per document")
	assert.Equal(t, len(store.chunks), result.ChunksCreated)
}

func TestIngest_BatchLengthMismatch(t *testing.T) {
	store := &memoryStore{docs: clinicDocs()}
	embedder := &batchTopicEmbedder{short: true}

	_, err := newTestPipeline(t, store, embedder, 10).Ingest(context.Background(), IngestOptions{})

	assert.ErrorIs(t, err, ErrEmbedding)
	assert.Empty(t, store.chunks)
}

func TestIngest_CanceledContext(t *testing.T) {
	store := &memoryStore{docs: clinicDocs()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(t, store, &topicEmbedder{}, 1).Ingest(ctx, IngestOptions{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.chunks)
}
