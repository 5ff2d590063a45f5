package rag

import "context"

// Document is a FAQ entry maintained outside this service.
type Document struct {
	ID       uint
	Title    string
	Source   string
	Category string
}

// Text is the string the chunker sees for a document.
func (d Document) Text() string {
	return d.Title + "\n\n" + d.Source
}

type Chunk struct {
	DocumentID       uint
	Content          string
	Embedding        []float32
	EmbeddingVersion string
}

// QueryResult is one row returned by a nearest-neighbour search.
type QueryResult struct {
	Content    string
	Title      string
	Category   string
	Similarity float64
}

// Embedder turns text into a unit-norm vector. Version identifies the
// embedding space; vectors of different versions must never be compared.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Version() string
}

// BatchEmbedder is implemented by embedders that can embed several texts in
// one round trip. Results are index-aligned with the input.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists chunk vectors and answers similarity queries.
// NearestChunks returns at most k rows of the given embedding version,
// ordered by descending similarity with a deterministic tie order.
type VectorStore interface {
	ListDocuments(ctx context.Context) ([]Document, error)
	InsertChunk(ctx context.Context, chunk Chunk) error
	DeleteChunks(ctx context.Context, documentID uint) error
	NearestChunks(ctx context.Context, query []float32, version string, k int) ([]QueryResult, error)
}
