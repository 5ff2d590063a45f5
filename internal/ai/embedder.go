package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/openai/openai-go"

	"clinic-faq-assistant/internal/rag"
)

// Embedder calls the embeddings endpoint and returns unit-length vectors so
// that cosine similarity and dot product agree.
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
}

func NewEmbedder(cfg ClientConfig, model string, dimension int) *Embedder {
	return &Embedder{
		client:    newClient(cfg),
		model:     model,
		dimension: dimension,
	}
}

// Version identifies the embedding space: model plus requested dimension.
func (e *Embedder) Version() string {
	if e.dimension <= 0 {
		return e.model
	}
	return e.model + "@" + strconv.Itoa(e.dimension)
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			return nil, fmt.Errorf("embedding response has unexpected index %d", item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, errors.New("embedding response has an empty vector")
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		out[idx] = rag.Normalize(vec)
	}
	return out, nil
}
