package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"clinic-faq-assistant/internal/rag"
)

// CachedEmbedder serves repeated texts from a VectorCache. Cache failures are
// logged and treated as misses; they never fail an embedding call.
type CachedEmbedder struct {
	inner  rag.Embedder
	cache  VectorCache
	logger *zap.Logger
}

func NewCachedEmbedder(inner rag.Embedder, cache VectorCache, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{inner: inner, cache: cache, logger: logger}
}

func (e *CachedEmbedder) Version() string {
	return e.inner.Version()
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := Key(e.inner.Version(), text)
	if vec, ok := e.lookup(ctx, key); ok {
		return vec, nil
	}
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.store(ctx, key, vec)
	return vec, nil
}

// EmbedBatch embeds only the cache misses, in one batch when the wrapped
// embedder supports it.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	version := e.inner.Version()
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missing []int
	for i, text := range texts {
		keys[i] = Key(version, text)
		if vec, ok := e.lookup(ctx, keys[i]); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	vectors, err := e.embedMissing(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(pending) {
		return nil, fmt.Errorf("got %d vectors for %d texts", len(vectors), len(pending))
	}
	for j, i := range missing {
		out[i] = vectors[j]
		e.store(ctx, keys[i], vectors[j])
	}
	return out, nil
}

func (e *CachedEmbedder) embedMissing(ctx context.Context, texts []string) ([][]float32, error) {
	if batcher, ok := e.inner.(rag.BatchEmbedder); ok {
		return batcher.EmbedBatch(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	vec, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("embedding cache read failed", zap.Error(err))
		return nil, false
	}
	return vec, ok && len(vec) > 0
}

func (e *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := e.cache.Set(ctx, key, vec); err != nil {
		e.logger.Warn("embedding cache write failed", zap.Error(err))
	}
}
