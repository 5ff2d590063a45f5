package rag

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// memoryStore ranks chunks by cosine similarity in insertion order for ties.
type memoryStore struct {
	mu        sync.Mutex
	docs      []Document
	chunks    []Chunk
	deleted   []uint
	listErr   error
	insertErr error
	failAfter int // insert fails once this many chunks exist; 0 disables
	searchErr error
	rows      []QueryResult // when set, returned verbatim by NearestChunks
}

func (s *memoryStore) ListDocuments(_ context.Context) ([]Document, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.docs, nil
}

func (s *memoryStore) InsertChunk(_ context.Context, chunk Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if s.failAfter > 0 && len(s.chunks) >= s.failAfter {
		return errors.New("disk full")
	}
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *memoryStore) DeleteChunks(_ context.Context, documentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, documentID)
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	return nil
}

func (s *memoryStore) NearestChunks(_ context.Context, query []float32, version string, k int) ([]QueryResult, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if s.rows != nil {
		return s.rows, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[uint]Document, len(s.docs))
	for _, d := range s.docs {
		byID[d.ID] = d
	}
	var results []QueryResult
	for _, c := range s.chunks {
		if c.EmbeddingVersion != version {
			continue
		}
		doc := byID[c.DocumentID]
		results = append(results, QueryResult{
			Content:    c.Content,
			Title:      doc.Title,
			Category:   doc.Category,
			Similarity: CosineSimilarity(query, c.Embedding),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// topicEmbedder maps text mentioning "hours" to one axis and everything
// else to the other.
type topicEmbedder struct {
	mu      sync.Mutex
	calls   []string
	failOn  int // 1-based call number that fails; 0 disables
	version string
}

func (e *topicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if e.failOn > 0 && len(e.calls) == e.failOn {
		return nil, errors.New("model unavailable")
	}
	if strings.Contains(strings.ToLower(text), "hours") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (e *topicEmbedder) Version() string {
	if e.version == "" {
		return "topic-v1"
	}
	return e.version
}

type batchTopicEmbedder struct {
	topicEmbedder
	batches [][]string
	short   bool
}

func (e *batchTopicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batches = append(e.batches, texts)
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := e.topicEmbedder.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

type fixedEmbedder struct {
	vec []float32
	err error
	n   int
}

func (e *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.n++
	return e.vec, e.err
}

func (e *fixedEmbedder) Version() string { return "fixed" }
