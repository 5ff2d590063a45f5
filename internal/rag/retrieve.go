package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultTopK                = 3
	DefaultSimilarityThreshold = 0.75

	ContextDelimiter = "\n\n---\n\n"

	ConfidenceLow  = "low"
	ConfidenceHigh = "high"
)

type Source struct {
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Similarity string  `json:"similarity"`
	Score      float64 `json:"-"`
}

// Answer is the outcome of a retrieval. GroundedContext is empty whenever
// Confidence is low; callers must not ask a generator to answer without it.
type Answer struct {
	Confidence      string
	Sources         []Source
	GroundedContext string
}

func (a *Answer) Grounded() bool {
	return a.Confidence == ConfidenceHigh && a.GroundedContext != ""
}

type RetrievalPipeline struct {
	store     VectorStore
	embedder  Embedder
	topK      int
	threshold float64
	logger    *zap.Logger
}

func NewRetrievalPipeline(store VectorStore, embedder Embedder, topK int, threshold float64, logger *zap.Logger) *RetrievalPipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalPipeline{
		store:     store,
		embedder:  embedder,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// Answer embeds the question, fetches the nearest chunks and keeps those at
// or above the similarity threshold.
func (p *RetrievalPipeline) Answer(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuery
	}

	vec, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question failed: %w", ErrEmbedding, err)
	}

	rows, err := p.store.NearestChunks(ctx, vec, p.embedder.Version(), p.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: nearest chunks failed: %w", ErrPersistence, err)
	}
	if len(rows) > p.topK {
		rows = rows[:p.topK]
	}

	relevant := make([]QueryResult, 0, len(rows))
	for _, row := range rows {
		row.Similarity = ClampSimilarity(row.Similarity)
		if row.Similarity >= p.threshold {
			relevant = append(relevant, row)
		}
	}

	p.logger.Debug("chunks retrieved",
		zap.Int("candidates", len(rows)),
		zap.Int("relevant", len(relevant)),
		zap.Float64("threshold", p.threshold),
	)

	if len(relevant) == 0 {
		return &Answer{Confidence: ConfidenceLow, Sources: []Source{}}, nil
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Similarity > relevant[j].Similarity
	})

	sources := make([]Source, len(relevant))
	blocks := make([]string, len(relevant))
	for i, row := range relevant {
		sources[i] = Source{
			Title:      row.Title,
			Category:   row.Category,
			Similarity: FormatSimilarity(row.Similarity),
			Score:      row.Similarity,
		}
		blocks[i] = row.Title + ":\n" + row.Content
	}

	return &Answer{
		Confidence:      ConfidenceHigh,
		Sources:         sources,
		GroundedContext: strings.Join(blocks, ContextDelimiter),
	}, nil
}

// ClampSimilarity maps a score into [-1, 1]. NaN counts as the worst match.
func ClampSimilarity(s float64) float64 {
	switch {
	case math.IsNaN(s):
		return -1
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

func FormatSimilarity(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
