package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-faq-assistant/internal/model"
	"clinic-faq-assistant/internal/rag"
)

var testPrompts = Prompts{System: "You are a clinic assistant.", Fallback: "Please call us.", Apology: "Sorry, try again."}

type stubRetriever struct {
	answer *rag.Answer
	err    error
}

func (s stubRetriever) Answer(context.Context, string) (*rag.Answer, error) { return s.answer, s.err }

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func highAnswer() *rag.Answer {
	return &rag.Answer{
		Confidence:      rag.ConfidenceHigh,
		Sources:         []rag.Source{{Title: "Office Hours", Category: "general", Similarity: "0.900", Score: 0.9}},
		GroundedContext: "Office Hours:\nOpen weekdays.",
	}
}

func TestSendMessage_HighConfidence(t *testing.T) {
	gen := &stubGenerator{reply: "We are open weekdays."}
	svc := NewChatService(stubRetriever{answer: highAnswer()}, gen, testPrompts, nil)

	result, err := svc.SendMessage(context.Background(), "When are you open?")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "We are open weekdays.", result.Message)
	assert.Equal(t, rag.ConfidenceHigh, result.Confidence)
	assert.Equal(t, "0.900", result.Sources[0].Similarity)
	require.Len(t, gen.prompts, 1)
	assert.Equal(t, "You are a clinic assistant.\n\nContext:\nOffice Hours:\nOpen weekdays.\n\n"+
		"Patient Question: When are you open?\n\nProvide a helpful answer based on the context above.", gen.prompts[0])
}

func TestSendMessage_LowConfidenceSkipsGenerator(t *testing.T) {
	gen := &stubGenerator{}
	low := &rag.Answer{Confidence: rag.ConfidenceLow, Sources: []rag.Source{}}
	svc := NewChatService(stubRetriever{answer: low}, gen, testPrompts, nil)

	result, err := svc.SendMessage(context.Background(), "Can you diagnose my rash?")
	require.NoError(t, err)

	assert.Equal(t, &SendMessageResult{Success: true, Message: "Please call us.", Confidence: rag.ConfidenceLow, Sources: []rag.Source{}}, result)
	assert.Empty(t, gen.prompts)
}

func TestSendMessage_EmptyQuestion(t *testing.T) {
	svc := NewChatService(stubRetriever{err: rag.ErrEmptyQuery}, &stubGenerator{}, testPrompts, nil)

	result, err := svc.SendMessage(context.Background(), "  ")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, rag.ErrValidation)
}

func TestSendMessage_FailuresBecomeApology(t *testing.T) {
	tests := []struct {
		name      string
		retriever stubRetriever
		generator *stubGenerator
		wantErr   error
	}{
		{
			name:      "embedding",
			retriever: stubRetriever{err: fmt.Errorf("%w: timeout", rag.ErrEmbedding)},
			generator: &stubGenerator{},
			wantErr:   rag.ErrEmbedding,
		},
		{
			name:      "generation",
			retriever: stubRetriever{answer: highAnswer()},
			generator: &stubGenerator{err: errors.New("quota exceeded")},
			wantErr:   rag.ErrGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewChatService(tt.retriever, tt.generator, testPrompts, nil)
			result, err := svc.SendMessage(context.Background(), "question")

			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, result)
			assert.False(t, result.Success)
			assert.Equal(t, "Sorry, try again.", result.Message)
			assert.NotContains(t, result.Message, "quota")
		})
	}
}

type stubIngester struct {
	result  rag.IngestResult
	err     error
	opts    []rag.IngestOptions
	block   chan struct{}
	entered chan struct{}
}

func (s *stubIngester) Ingest(_ context.Context, opts rag.IngestOptions) (rag.IngestResult, error) {
	s.opts = append(s.opts, opts)
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	return s.result, s.err
}

type stubPublisher struct {
	jobs []model.IngestJob
	err  error
}

func (p *stubPublisher) Publish(_ context.Context, job model.IngestJob) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

func TestIngest_Sync(t *testing.T) {
	ing := &stubIngester{result: rag.IngestResult{DocumentsProcessed: 4, ChunksCreated: 11}}
	svc := NewIngestService(ing, nil, true, nil)

	out, err := svc.Ingest(context.Background(), IngestInput{})
	require.NoError(t, err)
	assert.Equal(t, "Successfully ingested 4 documents into 11 chunks", out.Message())
	assert.Equal(t, []rag.IngestOptions{{Refresh: true}}, ing.opts)

	no := false
	_, err = svc.Ingest(context.Background(), IngestInput{Refresh: &no})
	require.NoError(t, err)
	assert.False(t, ing.opts[1].Refresh)
}

func TestIngest_PropagatesPipelineErrors(t *testing.T) {
	svc := NewIngestService(&stubIngester{err: rag.ErrNoDocuments}, nil, false, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{})
	assert.ErrorIs(t, err, rag.ErrNoDocuments)
}

func TestIngest_RejectsConcurrentRun(t *testing.T) {
	ing := &stubIngester{block: make(chan struct{}), entered: make(chan struct{})}
	svc := NewIngestService(ing, nil, false, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Ingest(context.Background(), IngestInput{})
		done <- err
	}()
	<-ing.entered

	_, err := svc.Ingest(context.Background(), IngestInput{})
	assert.ErrorIs(t, err, ErrIngestionInProgress)

	close(ing.block)
	assert.NoError(t, <-done)
}

func TestIngest_Async(t *testing.T) {
	pub := &stubPublisher{}
	svc := NewIngestService(&stubIngester{}, pub, false, nil)

	yes := true
	out, err := svc.Ingest(context.Background(), IngestInput{Async: true, Refresh: &yes, RequestID: "req-1"})
	require.NoError(t, err)

	assert.True(t, out.Queued)
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, out.JobID, pub.jobs[0].JobID)
	assert.True(t, pub.jobs[0].Refresh)
	assert.Equal(t, "req-1", pub.jobs[0].RequestID)
	assert.Contains(t, out.Message(), out.JobID)
}

func TestIngest_AsyncFailures(t *testing.T) {
	_, err := NewIngestService(&stubIngester{}, nil, false, nil).Ingest(context.Background(), IngestInput{Async: true})
	assert.ErrorIs(t, err, ErrAsyncUnavailable)

	pub := &stubPublisher{err: errors.New("channel closed")}
	_, err = NewIngestService(&stubIngester{}, pub, false, nil).Ingest(context.Background(), IngestInput{Async: true})
	assert.ErrorIs(t, err, ErrJobEnqueue)
}

func TestRunJob_UsesJobRefresh(t *testing.T) {
	ing := &stubIngester{result: rag.IngestResult{DocumentsProcessed: 1, ChunksCreated: 2}}
	svc := NewIngestService(ing, nil, false, nil)

	result, err := svc.RunJob(context.Background(), model.IngestJob{JobID: "j1", Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ChunksCreated)
	assert.True(t, ing.opts[0].Refresh)
}
