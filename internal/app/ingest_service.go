package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clinic-faq-assistant/internal/model"
	"clinic-faq-assistant/internal/rag"
)

var (
	ErrIngestionInProgress = errors.New("an ingestion run is already in progress")
	ErrAsyncUnavailable    = errors.New("asynchronous ingestion is not configured")
	ErrJobEnqueue          = errors.New("ingest job enqueue failed")
)

type Ingester interface {
	Ingest(ctx context.Context, opts rag.IngestOptions) (rag.IngestResult, error)
}

type IngestJobPublisher interface {
	Publish(ctx context.Context, job model.IngestJob) error
}

type IngestInput struct {
	// Refresh overrides the configured default when set.
	Refresh   *bool
	Async     bool
	RequestID string
}

type IngestOutcome struct {
	Result rag.IngestResult
	JobID  string
	Queued bool
}

// Message is the human-readable summary returned to the caller.
func (o *IngestOutcome) Message() string {
	if o.Queued {
		return fmt.Sprintf("Ingestion job %s queued", o.JobID)
	}
	return fmt.Sprintf("Successfully ingested %d documents into %d chunks", o.Result.DocumentsProcessed, o.Result.ChunksCreated)
}

// IngestService runs at most one ingestion at a time in this process.
type IngestService struct {
	pipeline       Ingester
	publisher      IngestJobPublisher
	refreshDefault bool
	logger         *zap.Logger

	running sync.Mutex
}

// NewIngestService accepts a nil publisher; async requests then fail with
// ErrAsyncUnavailable.
func NewIngestService(pipeline Ingester, publisher IngestJobPublisher, refreshDefault bool, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		pipeline:       pipeline,
		publisher:      publisher,
		refreshDefault: refreshDefault,
		logger:         logger,
	}
}

func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (*IngestOutcome, error) {
	refresh := s.refreshDefault
	if in.Refresh != nil {
		refresh = *in.Refresh
	}

	if in.Async {
		return s.enqueue(ctx, refresh, in.RequestID)
	}

	if !s.running.TryLock() {
		return nil, ErrIngestionInProgress
	}
	defer s.running.Unlock()

	result, err := s.pipeline.Ingest(ctx, rag.IngestOptions{Refresh: refresh})
	return &IngestOutcome{Result: result}, err
}

// RunJob executes a queued job, waiting for any in-flight run to finish.
func (s *IngestService) RunJob(ctx context.Context, job model.IngestJob) (rag.IngestResult, error) {
	s.running.Lock()
	defer s.running.Unlock()

	started := time.Now()
	result, err := s.pipeline.Ingest(ctx, rag.IngestOptions{Refresh: job.Refresh})
	s.logger.Info("ingest job finished",
		zap.String("job_id", job.JobID),
		zap.String("request_id", job.RequestID),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("documents", result.DocumentsProcessed),
		zap.Int("chunks", result.ChunksCreated),
		zap.Error(err),
	)
	return result, err
}

func (s *IngestService) enqueue(ctx context.Context, refresh bool, requestID string) (*IngestOutcome, error) {
	if s.publisher == nil {
		return nil, ErrAsyncUnavailable
	}
	job := model.IngestJob{
		JobID:       uuid.NewString(),
		Refresh:     refresh,
		RequestID:   requestID,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJobEnqueue, err)
	}
	s.logger.Info("ingest job queued", zap.String("job_id", job.JobID), zap.Bool("refresh", refresh))
	return &IngestOutcome{JobID: job.JobID, Queued: true}, nil
}
