package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"clinic-faq-assistant/internal/model"
	"clinic-faq-assistant/internal/rag"
)

type JobRunner interface {
	RunJob(ctx context.Context, job model.IngestJob) (rag.IngestResult, error)
}

type disposition int

const (
	ack disposition = iota
	reject
)

// IngestWorker consumes ingest jobs one at a time. Failed jobs are rejected
// without requeue; a retried run would duplicate the chunks it already wrote.
type IngestWorker struct {
	conn      *amqp.Connection
	runner    JobRunner
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, runner JobRunner, queueName string, logger *zap.Logger) *IngestWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestWorker{
		conn:      conn,
		runner:    runner,
		queueName: queueName,
		logger:    logger.Named("ingest_worker"),
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				switch w.handle(workerCtx, d.Body) {
				case ack:
					_ = d.Ack(false)
				case reject:
					_ = d.Nack(false, false)
				}
			}
		}
	}()

	w.logger.Info("worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *IngestWorker) handle(ctx context.Context, body []byte) disposition {
	var job model.IngestJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.Error("decode ingest job failed", zap.Error(err))
		return reject
	}

	_, err := w.runner.RunJob(ctx, job)
	switch {
	case err == nil:
		return ack
	case errors.Is(err, rag.ErrNoDocuments):
		w.logger.Warn("ingest job found no documents", zap.String("job_id", job.JobID))
		return ack
	default:
		w.logger.Error("ingest job failed", zap.String("job_id", job.JobID), zap.Error(err))
		return reject
	}
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
