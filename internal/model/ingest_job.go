package model

import "time"

// IngestJob is the RabbitMQ payload for an asynchronous ingestion run.
type IngestJob struct {
	JobID       string    `json:"job_id"`
	Refresh     bool      `json:"refresh"`
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
