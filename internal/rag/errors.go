package rag

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNoDocuments = errors.New("no documents found to ingest")
	ErrEmbedding   = errors.New("embedding failed")
	ErrPersistence = errors.New("persistence failed")
	ErrGeneration  = errors.New("generation failed")

	ErrEmptyQuery          = fmt.Errorf("%w: question is empty", ErrValidation)
	ErrInvalidChunkOptions = fmt.Errorf("%w: overlap size must be non-negative and smaller than chunk size", ErrValidation)
)

// IngestionError reports how far an aborted ingestion run got. Chunks
// persisted before the failure are not rolled back.
type IngestionError struct {
	DocumentsProcessed int
	ChunksCreated      int
	DocumentID         uint
	Err                error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion aborted at document %d after %d documents and %d chunks: %v",
		e.DocumentID, e.DocumentsProcessed, e.ChunksCreated, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
