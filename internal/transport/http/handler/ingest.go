package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clinic-faq-assistant/internal/app"
	"clinic-faq-assistant/internal/rag"
	"clinic-faq-assistant/internal/transport/http/middleware"
	"clinic-faq-assistant/internal/transport/http/response"
)

type DocumentIngester interface {
	Ingest(ctx context.Context, in app.IngestInput) (*app.IngestOutcome, error)
}

type IngestHandler struct {
	ingest DocumentIngester
}

func NewIngestHandler(ingest DocumentIngester) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// IngestDocuments accepts ?refresh=true|false and ?async=true.
func (h *IngestHandler) IngestDocuments(c *gin.Context) {
	in := app.IngestInput{RequestID: middleware.GetRequestID(c)}
	if raw, ok := c.GetQuery("refresh"); ok {
		refresh, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "refresh must be true or false")
			return
		}
		in.Refresh = &refresh
	}
	if raw, ok := c.GetQuery("async"); ok {
		async, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "async must be true or false")
			return
		}
		in.Async = async
	}

	outcome, err := h.ingest.Ingest(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		h.fail(c, outcome, err)
		return
	}

	if outcome.Queued {
		response.OK(c, http.StatusAccepted, outcome.Message(), gin.H{"job_id": outcome.JobID})
		return
	}
	response.OK(c, http.StatusCreated, outcome.Message(), outcome.Result)
}

func (h *IngestHandler) fail(c *gin.Context, outcome *app.IngestOutcome, err error) {
	switch {
	case errors.Is(err, rag.ErrNoDocuments):
		response.Error(c, http.StatusNotFound, "No documents found to ingest")
	case errors.Is(err, app.ErrIngestionInProgress):
		response.Error(c, http.StatusConflict, "An ingestion run is already in progress")
	case errors.Is(err, app.ErrAsyncUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "Asynchronous ingestion is not available")
	default:
		var partial interface{}
		var ingestErr *rag.IngestionError
		if errors.As(err, &ingestErr) {
			partial = rag.IngestResult{
				DocumentsProcessed: ingestErr.DocumentsProcessed,
				ChunksCreated:      ingestErr.ChunksCreated,
			}
		} else if outcome != nil {
			partial = outcome.Result
		}
		response.ErrorDetail(c, http.StatusInternalServerError, "Error processing documents", err.Error(), partial)
	}
}
