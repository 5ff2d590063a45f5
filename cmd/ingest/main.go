// Command ingest runs one FAQ ingestion pass outside the HTTP server,
// optionally seeding faq_documents from a JSON file first.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"clinic-faq-assistant/internal/app"
	"clinic-faq-assistant/internal/bootstrap"
	"clinic-faq-assistant/internal/model"
	"clinic-faq-assistant/internal/rag"
)

type seedDocument struct {
	Title    string `json:"title"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

func main() {
	var (
		refresh  = flag.Bool("refresh", false, "replace existing chunks of each document (default: rag.refresh_on_ingest)")
		seedFile = flag.String("seed", "", "JSON array of {title, source, category} inserted before ingesting")
		async    = flag.Bool("async", false, "queue the run on RabbitMQ instead of running it here")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap.New(ctx, bootstrap.Options{})
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	code := run(ctx, a, *seedFile, refreshOverride(flag.CommandLine, *refresh), *async)
	if err := a.Close(); err != nil {
		log.Printf("close resources failed: %v", err)
	}
	os.Exit(code)
}

// refreshOverride is nil unless -refresh was given, so rag.refresh_on_ingest
// applies by default.
func refreshOverride(fs *flag.FlagSet, refresh bool) *bool {
	var set bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "refresh" {
			set = true
		}
	})
	if !set {
		return nil
	}
	return &refresh
}

func run(ctx context.Context, a *bootstrap.App, seedFile string, refresh *bool, async bool) int {
	logger := a.Logger.Named("cli")

	if seedFile != "" {
		docs, err := loadSeed(seedFile)
		if err != nil {
			logger.Error("read seed file failed", zap.String("file", seedFile), zap.Error(err))
			return 1
		}
		if err := a.Documents.CreateBatch(ctx, docs); err != nil {
			logger.Error("seed documents failed", zap.Error(err))
			return 1
		}
		logger.Info("seeded documents", zap.Int("count", len(docs)))
	}

	outcome, err := a.IngestService.Ingest(ctx, app.IngestInput{Refresh: refresh, Async: async})
	if err != nil {
		var ingestErr *rag.IngestionError
		if errors.As(err, &ingestErr) {
			logger.Error("ingestion failed",
				zap.Uint("document_id", ingestErr.DocumentID),
				zap.Int("documents", ingestErr.DocumentsProcessed),
				zap.Int("chunks", ingestErr.ChunksCreated),
				zap.Error(err))
		} else {
			logger.Error("ingestion failed", zap.Error(err))
		}
		return 1
	}
	logger.Info(outcome.Message())
	return 0
}

func loadSeed(path string) ([]model.FAQDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []seedDocument
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode seed file failed: %w", err)
	}

	docs := make([]model.FAQDocument, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Source) == "" {
			return nil, fmt.Errorf("seed entry %d: title and source are required", i)
		}
		docs = append(docs, model.FAQDocument{Title: e.Title, Source: e.Source, Category: e.Category})
	}
	return docs, nil
}
