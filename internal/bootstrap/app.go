package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clinic-faq-assistant/internal/ai"
	"clinic-faq-assistant/internal/app"
	"clinic-faq-assistant/internal/cache"
	"clinic-faq-assistant/internal/config"
	"clinic-faq-assistant/internal/model"
	"clinic-faq-assistant/internal/pkg/logger"
	mysqlClient "clinic-faq-assistant/internal/platform/mysql"
	postgresClient "clinic-faq-assistant/internal/platform/postgres"
	rabbitmqClient "clinic-faq-assistant/internal/platform/rabbitmq"
	redisClient "clinic-faq-assistant/internal/platform/redis"
	"clinic-faq-assistant/internal/rag"
	"clinic-faq-assistant/internal/repository"
	"clinic-faq-assistant/internal/vectorstore"
	"clinic-faq-assistant/internal/vectorstore/pgvector"
	"clinic-faq-assistant/internal/vectorstore/portable"
	qdrantstore "clinic-faq-assistant/internal/vectorstore/qdrant"
	"clinic-faq-assistant/internal/worker"
)

type Options struct {
	// StartWorker consumes queued ingest jobs in this process.
	StartWorker bool
}

type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	Qdrant *qdrantstore.Store

	Documents     *repository.FAQDocumentRepository
	ChatService   *app.ChatService
	IngestService *app.IngestService
	IngestWorker  *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context, opts Options) (a *App, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}

	a = &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if err := a.openDatabase(ctx); err != nil {
		return a, err
	}

	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return a, err
		}
	}

	var publisher app.IngestJobPublisher
	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestQueue)
		if err != nil {
			return a, err
		}
		publisher = rabbitmqClient.NewIngestPublisher(a.MQConn, cfg.RabbitMQ.IngestQueue)
	}

	a.Documents = repository.NewFAQDocumentRepository(a.DB)
	store, err := a.vectorStore(ctx, vectorstore.NewDocuments(a.Documents))
	if err != nil {
		return a, err
	}

	embedder := a.embedder()
	chunker, err := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.OverlapSize)
	if err != nil {
		return a, fmt.Errorf("build chunker failed: %w", err)
	}

	ingestion := rag.NewIngestionPipeline(store, embedder, chunker, cfg.Embedding.BatchSize, log.Named("ingest"))
	retrieval := rag.NewRetrievalPipeline(store, embedder, cfg.RAG.TopK, cfg.RAG.SimilarityThreshold, log.Named("retrieve"))
	generator := ai.NewGenerator(ai.ClientConfig{
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Timeout:    cfg.LLMTimeout(),
		MaxRetries: cfg.LLM.MaxRetries,
	}, cfg.LLM.Model)

	a.ChatService = app.NewChatService(retrieval, generator, app.Prompts{
		System:   cfg.RAG.SystemPrompt,
		Fallback: cfg.RAG.FallbackMessage,
		Apology:  cfg.RAG.ErrorMessage,
	}, log.Named("chat"))
	a.IngestService = app.NewIngestService(ingestion, publisher, cfg.RAG.RefreshOnIngest, log.Named("ingest"))

	if opts.StartWorker && a.MQConn != nil {
		a.IngestWorker = worker.NewIngestWorker(a.MQConn, a.IngestService, cfg.RabbitMQ.IngestQueue, log)
		if err := a.IngestWorker.Start(ctx); err != nil {
			return a, fmt.Errorf("start ingest worker failed: %w", err)
		}
	}

	log.Info("application bootstrapped",
		zap.String("database", cfg.Database.Driver),
		zap.Bool("qdrant", a.Qdrant != nil),
		zap.Bool("redis", a.Redis != nil),
		zap.Bool("rabbitmq", a.MQConn != nil),
		zap.String("embedding_version", embedder.Version()),
	)
	return a, nil
}

func (a *App) openDatabase(ctx context.Context) error {
	cfg := a.Config
	gormLog := logger.NewGORM(a.Logger, gormlogger.Warn)

	var err error
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		a.DB, err = postgresClient.New(ctx, cfg.PostgresDSN(), gormLog)
		if err != nil {
			return err
		}
		tables := []interface{}{&model.FAQDocument{}}
		if !cfg.Qdrant.Enabled {
			if err := repository.EnableVectorExtension(ctx, a.DB); err != nil {
				return err
			}
			tables = append(tables, &model.FAQChunk{})
		}
		if err := a.DB.AutoMigrate(tables...); err != nil {
			return fmt.Errorf("auto migrate tables failed: %w", err)
		}
	case config.DriverMySQL:
		a.DB, err = mysqlClient.New(ctx, cfg.MySQLDSN(), gormLog)
		if err != nil {
			return err
		}
		tables := []interface{}{&model.FAQDocument{}}
		if !cfg.Qdrant.Enabled {
			tables = append(tables, &model.PortableChunk{})
		}
		if err := a.DB.AutoMigrate(tables...); err != nil {
			return fmt.Errorf("auto migrate tables failed: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return nil
}

func (a *App) vectorStore(ctx context.Context, docs *vectorstore.Documents) (rag.VectorStore, error) {
	cfg := a.Config
	switch {
	case cfg.Qdrant.Enabled:
		store, err := qdrantstore.Dial(cfg.Qdrant.Addr, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, docs)
		if err != nil {
			return nil, err
		}
		a.Qdrant = store
		if err := store.EnsureCollection(ctx, cfg.Embedding.Dimension); err != nil {
			return nil, err
		}
		return store, nil
	case cfg.Database.Driver == config.DriverPostgres:
		return pgvector.New(docs, repository.NewFAQChunkRepository(a.DB)), nil
	default:
		return portable.New(docs, repository.NewPortableChunkRepository(a.DB), a.Logger.Named("portable_store")), nil
	}
}

func (a *App) embedder() rag.Embedder {
	cfg := a.Config
	base := ai.NewEmbedder(ai.ClientConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Timeout:    cfg.LLMTimeout(),
		MaxRetries: cfg.LLM.MaxRetries,
	}, cfg.Embedding.Model, cfg.Embedding.Dimension)

	switch cfg.Embedding.Cache {
	case config.CacheRedis:
		if a.Redis != nil {
			return cache.NewCachedEmbedder(base, cache.NewRedisVectorCache(a.Redis, cfg.EmbeddingCacheTTL()), a.Logger)
		}
	case config.CacheMemory:
		return cache.NewCachedEmbedder(base, cache.NewMemoryVectorCache(cfg.EmbeddingCacheTTL()), a.Logger)
	}
	return base
}

func (a *App) PingDatabase(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *App) PingRedis(ctx context.Context) error {
	return a.Redis.Ping(ctx).Err()
}

func (a *App) PingRabbitMQ(_ context.Context) error {
	if a.MQConn == nil || a.MQConn.IsClosed() {
		return errors.New("connection closed")
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Qdrant != nil {
		if err := a.Qdrant.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
