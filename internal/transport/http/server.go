package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinic-faq-assistant/internal/bootstrap"
	"clinic-faq-assistant/internal/config"
	"clinic-faq-assistant/internal/transport/http/handler"
	"clinic-faq-assistant/internal/transport/http/middleware"
)

type handlers struct {
	message *handler.MessageHandler
	ingest  *handler.IngestHandler
	health  *handler.HealthHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	return newEngine(cfg, app.Logger, handlers{
		message: handler.NewMessageHandler(app.ChatService, cfg.RAG.ErrorMessage),
		ingest:  handler.NewIngestHandler(app.IngestService),
		health:  handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, app.StartedAt, checks(app)...),
	})
}

func newEngine(cfg *config.Config, log *zap.Logger, h handlers) *gin.Engine {
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(log.Named("http")),
		middleware.Recovery(log),
		middleware.CORS(cfg.App.FrontendOrigin),
	)

	router.GET("/healthz", h.health.Check)
	if cfg.App.WebDir != "" {
		router.Static("/app", cfg.App.WebDir)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	api := router.Group("/api")
	api.POST("/sendMessage", limiter.Middleware(), h.message.SendMessage)
	api.POST("/ingestDocuments", h.ingest.IngestDocuments)

	return router
}

func checks(app *bootstrap.App) []handler.DependencyCheck {
	list := []handler.DependencyCheck{{Name: app.Config.Database.Driver, Check: app.PingDatabase}}
	if app.Redis != nil {
		list = append(list, handler.DependencyCheck{Name: "redis", Check: app.PingRedis})
	}
	if app.MQConn != nil {
		list = append(list, handler.DependencyCheck{Name: "rabbitmq", Check: app.PingRabbitMQ})
	}
	if app.Qdrant != nil {
		list = append(list, handler.DependencyCheck{Name: "qdrant", Check: app.Qdrant.Ping})
	}
	return list
}
