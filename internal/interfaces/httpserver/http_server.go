package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"w9-search/internal/config"
	"w9-search/internal/interfaces/httpserver/handlers"
	middleware "w9-search/internal/interfaces/httpserver/middlewares"
)

type HTTPServer struct {
	engine *gin.Engine
	config *config.Config

	queryHandler  *handlers.QueryHandler
	sourceHandler *handlers.SourceHandler
	modelHandler  *handlers.ModelHandler
	threadHandler *handlers.ThreadHandler
	limitHandler  *handlers.LimitHandler
}

func NewHTTPServer(
	cfg *config.Config,
	logger zerolog.Logger,
	queryHandler *handlers.QueryHandler,
	sourceHandler *handlers.SourceHandler,
	modelHandler *handlers.ModelHandler,
	threadHandler *handlers.ThreadHandler,
	limitHandler *handlers.LimitHandler,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	server := &HTTPServer{
		engine:        gin.New(),
		config:        cfg,
		queryHandler:  queryHandler,
		sourceHandler: sourceHandler,
		modelHandler:  modelHandler,
		threadHandler: threadHandler,
		limitHandler:  limitHandler,
	}

	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.TracingMiddleware(cfg.ServiceName))
	server.engine.Use(middleware.LoggingMiddleware(logger))
	server.engine.Use(middleware.MetricsMiddleware())
	server.engine.Use(middleware.CORSMiddleware())

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.engine.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	server.registerRoutes()
	return server
}

func (s *HTTPServer) registerRoutes() {
	api := s.engine.Group("/api")
	api.Use(middleware.RateLimitMiddleware(s.config.ClientRateLimitPerMinute))

	api.POST("/query", s.queryHandler.Query)
	api.POST("/query/stream", s.queryHandler.QueryStream)

	api.GET("/sources", s.sourceHandler.List)
	api.GET("/models", s.modelHandler.List)

	api.POST("/threads", s.threadHandler.Create)
	api.GET("/threads", s.threadHandler.List)
	api.GET("/threads/:id", s.threadHandler.Get)

	api.GET("/limits", s.limitHandler.List)
	api.POST("/limits/sync", s.limitHandler.Sync)
}

// Engine exposes the router for tests.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

func (s *HTTPServer) Run() error {
	return s.engine.Run(fmt.Sprintf(":%d", s.config.HTTPPort))
}
