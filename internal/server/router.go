package server

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/study-vault-api/api/swagger"
	"github.com/noah-isme/study-vault-api/internal/handler"
	"github.com/noah-isme/study-vault-api/internal/middleware"
	"github.com/noah-isme/study-vault-api/internal/service"
	"github.com/noah-isme/study-vault-api/pkg/config"
	"github.com/noah-isme/study-vault-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/study-vault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/study-vault-api/pkg/middleware/requestid"
)

// RouterDeps carries everything the HTTP surface is assembled from.
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *service.MetricsService
	Auth     *service.AuthService
	Notes    *handler.NoteHandler
	Login    *handler.AuthHandler
	Ops      *handler.MetricsHandler
	NewRelic *newrelic.Application
}

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if deps.NewRelic != nil {
		r.Use(nrgin.Middleware(deps.NewRelic))
	}
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", deps.Ops.Health)
	r.GET("/ready", deps.Ops.Ready)
	r.GET("/metrics", deps.Ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		swagger.SetBasePath(cfg.APIPrefix)
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", deps.Login.Login)
	api.GET("/categories", deps.Notes.Categories)
	api.GET("/notes", deps.Notes.List)
	api.GET("/notes/:id", deps.Notes.Get)
	api.GET("/pdf/:blob_id", deps.Notes.PDF)
	api.GET("/export/notes", deps.Notes.Export)

	admin := api.Group("")
	admin.Use(middleware.JWT(deps.Auth), middleware.RequireAdmin())
	admin.POST("/notes/upload", deps.Notes.Upload)
	admin.PUT("/notes/:id", deps.Notes.Update)
	admin.DELETE("/notes/:id", deps.Notes.Delete)

	return r
}
