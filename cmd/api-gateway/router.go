package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/oficios-api/internal/handler"
	internalmiddleware "github.com/noah-isme/oficios-api/internal/middleware"
	"github.com/noah-isme/oficios-api/internal/models"
	"github.com/noah-isme/oficios-api/internal/service"
	"github.com/noah-isme/oficios-api/pkg/config"
	"github.com/noah-isme/oficios-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/oficios-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/oficios-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *service.MetricsService
	auth      *service.AuthService
	audit     internalmiddleware.AuditWriter
	db        handler.Pinger
	requests  *service.RequestService
	responses *service.ResponseService
	letters   *service.LetterService
	crossref  *service.CrossReferenceService
	catalog   *service.CatalogService
	dashboard *service.DashboardService
}

func buildRouter(deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.logger))
	r.Use(corsmiddleware.New(deps.cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.db, deps.logger)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if deps.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(deps.auth))

	requestHandler := handler.NewRequestHandler(deps.requests)
	responseHandler := handler.NewResponseHandler(deps.responses, deps.letters)
	crossRefHandler := handler.NewCrossReferenceHandler(deps.crossref)
	catalogHandler := handler.NewCatalogHandler(deps.catalog)

	requests := api.Group("/requests")
	requests.GET("", requestHandler.List)
	requests.POST("", requestHandler.Create)
	requests.GET("/:id", requestHandler.Get)
	requests.PUT("/:id", requestHandler.Update)
	requests.DELETE("/:id", requestHandler.Delete)
	requests.POST("/:id/responses", responseHandler.Create)

	responses := api.Group("/responses")
	responses.GET("", responseHandler.List)
	responses.GET("/:id", responseHandler.Get)
	responses.PUT("/:id", responseHandler.Update)
	responses.DELETE("/:id", responseHandler.Delete)
	responses.POST("/:id/finalize", responseHandler.Finalize)
	responses.POST("/:id/send", responseHandler.Send)
	responses.GET("/:id/pdf",
		internalmiddleware.Audit(deps.audit, deps.logger, models.AuditActionLetterRender, "response"),
		responseHandler.Letter,
	)

	api.POST("/cross-references/preview", crossRefHandler.Preview)
	api.GET("/flagged-persons/:id/history", crossRefHandler.History)
	api.GET("/institutions/:id/units", catalogHandler.Units)
	api.GET("/units/:id/agents", catalogHandler.Agents)

	if deps.cfg.Dashboard.Enabled && deps.dashboard != nil {
		dashboardHandler := handler.NewDashboardHandler(deps.dashboard)
		api.GET("/dashboard", dashboardHandler.Summary)
	}

	return r
}
