package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/oficios-api/api/swagger"
	"github.com/noah-isme/oficios-api/internal/repository"
	"github.com/noah-isme/oficios-api/internal/service"
	"github.com/noah-isme/oficios-api/pkg/cache"
	"github.com/noah-isme/oficios-api/pkg/config"
	"github.com/noah-isme/oficios-api/pkg/database"
	"github.com/noah-isme/oficios-api/pkg/export"
	"github.com/noah-isme/oficios-api/pkg/logger"
)

// @title Oficios API
// @version 1.0.0
// @description Request and response lifecycle for official letters with registry cross-references
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	deps := wire(ctx, cfg, db, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           buildRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// wire builds the services over the pool. Lifecycle writes go through a unit
// of work; reads use the pool directly.
func wire(ctx context.Context, cfg *config.Config, db *sqlx.DB, metrics *service.MetricsService, logr *zap.Logger) routerDeps {
	reads := storesOn(db)
	uow := newUnitOfWork(repository.NewTransactor(db, cfg.Responses.TxTimeout))
	validate := service.NewValidator()
	crossref := service.NewCrossReferenceService(reads.Registry, validate, logr)

	var invalidator interface{ Invalidate(context.Context) }
	var dashboard *service.DashboardService
	if cfg.Dashboard.Enabled {
		var cacheStore service.CacheStore
		if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			cacheStore = repository.NewCacheRepository(client, "oficios", logr)
		}
		cacheSvc := service.NewCacheService(service.CacheServiceParams{
			Store:   cacheStore,
			Metrics: metrics,
			TTL:     cfg.Dashboard.CacheTTL,
			Logger:  logr,
		})
		dashboard = service.NewDashboardService(service.DashboardServiceParams{
			Stats:  repository.NewDashboardRepository(db),
			Reads:  reads,
			Cache:  cacheSvc,
			Logger: logr,
			Config: service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
		})
		invalidator = dashboard
	}

	requests := service.NewRequestService(service.RequestServiceParams{
		UnitOfWork: uow,
		Reads:      reads,
		CrossRef:   crossref,
		Validator:  validate,
		Logger:     logr,
		Cache:      invalidator,
		Metrics:    metrics,
	})
	responses := service.NewResponseService(service.ResponseServiceParams{
		UnitOfWork:   uow,
		Reads:        reads,
		CrossRef:     crossref,
		NumberPrefix: cfg.Responses.NumberPrefix,
		Validator:    validate,
		Logger:       logr,
		Cache:        invalidator,
		Metrics:      metrics,
	})
	letters := service.NewLetterService(reads, export.NewLetterRenderer(), service.LetterConfig{
		HeaderLines:    cfg.Letter.HeaderLines,
		City:           cfg.Letter.City,
		OfficeCode:     cfg.Letter.OfficeCode,
		Motto:          cfg.Letter.Motto,
		AnalystTitle:   cfg.Letter.AnalystTitle,
		ReviewerTitle:  cfg.Letter.ReviewerTitle,
		SignatureOrgan: cfg.Letter.SignatureOrgan,
	}, logr).WithMetrics(metrics)

	return routerDeps{
		cfg:     cfg,
		logger:  logr,
		metrics: metrics,
		auth: service.NewAuthService(logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			Issuer:            cfg.JWT.Issuer,
			Audience:          cfg.JWT.Audience,
			Leeway:            cfg.JWT.Leeway,
		}),
		audit:     reads.Audit,
		db:        db,
		requests:  requests,
		responses: responses,
		letters:   letters,
		crossref:  crossref,
		catalog:   service.NewCatalogService(reads.Catalog),
		dashboard: dashboard,
	}
}
