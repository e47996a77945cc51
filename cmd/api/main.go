package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tvet-apply/applicants-api/config"
	"github.com/tvet-apply/applicants-api/internal/cache"
	"github.com/tvet-apply/applicants-api/internal/handlers"
	"github.com/tvet-apply/applicants-api/internal/middleware"
	"github.com/tvet-apply/applicants-api/internal/repository"
	"github.com/tvet-apply/applicants-api/internal/services"
	"github.com/tvet-apply/applicants-api/pkg/db"
	"github.com/tvet-apply/applicants-api/pkg/httpclient"
	"github.com/tvet-apply/applicants-api/pkg/jwt"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"github.com/tvet-apply/applicants-api/pkg/profiling"
	"github.com/tvet-apply/applicants-api/pkg/recaptcha"
	"github.com/tvet-apply/applicants-api/pkg/retry"
	"github.com/tvet-apply/applicants-api/pkg/storage"
	"github.com/tvet-apply/applicants-api/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const jsonBodyLimit = 1 << 20 // 1 MB

// registerFormRoutes wires the public submission and the admin form endpoints
func registerFormRoutes(
	router *gin.Engine,
	cfg *config.Config,
	submitRateLimiter *middleware.RateLimiter,
	captcha middleware.CaptchaVerifier,
	tokenManager *jwt.TokenManager,
	formHandler *handlers.FormHandler,
) {
	router.POST("/forms",
		submitRateLimiter.Middleware(),
		middleware.CaptchaMiddleware(captcha),
		middleware.BodySizeLimitMiddleware(jsonBodyLimit),
		formHandler.Submit,
	)

	forms := router.Group("/forms")
	forms.Use(middleware.AdminAuthMiddleware(tokenManager))

	forms.GET("", formHandler.List)
	forms.GET("/export", formHandler.Export)
	forms.POST("/import", middleware.BodySizeLimitMiddleware(cfg.Import.MaxUploadBytes), formHandler.Import)
	// multipart framing needs headroom on top of the file itself
	forms.POST("/import/file", middleware.BodySizeLimitMiddleware(cfg.Import.MaxUploadBytes+jsonBodyLimit), formHandler.ImportFile)
	forms.GET("/:id", formHandler.Get)
	forms.PUT("/:id", middleware.BodySizeLimitMiddleware(jsonBodyLimit), formHandler.Update)
	forms.DELETE("/:id", formHandler.Delete)
}

// registerAdminRoutes wires admin registration, login, the catalog refresh and
// self-scoped account routes
func registerAdminRoutes(
	router *gin.Engine,
	loginRateLimiter *middleware.RateLimiter,
	tokenManager *jwt.TokenManager,
	adminHandler *handlers.AdminAuthHandler,
	catalogHandler *handlers.CatalogHandler,
) {
	admin := router.Group("/admin")
	admin.Use(middleware.BodySizeLimitMiddleware(jsonBodyLimit))

	admin.POST("/register", loginRateLimiter.Middleware(), adminHandler.Register)
	admin.POST("/login", loginRateLimiter.Middleware(), adminHandler.Login)

	protected := admin.Group("")
	protected.Use(middleware.AdminAuthMiddleware(tokenManager))
	protected.POST("/logout", adminHandler.Logout)
	protected.POST("/catalog/refresh", catalogHandler.Refresh)
	protected.GET("/:id", middleware.AdminSelfOnly("id"), adminHandler.Get)
	protected.DELETE("/:id", middleware.AdminSelfOnly("id"), adminHandler.Delete)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting applicants API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
	)

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.InitProfiler(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Error("Failed to start profiler, continuing without it", zap.Error(err))
	} else {
		defer stopProfiler()
	}

	metrics.Init(cfg.Observability.ServiceName)

	// Postgres may still be starting when the container comes up
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	pool, err := retry.DoWithResult(startupCtx, retry.DatabaseConfig(), "database_connect", func() (*pgxpool.Pool, error) {
		return db.NewPool(startupCtx, db.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			CACertPath:      cfg.Database.CACertPath,
			TLSServerName:   cfg.Database.TLSServerName,
			ApplicationName: cfg.Observability.ServiceName,
		})
	})
	if err != nil {
		cancelStartup()
		logger.Fatal("Failed to initialize database connection pool", zap.Error(err))
	}
	defer db.Close(pool)
	if err := db.RegisterPoolMetrics(pool); err != nil {
		logger.Warn("Pool metrics unavailable", zap.Error(err))
	}

	// NOTE: migrations run separately via cmd/migrate

	// Request structs and the form validator share the applicant field tags
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := services.RegisterValidations(v); err != nil {
			logger.Fatal("Failed to register validations", zap.Error(err))
		}
	}

	// Repositories
	formRepo := repository.NewFormRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)

	var catalogCache *cache.CatalogCache
	if cfg.Cache.DisableCatalogCache {
		logger.Warn("Catalog cache is DISABLED - reading from database on every request")
	} else {
		catalogCache = cache.NewCatalogCache(catalogRepo.LoadCatalog, cfg.Cache.CatalogTTLSeconds)
	}
	catalogService := services.NewCatalogService(catalogRepo, catalogCache)

	// Warm the catalog before accepting requests so the healthcheck reflects readiness
	if err := catalogService.Warm(startupCtx); err != nil {
		cancelStartup()
		logger.Fatal("Failed to initialize catalog cache", zap.Error(err))
	}
	cancelStartup()

	var archiver services.Archiver
	if cfg.Archive.Enabled() {
		archiveClient, err := storage.NewArchiveClient(cfg.Archive)
		if err != nil {
			logger.Fatal("Failed to initialize archive storage client", zap.Error(err))
		}
		archiver = archiveClient
	} else {
		logger.Info("Spreadsheet archiving disabled: ARCHIVE_* not configured")
	}

	var captcha middleware.CaptchaVerifier
	if cfg.Recaptcha.Enabled() {
		captcha = recaptcha.NewVerifier(
			cfg.Recaptcha.SecretKey,
			cfg.Recaptcha.VerifyURL,
			cfg.Recaptcha.MinScore,
			httpclient.NewStandardClient("recaptcha", 5*time.Second),
		)
	} else {
		logger.Warn("Captcha disabled for public submissions: RECAPTCHA_SECRET_KEY not configured")
	}

	// Services
	formValidator := services.NewFormValidator()
	formService := services.NewFormService(formRepo, catalogService, formValidator)
	importService := services.NewImportReconciler(formRepo, catalogService, formValidator, archiver, cfg.Import.MaxRows)
	exportService := services.NewExportService(formRepo, archiver)
	adminAuthService := services.NewAdminAuthService(adminRepo, cfg.Auth)
	tokenManager := adminAuthService.GetTokenManager()

	// Handlers
	formHandler := handlers.NewFormHandler(formService, importService, exportService, cfg.Import.MaxUploadBytes)
	adminHandler := handlers.NewAdminAuthHandler(adminAuthService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	healthHandler := handlers.NewHealthHandler(pool.Ping, catalogService.IsReady)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName)) // OpenTelemetry tracing
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	allowedOrigins := cfg.Server.AllowedOrigins
	// Allow the dashboard dev server in development
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.CaptchaHeader, "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false, // bearer tokens, no cookies
		MaxAge:           12 * time.Hour,
	}))

	generalRateLimiter := middleware.NewRateLimiter("general", 100, 200)
	submitRateLimiter := middleware.NewRateLimiter("submit", 1, 5)
	loginRateLimiter := middleware.NewRateLimiter("login", 0.1, 5) // 6 req/min

	registerFormRoutes(router, cfg, submitRateLimiter, captcha, tokenManager, formHandler)
	registerAdminRoutes(router, loginRateLimiter, tokenManager, adminHandler, catalogHandler)

	api := router.Group("/api")
	api.Use(generalRateLimiter.Middleware())
	api.GET("/regions", catalogHandler.Regions)
	api.GET("/areas", catalogHandler.Areas)
	api.GET("/institutes", catalogHandler.Institutes)
	api.GET("/professions", catalogHandler.Professions)
	api.GET("/healthcheck", healthHandler.Healthcheck)
	api.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second, // spreadsheet uploads
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
