package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deaglo/apigateway/internal/cloud"
	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/fenics"
	"github.com/deaglo/apigateway/internal/handler"
	"github.com/deaglo/apigateway/internal/middleware"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/deaglo/apigateway/internal/stream"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithFormat(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	awsCfg, err := cloud.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	if cfg.AWS.SSMEnabled {
		if err := config.ApplySSM(ctx, cfg, cloud.NewParameterStore(awsCfg)); err != nil {
			log.Fatalf("Failed to load SSM parameters: %v", err)
		}
		logger.Info("✅ Loaded settings from SSM", "environment", cfg.Environment)
	}

	// 2. Initialize Persistence
	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	logger.Info("✅ Connected to PostgreSQL")
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		if err := repository.Seed(ctx, db); err != nil {
			log.Fatalf("Failed to seed lookup data: %v", err)
		}
		logger.Info("✅ Schema migrated and seeded")
	}
	store := repository.NewStore(db)

	// Redis backs throttling and idempotency across instances; memory otherwise.
	var (
		counter     middleware.Counter
		idempotency middleware.IdempotencyStore
		redisClient *repository.RedisClient
	)
	idemTTL := time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			counter = redisClient
			idempotency = repository.NewRedisIdempotencyStore(redisClient, idemTTL)
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
			redisClient = nil
		}
	}
	if idempotency == nil {
		idempotency = middleware.NewInMemIdempotencyStore(idemTTL)
	}

	dbAudit := repository.NewAuditRepo(store)
	var auditRepo service.AuditRepo = dbAudit
	if cfg.Audit.Backend == "redis" && redisClient != nil {
		auditRepo = repository.NewRedisAuditRepo(redisClient, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
	}
	auditSvc, err := service.NewAuditService(cfg.Audit.LogDir, cfg.Audit.BufferSize, auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	// 3. Initialize Core Services
	mailer := cloud.NewMailer(awsCfg, cfg.Email.SystemEmail, cfg.IsLocalMail())
	queue := cloud.NewQueue(awsCfg, cfg.Simulation.QueueURL)
	storage := cloud.NewStorage(awsCfg, cfg.Storage.BucketName)

	marketSvc := service.NewMarketService(store)
	otpSvc := service.NewOTPService(store, mailer)
	authSvc := service.NewAuthService(store, service.NewTokenIssuer(cfg.Auth), otpSvc, marketSvc, service.NewLinkedInClient(cfg.LinkedIn))
	simListSvc := service.NewSimulationListService(store)
	historySvc := service.NewSpotHistoryService(store)
	pricingSvc := service.NewPricingService(fenics.NewClient(cfg.Fenics))
	simulationSvc := service.NewSimulationService(store, queue, storage, pricingSvc, historySvc)

	// 4. Initialize Handlers
	handler.RegisterValidation()
	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc, service.NewUserService(store)),
		Admin:       handler.NewAdminHandler(service.NewAdminService(store, authSvc, otpSvc), cfg.Server.PageSize),
		Audit:       handler.NewAuditHandler(auditSvc),
		Analysis:    handler.NewAnalysisHandler(service.NewAnalysisService(store, simListSvc), simListSvc, cfg.Server.PageSize),
		Simulation:  handler.NewSimulationHandler(simulationSvc),
		Strategy:    handler.NewStrategyHandler(service.NewStrategyService(store)),
		Market:      handler.NewMarketHandler(marketSvc, historySvc),
		Pricing:     handler.NewPricingHandler(pricingSvc),
		Reference:   handler.NewReferenceHandler(service.NewCurrencyService(store), historySvc),
		Stream:      handler.NewStreamHandler(stream.NewStreamer(ctx, simListSvc, time.Duration(cfg.Simulation.StreamPollSeconds)*time.Second)),
		Idempotency: idempotency,
	}

	throttle := middleware.NewThrottle(cfg.Throttle, counter)
	go throttle.RunJanitor(ctx)
	go runAuditRetention(ctx, dbAudit, time.Duration(cfg.Audit.RetentionDays)*24*time.Hour)

	// 5. Setup Router
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID},
		AllowCredentials: !containsWildcard(cfg.Server.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(auditSvc))
	r.Use(middleware.IdentifyUser(authSvc))
	r.Use(throttle.Middleware())
	r.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	handler.Register(r, handlers)

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 Deaglo API started", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	// Shutdown does not track hijacked websocket connections, so streams and
	// background jobs are stopped first.
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}
	auditSvc.Close()

	logger.Info("Server exiting")
}

func runAuditRetention(ctx context.Context, repo *repository.AuditRepo, keep time.Duration) {
	if keep <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if err := repo.Cleanup(ctx, keep); err != nil && ctx.Err() == nil {
			logger.Error("❌ service log cleanup failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
