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

	"gds-payments/config"
	httpHandler "gds-payments/internal/adapter/http/handler"
	"gds-payments/internal/adapter/http/middleware"
	"gds-payments/internal/adapter/metrics"
	"gds-payments/internal/adapter/processor/square"
	"gds-payments/internal/adapter/queue"
	pgStorage "gds-payments/internal/adapter/storage/postgres"
	redisStorage "gds-payments/internal/adapter/storage/redis"
	"gds-payments/internal/core/ports"
	"gds-payments/internal/service"
	"gds-payments/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.Load(os.Getenv("GDS_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("api", cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting GDS payments API")

	ctx := context.Background()

	if cfg.Database.AutoMigrate {
		if err := pgStorage.RunMigrations(cfg.Database.MigrationURL(), log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	taskClient := asynq.NewClient(queue.RedisConnOpt(cfg.Redis))
	defer taskClient.Close()

	// Repositories and stores
	txRepo := pgStorage.NewTransactionRepo(pool)
	credRepo := pgStorage.NewCredentialRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)
	eventStore := redisStorage.NewEventStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Core services
	encSvc, err := service.NewAESEncryptionService(cfg.Vault.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	recorder := metrics.New(cfg.Metrics.Namespace)
	processor := square.NewClient(cfg.Square, log)
	tasks := queue.NewClient(taskClient, cfg.Queue)

	// Business services
	vault := service.NewVaultService(credRepo, encSvc, transactor, log)
	paymentSvc := service.NewPaymentService(txRepo, vault, processor, tasks, recorder, log)
	webhookSvc := service.NewWebhookService(
		txRepo,
		vault,
		sigSvc,
		eventStore,
		recorder,
		cfg.Square.WebhookNotificationURL,
		cfg.Square.EventTTL,
		log,
	)
	integrationSvc := service.NewIntegrationService(vault, processor, log)
	reportingSvc := service.NewReportingService(txRepo)
	auditSvc := service.NewAuditService(auditRepo, log)

	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc:     paymentSvc,
		WebhookSvc:     webhookSvc,
		IntegrationSvc: integrationSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		AdminRole:      cfg.JWT.AdminRole,
		RateLimitStore: rateLimitStore,
		RateLimits:     middleware.RateLimitRules(cfg.RateLimit),
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
		},
		AuditSvc:       auditSvc,
		HTTPMetrics:    recorder,
		MetricsHandler: recorder.Handler(),
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
