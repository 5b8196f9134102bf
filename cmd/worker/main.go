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
	"gds-payments/internal/adapter/mail"
	"gds-payments/internal/adapter/metrics"
	"gds-payments/internal/adapter/processor/square"
	"gds-payments/internal/adapter/queue"
	pgStorage "gds-payments/internal/adapter/storage/postgres"
	"gds-payments/internal/service"
	"gds-payments/pkg/logger"

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

	log := logger.New("worker", cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Str("queue", cfg.Queue.Name).
		Int("concurrency", cfg.Queue.Concurrency).
		Bool("mail_enabled", cfg.Mail.Enabled).
		Msg("Starting GDS payments worker")

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	redisOpt := queue.RedisConnOpt(cfg.Redis)
	taskClient := asynq.NewClient(redisOpt)
	defer taskClient.Close()

	encSvc, err := service.NewAESEncryptionService(cfg.Vault.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	recorder := metrics.New(cfg.Metrics.Namespace)

	txRepo := pgStorage.NewTransactionRepo(pool)
	vault := service.NewVaultService(pgStorage.NewCredentialRepo(pool), encSvc, pgStorage.NewTransactor(pool), log)
	paymentSvc := service.NewPaymentService(
		txRepo,
		vault,
		square.NewClient(cfg.Square, log),
		queue.NewClient(taskClient, cfg.Queue),
		recorder,
		log,
	)
	notifier := service.NewNotificationService(mail.New(cfg.Mail), log)
	if !cfg.Mail.Enabled {
		log.Warn().Msg("mail delivery disabled, receipt tasks will be dropped")
	}

	handlers := queue.NewHandlers(notifier, paymentSvc, recorder, log)
	srv := queue.NewServer(redisOpt, cfg.Queue, log)

	metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.WorkerPort)
	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           recorder.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", metricsAddr).Msg("metrics listener started")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics listener failed")
		}
	}()

	if err := srv.Start(handlers.Mux()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start task server")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down worker...")

	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics listener forced to shutdown")
	}

	log.Info().Msg("Worker exited")
}
