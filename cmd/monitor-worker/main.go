package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/brightpath-health/coach-ai-platform/cmd/mainconfig"
	appconfig "github.com/brightpath-health/coach-ai-platform/internal/config"
	"github.com/brightpath-health/coach-ai-platform/internal/events"
	"github.com/brightpath-health/coach-ai-platform/internal/monitoring"
	"github.com/brightpath-health/coach-ai-platform/internal/notify"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.MonitoringQueueURL == "" {
		logger.Error("MONITORING_QUEUE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var notifier monitoring.Notifier
	if cfg.AlertEmailFrom != "" && cfg.AlertEmailTo != "" {
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.AlertEmailFrom,
			FromName:  cfg.AlertEmailName,
		}, logger)
		if sender != nil {
			notifier = notify.NewAlertNotifier(sender, cfg.AlertEmailTo, logger)
		}
	}

	engine := monitoring.NewEngine(monitoring.EngineConfig{
		Scores:    monitoring.NewScoreStore(pool),
		Alerts:    monitoring.NewAlertStore(pool),
		Sessions:  monitoring.NewSessionStore(pool),
		Notifier:  notifier,
		Publisher: events.NewOutboxStore(pool),
		Lookback:  time.Duration(cfg.TrendLookbackDays) * 24 * time.Hour,
		Logger:    logger,
	})

	queue := monitoring.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.MonitoringQueueURL)
	worker := monitoring.NewWorker(queue, engine, cfg.WorkerCount, logger)

	logger.Info("monitor worker started",
		"queue_url", cfg.MonitoringQueueURL,
		"workers", cfg.WorkerCount,
	)
	go worker.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down monitor worker...")
	cancel()

	// Give in-flight sessions a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("monitor worker stopped")
}
