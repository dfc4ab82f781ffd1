package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brightpath-health/coach-ai-platform/cmd/mainconfig"
	"github.com/brightpath-health/coach-ai-platform/internal/api/router"
	"github.com/brightpath-health/coach-ai-platform/internal/careplan"
	"github.com/brightpath-health/coach-ai-platform/internal/coach"
	appconfig "github.com/brightpath-health/coach-ai-platform/internal/config"
	"github.com/brightpath-health/coach-ai-platform/internal/events"
	"github.com/brightpath-health/coach-ai-platform/internal/milestones"
	"github.com/brightpath-health/coach-ai-platform/internal/monitoring"
	"github.com/brightpath-health/coach-ai-platform/internal/notify"
	"github.com/brightpath-health/coach-ai-platform/internal/observability/metrics"
	"github.com/brightpath-health/coach-ai-platform/internal/toolproto"
	"github.com/brightpath-health/coach-ai-platform/internal/verify"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting coach-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := connectRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Model clients. Bedrock is primary; Gemini serves as provider fallback
	// and as the cross-model validator.
	bedrockLLM := coach.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	var primaryLLM coach.LLMClient = bedrockLLM
	var crossLLM coach.LLMClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := coach.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to init gemini client", "error", err)
			os.Exit(1)
		}
		primaryLLM = coach.NewFallbackLLMClient(bedrockLLM, gemini, logger)
		crossLLM = gemini
	}

	var search coach.SearchProvider
	if cfg.SearchAPIKey != "" {
		search = coach.NewHTTPSearchClient(cfg.SearchAPIKey, cfg.SearchBaseURL, cfg.SearchTimeout)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Stores.
	scoreStore := monitoring.NewScoreStore(pool)
	alertStore := monitoring.NewAlertStore(pool)
	sessionStore := monitoring.NewSessionStore(pool)
	outbox := events.NewOutboxStore(pool)
	processed := events.NewProcessedStore(pool)
	careplanStore := careplan.NewStore(pool)
	milestoneStore := milestones.NewStore(pool)

	// Coaching pipeline.
	supervisor := coach.NewSupervisor(coach.SupervisorConfig{
		Parser:     coach.NewQueryParser(primaryLLM, cfg.BedrockModelID, logger),
		Router:     coach.NewToolRouter(primaryLLM, cfg.BedrockModelID, search, cfg.ToolingConfidenceMin, logger),
		Responder:  coach.NewPrimaryResponder(primaryLLM, cfg.BedrockModelID, float32(cfg.BedrockTemperature)),
		Validator:  coach.NewResponseValidator(crossLLM, cfg.GeminiModelID, logger),
		Source:     careplan.NewContextProvider(careplanStore, scoreStore),
		Publisher:  outbox,
		Turns:      careplanStore,
		Cooldown:   coach.NewRedisCooldown(redisClient, cfg.SessionCooldown),
		Metrics:    m,
		Logger:     logger,
		StaleAfter: cfg.MessageStaleAfter,
	})
	analyzer := coach.NewSelfScoreAnalyzer(primaryLLM, cfg.BedrockModelID, scoreStore, logger).
		WithPublisher(outbox)
	coachHandler := coach.NewHandler(supervisor, analyzer, logger)

	// Monitoring queue plus handler. Scheduled runs execute in the worker
	// binary; with the memory queue an inline worker is started so dev
	// sessions still execute.
	sender := buildEmailSender(cfg, sesv2.NewFromConfig(awsCfg), logger)
	var notifier monitoring.Notifier
	if sender != nil && cfg.AlertEmailTo != "" {
		notifier = notify.NewAlertNotifier(sender, cfg.AlertEmailTo, logger)
	}
	engine := monitoring.NewEngine(monitoring.EngineConfig{
		Scores:    scoreStore,
		Alerts:    alertStore,
		Sessions:  sessionStore,
		Notifier:  notifier,
		Publisher: outbox,
		Lookback:  time.Duration(cfg.TrendLookbackDays) * 24 * time.Hour,
		Metrics:   m,
		Logger:    logger,
	})
	var monitoringHandler *monitoring.Handler
	if cfg.UseMemoryQueue || cfg.MonitoringQueueURL == "" {
		memQueue := monitoring.NewMemoryQueue(64)
		monitoringHandler = monitoring.NewHandler(memQueue, alertStore, logger)
		go monitoring.NewWorker(memQueue, engine, cfg.WorkerCount, logger).Run(ctx)
	} else {
		sqsQueue := monitoring.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.MonitoringQueueURL)
		monitoringHandler = monitoring.NewHandler(sqsQueue, alertStore, logger)
	}

	// Outbox delivery into the milestones consumer.
	consumer := milestones.NewConsumer(milestoneStore, processed, logger)
	deliverer := events.NewDeliverer(outbox, consumer, logger)
	go deliverer.Start(ctx)

	verifyHandler := verify.NewHandler(verify.NewStore(redisClient, cfg.VerifyCodeTTL), sender, logger)

	tools := toolproto.NewServer("brightpath-coach", "1.0.0", logger)
	registerTools(tools, scoreStore, alertStore)

	r := router.New(&router.Config{
		Logger:             logger,
		CoachHandler:       coachHandler,
		MonitoringHandler:  monitoringHandler,
		VerifyHandler:      verifyHandler,
		ToolServer:         tools,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CareTeamSecret:     cfg.CareTeamJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	return pool
}

func connectRedis(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// buildEmailSender picks the configured provider. A nil return disables
// email-based features (critical alert escalation, verification codes).
func buildEmailSender(cfg *appconfig.Config, sesClient *sesv2.Client, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.AlertEmailFrom,
			FromName:  cfg.AlertEmailName,
		}, logger); sender != nil {
			return sender
		}
		return nil
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		if sender := notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.AlertEmailFrom,
			FromName:  cfg.AlertEmailName,
		}, logger); sender != nil {
			return sender
		}
		return nil
	}
}

// registerTools exposes read-only wellness queries over the tool protocol.
func registerTools(server *toolproto.Server, scores *monitoring.ScoreStore, alerts *monitoring.AlertStore) {
	server.RegisterTool(toolproto.Tool{
		Name:        "latest_scores",
		Description: "Latest recorded value for each self-score metric of a subject",
		Schema: toolproto.ObjectSchema(map[string]toolproto.Property{
			"subject_id": {Type: "string", Description: "Subject identifier"},
		}, "subject_id"),
		Call: func(ctx context.Context, args map[string]any) (string, error) {
			subjectID, _ := args["subject_id"].(string)
			latest, err := scores.LatestMetrics(ctx, subjectID)
			if err != nil {
				return "", err
			}
			if len(latest) == 0 {
				return "No scores recorded yet.", nil
			}
			names := make([]string, 0, len(latest))
			for name := range latest {
				names = append(names, name)
			}
			sort.Strings(names)
			var b strings.Builder
			for _, name := range names {
				fmt.Fprintf(&b, "%s: %.1f\n", name, latest[name])
			}
			return b.String(), nil
		},
	})

	server.RegisterTool(toolproto.Tool{
		Name:        "active_alerts",
		Description: "Unacknowledged monitoring alerts for a subject, newest first",
		Schema: toolproto.ObjectSchema(map[string]toolproto.Property{
			"subject_id": {Type: "string", Description: "Subject identifier"},
		}, "subject_id"),
		Call: func(ctx context.Context, args map[string]any) (string, error) {
			subjectID, _ := args["subject_id"].(string)
			active, err := alerts.ActiveAlerts(ctx, subjectID)
			if err != nil {
				return "", err
			}
			if len(active) == 0 {
				return "No active alerts.", nil
			}
			var b strings.Builder
			for _, alert := range active {
				fmt.Fprintf(&b, "[%s] %s: %s\n", alert.Severity, alert.Rule, alert.Message)
			}
			return b.String(), nil
		},
	})

	server.RegisterResource(toolproto.Resource{
		URI:         "coach://monitoring/rules",
		Name:        "monitoring-rules",
		Description: "Rule names and severities evaluated by the monitoring engine",
		MimeType:    "text/plain",
		Read: func(ctx context.Context) (string, error) {
			var b strings.Builder
			for _, rule := range monitoring.DefaultRules() {
				fmt.Fprintf(&b, "%s (%s, %s)\n", rule.Name, rule.Severity, rule.Cadence)
			}
			return b.String(), nil
		},
	})
}
