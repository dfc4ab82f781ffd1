package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brightpath-health/coach-ai-platform/internal/coach"
	httpmiddleware "github.com/brightpath-health/coach-ai-platform/internal/http/middleware"
	"github.com/brightpath-health/coach-ai-platform/internal/monitoring"
	"github.com/brightpath-health/coach-ai-platform/internal/verify"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger            *logging.Logger
	CoachHandler      *coach.Handler
	MonitoringHandler *monitoring.Handler
	VerifyHandler     *verify.Handler
	ToolServer        http.Handler
	MetricsHandler    http.Handler

	// CareTeamSecret guards the monitoring surface. When empty the
	// monitoring routes are not mounted at all.
	CareTeamSecret string

	CORSAllowedOrigins []string

	// Patient-facing rate limit, requests per second per client IP.
	// Zero disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Patient-facing coaching surface.
	if cfg.CoachHandler != nil {
		r.Route("/coach", func(r chi.Router) {
			if cfg.RateLimitPerSecond > 0 {
				r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
			}
			r.Post("/query", cfg.CoachHandler.HandleQuery)
			r.Post("/self-scores", cfg.CoachHandler.HandleSelfScores)
		})
	}

	// Care-team surface, JWT protected.
	if cfg.MonitoringHandler != nil && cfg.CareTeamSecret != "" {
		r.Route("/monitoring", func(r chi.Router) {
			r.Use(httpmiddleware.CareTeamJWT(cfg.CareTeamSecret))
			r.Post("/sessions", cfg.MonitoringHandler.HandleEnqueueSession)
			r.Get("/alerts/{subjectID}", cfg.MonitoringHandler.HandleListAlerts)
			r.Post("/alerts/{alertID}/ack", cfg.MonitoringHandler.HandleAcknowledgeAlert)
		})
	}

	if cfg.ToolServer != nil {
		r.Post("/tools/rpc", cfg.ToolServer.ServeHTTP)
	}

	if cfg.VerifyHandler != nil {
		r.Route("/verify", func(r chi.Router) {
			r.Post("/codes", cfg.VerifyHandler.HandleIssue)
			r.Post("/codes/check", cfg.VerifyHandler.HandleCheck)
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
