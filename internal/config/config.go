package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Language model providers. Bedrock carries the primary responder and the
	// intent classifier; Gemini carries the cross-model validator and acts as
	// the provider fallback.
	BedrockModelID     string
	BedrockTemperature float64
	GeminiAPIKey       string
	GeminiModelID      string
	LLMTimeout         time.Duration

	// Location search provider. An empty key disables the location tool
	// entirely (configuration defect, not an operational fault).
	SearchAPIKey  string
	SearchBaseURL string
	SearchTimeout time.Duration

	// Policy values. These thresholds are clinical/product decisions, so they
	// stay overridable rather than hard-coded at call sites.
	MessageStaleAfter    time.Duration
	SessionCooldown      time.Duration
	ToolingConfidenceMin float64
	TrendLookbackDays    int
	AdherenceWindow      int
	ScoreWindow          int

	// Monitoring worker.
	MonitoringQueueURL string
	UseMemoryQueue     bool
	WorkerCount        int

	// Clinician alert notifications. EmailProvider selects the sender
	// implementation: "ses", "sendgrid", or "stub".
	EmailProvider  string
	SendGridAPIKey string
	AlertEmailFrom string
	AlertEmailName string
	AlertEmailTo   string

	// Care-team API access.
	CareTeamJWTSecret string

	// Channel verification codes.
	VerifyCodeTTL time.Duration

	// HTTP surface.
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "ap-southeast-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20240620-v1:0"),
		BedrockTemperature: getEnvAsFloat("BEDROCK_TEMPERATURE", 0.7),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:      getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMTimeout:         getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),

		SearchAPIKey:  getEnv("SEARCH_API_KEY", ""),
		SearchBaseURL: getEnv("SEARCH_BASE_URL", "https://places.googleapis.com/v1/places:searchText"),
		SearchTimeout: getEnvAsDuration("SEARCH_TIMEOUT", 15*time.Second),

		MessageStaleAfter:    getEnvAsDuration("MESSAGE_STALE_AFTER", 15*time.Minute),
		SessionCooldown:      getEnvAsDuration("SESSION_COOLDOWN", 2*time.Second),
		ToolingConfidenceMin: getEnvAsFloat("TOOLING_CONFIDENCE_MIN", 0.7),
		TrendLookbackDays:    getEnvAsInt("TREND_LOOKBACK_DAYS", 21),
		AdherenceWindow:      getEnvAsInt("ADHERENCE_WINDOW", 3),
		ScoreWindow:          getEnvAsInt("SCORE_WINDOW", 30),

		MonitoringQueueURL: getEnv("MONITORING_QUEUE_URL", ""),
		UseMemoryQueue:     getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:        getEnvAsInt("WORKER_COUNT", 2),

		EmailProvider:  getEnv("EMAIL_PROVIDER", "ses"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		AlertEmailFrom: getEnv("ALERT_EMAIL_FROM", ""),
		AlertEmailName: getEnv("ALERT_EMAIL_NAME", "BrightPath Care Team"),
		AlertEmailTo:   getEnv("ALERT_EMAIL_TO", ""),

		CareTeamJWTSecret: getEnv("CARE_TEAM_JWT_SECRET", ""),

		VerifyCodeTTL: getEnvAsDuration("VERIFY_CODE_TTL", 10*time.Minute),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsSlice(key string, fallback []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
