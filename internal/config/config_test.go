package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.MessageStaleAfter != 15*time.Minute {
		t.Fatalf("expected 15m staleness window, got %v", cfg.MessageStaleAfter)
	}
	if cfg.SessionCooldown != 2*time.Second {
		t.Fatalf("expected 2s cooldown, got %v", cfg.SessionCooldown)
	}
	if cfg.ToolingConfidenceMin != 0.7 {
		t.Fatalf("expected 0.7 tooling confidence floor, got %v", cfg.ToolingConfidenceMin)
	}
	if cfg.TrendLookbackDays != 21 {
		t.Fatalf("expected 21 day trend lookback, got %d", cfg.TrendLookbackDays)
	}
	if cfg.AdherenceWindow != 3 {
		t.Fatalf("expected adherence window of 3, got %d", cfg.AdherenceWindow)
	}
	if cfg.SearchTimeout != 15*time.Second {
		t.Fatalf("expected 15s search timeout, got %v", cfg.SearchTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MESSAGE_STALE_AFTER", "5m")
	t.Setenv("TOOLING_CONFIDENCE_MIN", "0.9")
	t.Setenv("TREND_LOOKBACK_DAYS", "14")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg := Load()

	if cfg.MessageStaleAfter != 5*time.Minute {
		t.Fatalf("expected 5m staleness window, got %v", cfg.MessageStaleAfter)
	}
	if cfg.ToolingConfidenceMin != 0.9 {
		t.Fatalf("expected 0.9 confidence floor, got %v", cfg.ToolingConfidenceMin)
	}
	if cfg.TrendLookbackDays != 14 {
		t.Fatalf("expected 14 day lookback, got %d", cfg.TrendLookbackDays)
	}
	if !cfg.UseMemoryQueue {
		t.Fatal("expected memory queue enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://staging.example.com" {
		t.Fatalf("expected trimmed origin list, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("SESSION_COOLDOWN", "not-a-duration")
	t.Setenv("WORKER_COUNT", "many")

	cfg := Load()

	if cfg.SessionCooldown != 2*time.Second {
		t.Fatalf("expected fallback cooldown, got %v", cfg.SessionCooldown)
	}
	if cfg.WorkerCount != 2 {
		t.Fatalf("expected fallback worker count, got %d", cfg.WorkerCount)
	}
}
