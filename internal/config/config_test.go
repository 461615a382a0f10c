package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected openai provider by default, got %s", cfg.LLMProvider)
	}
	if cfg.OpenAIModel != "gpt-3.5-turbo" {
		t.Fatalf("expected default model, got %s", cfg.OpenAIModel)
	}
	if cfg.LLMMaxTokens != 150 {
		t.Fatalf("expected 150 max tokens, got %d", cfg.LLMMaxTokens)
	}
	if cfg.JWTTTL != 30*time.Minute {
		t.Fatalf("expected default jwt ttl, got %s", cfg.JWTTTL)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.IsProduction() {
		t.Fatalf("development config should not be production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "Production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("LLM_PROVIDER", " Bedrock ")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("USE_MEMORY_QUEUE", "false")
	t.Setenv("REMINDER_SCAN_INTERVAL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("HISTORY_MAX_TURNS", "not-a-number")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected normalized provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMTemperature != 0.2 {
		t.Fatalf("expected temperature override, got %v", cfg.LLMTemperature)
	}
	if cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue disabled")
	}
	if cfg.ReminderScanInterval != 30*time.Second {
		t.Fatalf("expected scan interval override, got %s", cfg.ReminderScanInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.HistoryMaxTurns != 20 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.HistoryMaxTurns)
	}
}
