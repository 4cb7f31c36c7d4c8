package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var configKeys = []string{
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "MAX_TOKENS", "ASSISTANT_PROMPT",
	"CONTEXT_MESSAGE_LIMIT", "CONTEXT_TTL_MINUTES", "AI_TIMEOUT_SECONDS", "AI_RETRY_BACKOFF_MS",
	"AI_ENRICH_MATCHES", "HTTP_ADDR", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "ENABLE_DB",
	"DATABASE_URL", "TELEGRAM_BOT_TOKEN", "ADMIN_USER_IDS", "ALLOWED_TELEGRAM_USER_IDS",
	"ALLOWED_TELEGRAM_CHAT_IDS",
}

// clearEnv blanks every key Load reads; an empty value counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ContextLimit != 20 {
		t.Errorf("expected context limit 20, got %d", cfg.ContextLimit)
	}
	if cfg.ContextTTL != 120*time.Minute {
		t.Errorf("expected ttl 120m, got %s", cfg.ContextTTL)
	}
	if cfg.AITimeout != 8*time.Second {
		t.Errorf("expected ai timeout 8s, got %s", cfg.AITimeout)
	}
	if cfg.AIRetryBackoff != 400*time.Millisecond {
		t.Errorf("expected backoff 400ms, got %s", cfg.AIRetryBackoff)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.AIEnabled() {
		t.Error("expected AI disabled without a key")
	}
	if cfg.EnableDB {
		t.Error("expected database disabled by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_TIMEOUT_SECONDS", "3")
	t.Setenv("AI_ENRICH_MATCHES", "true")
	t.Setenv("CONTEXT_MESSAGE_LIMIT", "10")
	t.Setenv("ADMIN_USER_IDS", "1, 2,bad,3")

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.AIEnabled() {
		t.Error("expected AI enabled")
	}
	if cfg.AITimeout != 3*time.Second {
		t.Errorf("expected 3s, got %s", cfg.AITimeout)
	}
	if !cfg.AIEnrichMatches {
		t.Error("expected enrichment enabled")
	}
	if cfg.ContextLimit != 10 {
		t.Errorf("expected 10, got %d", cfg.ContextLimit)
	}
	if want := []int64{1, 2, 3}; !reflect.DeepEqual(cfg.AdminUserIDs, want) {
		t.Errorf("expected %v, got %v", want, cfg.AdminUserIDs)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_TOKENS", "lots")
	t.Setenv("AI_ENRICH_MATCHES", "maybe")

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxCompletionTokens != 600 {
		t.Errorf("expected default tokens, got %d", cfg.MaxCompletionTokens)
	}
	if cfg.AIEnrichMatches {
		t.Error("expected enrichment to stay disabled")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv only fills variables that are absent, not empty ones.
	os.Unsetenv("HTTP_ADDR")
	t.Setenv("OPENAI_MODEL", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	data := "HTTP_ADDR=:9090\nOPENAI_MODEL=from-file\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("expected address from file, got %s", cfg.HTTPAddr)
	}
	if cfg.Model != "from-env" {
		t.Errorf("expected environment to win, got %s", cfg.Model)
	}
}

func TestValidate(t *testing.T) {
	base := Config{ContextLimit: 20, ContextTTL: time.Hour, AITimeout: time.Second}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"db without url", func(c *Config) { c.EnableDB = true }, true},
		{"db with url", func(c *Config) { c.EnableDB = true; c.DatabaseURL = "postgres://x" }, false},
		{"zero limit", func(c *Config) { c.ContextLimit = 0 }, true},
		{"zero ttl", func(c *Config) { c.ContextTTL = 0 }, true},
		{"zero timeout", func(c *Config) { c.AITimeout = 0 }, true},
		{"negative backoff", func(c *Config) { c.AIRetryBackoff = -time.Millisecond }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
