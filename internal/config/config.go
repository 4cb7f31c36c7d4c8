package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OpenAIKey           string
	OpenAIBaseURL       string
	Model               string
	MaxCompletionTokens int
	AssistantPrompt     string

	ContextLimit int
	ContextTTL   time.Duration

	AITimeout       time.Duration
	AIRetryBackoff  time.Duration
	AIEnrichMatches bool

	HTTPAddr       string
	RateLimitRPS   int
	RateLimitBurst int

	EnableDB    bool
	DatabaseURL string

	TelegramToken  string
	AdminUserIDs   []int64
	AllowedUserIDs []int64
	AllowedChatIDs []int64
}

// Load reads path as a .env file (variables already set in the environment
// win) and builds the configuration from the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		log.Printf("could not read %s: %v", path, err)
	}

	cfg := Config{
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		Model:               getenvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		MaxCompletionTokens: getenvIntDefault("MAX_TOKENS", 600),
		AssistantPrompt:     os.Getenv("ASSISTANT_PROMPT"),
		ContextLimit:        getenvIntDefault("CONTEXT_MESSAGE_LIMIT", 20),
		ContextTTL:          time.Duration(getenvIntDefault("CONTEXT_TTL_MINUTES", 120)) * time.Minute,
		AITimeout:           time.Duration(getenvIntDefault("AI_TIMEOUT_SECONDS", 8)) * time.Second,
		AIRetryBackoff:      time.Duration(getenvIntDefault("AI_RETRY_BACKOFF_MS", 400)) * time.Millisecond,
		AIEnrichMatches:     getenvBoolDefault("AI_ENRICH_MATCHES", false),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		RateLimitRPS:        getenvIntDefault("RATE_LIMIT_RPS", 5),
		RateLimitBurst:      getenvIntDefault("RATE_LIMIT_BURST", 10),
		EnableDB:            getenvBoolDefault("ENABLE_DB", false),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	cfg.AdminUserIDs = parseIDs(os.Getenv("ADMIN_USER_IDS"))
	cfg.AllowedUserIDs = parseIDs(os.Getenv("ALLOWED_TELEGRAM_USER_IDS"))
	cfg.AllowedChatIDs = parseIDs(os.Getenv("ALLOWED_TELEGRAM_CHAT_IDS"))

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.EnableDB && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required when ENABLE_DB=true"))
	}
	if c.ContextLimit <= 0 {
		errs = append(errs, errors.New("CONTEXT_MESSAGE_LIMIT must be positive"))
	}
	if c.ContextTTL <= 0 {
		errs = append(errs, errors.New("CONTEXT_TTL_MINUTES must be positive"))
	}
	if c.AITimeout <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT_SECONDS must be positive"))
	}
	if c.AIRetryBackoff < 0 {
		errs = append(errs, errors.New("AI_RETRY_BACKOFF_MS must not be negative"))
	}
	return errors.Join(errs...)
}

// AIEnabled reports whether a generative provider is configured.
func (c Config) AIEnabled() bool {
	return c.OpenAIKey != ""
}

func parseIDs(raw string) []int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			log.Printf("skipping user id %q: %v", p, err)
			continue
		}
		ids = append(ids, v)
	}
	return ids
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid int for %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid bool for %s=%q, using default %t", key, v, def)
		return def
	}
	return b
}
