package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"triage-assistant/internal/adapter/httpapi"
	"triage-assistant/internal/adapter/memory"
	"triage-assistant/internal/adapter/openai"
	"triage-assistant/internal/adapter/postgres"
	"triage-assistant/internal/adapter/telegram"
	"triage-assistant/internal/config"
	"triage-assistant/internal/domain"
	"triage-assistant/internal/knowledge"
	"triage-assistant/internal/usecase/chat"
	"triage-assistant/internal/usecase/conversation"
	"triage-assistant/internal/usecase/triage"
)

const sweepInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	kb, err := knowledge.Load()
	if err != nil {
		log.Fatalf("failed to load knowledge base: %v", err)
	}
	log.Printf("knowledge base loaded: %d entries", kb.Len())

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	store, closeStore := openStore(ctx, cfg, &wg)
	defer closeStore()

	var client chat.Client
	if cfg.AIEnabled() {
		client = openai.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	} else {
		log.Printf("OPENAI_API_KEY not set, generative fallback disabled")
	}

	detector := triage.NewDetector(triage.DefaultPhraseGroups)
	log.Printf("emergency detector: %d phrase groups", len(detector.Groups()))

	mem := conversation.NewMemory(store, cfg.ContextLimit)
	log.Printf("conversation memory keeps %d turns per session", mem.MaxTurns())

	triageSvc := triage.NewService(
		detector,
		triage.NewMatcher(kb),
		mem,
		chat.NewService(client, cfg),
		triage.Options{EnrichMatches: cfg.AIEnrichMatches},
	)

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg, triageSvc)
		if err != nil {
			log.Fatalf("failed to init telegram bot: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("telegram bot stopped: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.NewHandler(triageSvc, kb, store), httpapi.Options{
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.AITimeout*3 + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
			cancel()
		}
	}()
	log.Printf("server listening on %s", cfg.HTTPAddr)

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	wg.Wait()
}

// openStore picks Postgres when ENABLE_DB is set and the in-process store
// otherwise, and starts the matching expiry sweeper.
func openStore(ctx context.Context, cfg config.Config, wg *sync.WaitGroup) (domain.SessionStore, func()) {
	if !cfg.EnableDB {
		store := memory.NewStore(cfg.ContextTTL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.RunSweeper(ctx, sweepInterval)
		}()
		return store, func() {}
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		log.Fatalf("failed to migrate database: %v", err)
	}
	log.Printf("session store: postgres")

	store := postgres.NewStore(pool, cfg.ContextTTL)
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := store.Sweep(ctx); err != nil {
					log.Printf("sweep sessions: %v", err)
				} else if n > 0 {
					log.Printf("swept %d expired sessions", n)
				}
			}
		}
	}()
	return store, pool.Close
}
