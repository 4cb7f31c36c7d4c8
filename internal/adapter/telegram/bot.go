package telegram

import (
	"context"
	"log"
	"slices"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"triage-assistant/internal/config"
	"triage-assistant/internal/domain"
)

const chunkSize = 2048

type TriageService interface {
	Submit(ctx context.Context, sessionKey, text string) domain.Response
	Reset(ctx context.Context, sessionKey string) (domain.Response, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api     sender
	updates func(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	stop    func()
	cfg     config.Config
	triage  TriageService
}

func NewBot(cfg config.Config, triageSvc TriageService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	log.Printf("telegram: authorised as @%s", api.Self.UserName)

	return &Bot{
		api:     api,
		updates: api.GetUpdatesChan,
		stop:    api.StopReceivingUpdates,
		cfg:     cfg,
		triage:  triageSvc,
	}, nil
}

// Run polls for updates until ctx is done. It returns only after every
// in-flight message has been answered.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.updates(u)
	defer b.stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !isAllowed(msg.From.ID, msg.Chat.ID, b.cfg) {
		b.sendText(msg.Chat.ID, msg.MessageID, "Accès refusé.")
		return
	}

	key := sessionKey(msg.Chat.ID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "reset":
			resp, err := b.triage.Reset(ctx, key)
			if err != nil {
				log.Printf("telegram: reset %s: %v", key, err)
				b.sendText(msg.Chat.ID, msg.MessageID, "Impossible de réinitialiser la conversation, réessayez plus tard.")
				return
			}
			b.sendText(msg.Chat.ID, msg.MessageID, formatReply(resp))
			return
		}
	}

	b.sendChatAction(msg.Chat.ID)
	resp := b.triage.Submit(ctx, key, msg.Text)
	b.sendText(msg.Chat.ID, msg.MessageID, formatReply(resp))
}

func (b *Bot) sendText(chatID int64, replyTo int, text string) {
	chunks := splitText(text, chunkSize)
	for idx, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if idx == 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("failed to send reply: %v", err)
		}
	}
}

func (b *Bot) sendChatAction(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Printf("failed to send chat action: %v", err)
	}
}

func sessionKey(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func formatReply(resp domain.Response) string {
	return levelBadge(resp.Level) + " " + resp.Message
}

func levelBadge(level domain.Level) string {
	switch level {
	case domain.LevelRed:
		return "🔴"
	case domain.LevelOrange:
		return "🟠"
	case domain.LevelGreen:
		return "🟢"
	default:
		return "ℹ️"
	}
}

// isAllowed lets admins through everywhere; otherwise each non-empty
// allow-list must contain the user or chat.
func isAllowed(userID, chatID int64, cfg config.Config) bool {
	if slices.Contains(cfg.AdminUserIDs, userID) {
		return true
	}
	if len(cfg.AllowedUserIDs) > 0 && !slices.Contains(cfg.AllowedUserIDs, userID) {
		return false
	}
	if len(cfg.AllowedChatIDs) > 0 && !slices.Contains(cfg.AllowedChatIDs, chatID) {
		return false
	}
	return true
}

func splitText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/chunkSize+1)
	for start := 0; start < len(runes); start += chunkSize {
		end := min(start+chunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
