// Package notify delivers scan digests and renewal reminders over
// Telegram and keeps the alert configuration on disk.
package notify

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subtrack/internal/log"
)

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token string) (TelegramBot, error)

// defaultBotFactory creates a real telegram bot
var defaultBotFactory BotFactory = func(token string) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// Notifier sends Markdown messages to a single Telegram chat.
type Notifier struct {
	bot    TelegramBot
	chatID int64
	logger *log.Logger
}

// NewNotifier builds a notifier from a bot token and chat id.
func NewNotifier(token, chatID string, logger *log.Logger) (*Notifier, error) {
	return newNotifierWithFactory(token, chatID, logger, defaultBotFactory)
}

func newNotifierWithFactory(token, chatID string, logger *log.Logger, factory BotFactory) (*Notifier, error) {
	token = strings.TrimSpace(token)
	chatID = strings.TrimSpace(chatID)
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	bot, err := factory(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Notifier{
		bot:    bot,
		chatID: id,
		logger: logger.WithComponent(log.ComponentNotify),
	}, nil
}

// Send delivers one Markdown-formatted message.
func (n *Notifier) Send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
