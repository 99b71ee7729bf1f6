package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// TelegramNotifier sends alerts to a Telegram chat.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramNotifier creates a Telegram notifier
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chatID: chatID}, nil
}

// Notify sends the alert text to the configured chat.
func (n *TelegramNotifier) Notify(ctx context.Context, msg *models.Message) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   summary(msg),
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
