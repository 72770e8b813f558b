// Package notify delivers operator alerts for conditions that need a human:
// exhausted provider quota and persistence failures after model spend.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier sends a short operator-facing message. Implementations must not
// block the pipeline on delivery problems.
type Notifier interface {
	Alert(ctx context.Context, message string)
}

// Nop discards alerts. Used when no alert channel is configured.
type Nop struct{}

func (Nop) Alert(context.Context, string) {}

// Telegram sends alerts to a fixed operator chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zerolog.Logger
}

// NewTelegram creates a Telegram notifier. Returns an error when the token is
// rejected by the API.
func NewTelegram(token string, chatID int64, logger *zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create alert bot: %w", err)
	}

	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// Alert sends the message, logging delivery failures instead of returning
// them. Alerts are advisory; the pipeline outcome is already decided.
func (t *Telegram) Alert(_ context.Context, message string) {
	msg := tgbotapi.NewMessage(t.chatID, message)

	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error().Err(err).Msg("failed to deliver operator alert")
	}
}
