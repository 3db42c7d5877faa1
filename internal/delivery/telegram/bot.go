package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot answers operator commands in the escalation chat.
type Bot struct {
	api         *tgbotapi.BotAPI
	handlers    *Handlers
	pollTimeout int
	logger      *zap.Logger
}

func NewBot(api *tgbotapi.BotAPI, handlers *Handlers, pollTimeout int, logger *zap.Logger) *Bot {
	return &Bot{api: api, handlers: handlers, pollTimeout: pollTimeout, logger: logger}
}

// Start polls for updates until ctx is done or the update channel closes.
func (b *Bot) Start(ctx context.Context) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(config)
	b.logger.Info("operator bot polling", zap.String("username", b.api.Self.UserName), zap.Int("poll_timeout", b.pollTimeout))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("operator bot stopped", zap.Error(ctx.Err()))
			return nil
		case update, ok := <-updates:
			if !ok {
				b.logger.Warn("operator bot update channel closed")
				return nil
			}
			b.logger.Debug("operator bot update", zap.Int("update_id", update.UpdateID))
			b.handlers.HandleUpdate(ctx, b.api, update)
		}
	}
}
