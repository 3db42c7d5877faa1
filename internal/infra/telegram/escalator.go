package telegram

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Escalator forwards alert notices to an operator chat.
type Escalator struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewAPI connects to the Bot API with a bounded HTTP client. Send ignores
// contexts, so the client timeout is what caps a hung request.
func NewAPI(token string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	return newAPI(token, tgbotapi.APIEndpoint, timeout)
}

func newAPI(token, endpoint string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
}

func NewEscalator(api *tgbotapi.BotAPI, chatID int64, logger *zap.Logger) *Escalator {
	return &Escalator{api: api, chatID: chatID, logger: logger}
}

func (e *Escalator) Escalate(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.logger.Info("telegram escalate send", zap.Int64("chat_id", e.chatID))
	msg := tgbotapi.NewMessage(e.chatID, text)
	msg.DisableWebPagePreview = true
	_, err := e.api.Send(msg)
	if err != nil {
		e.logger.Warn("failed to escalate", zap.Int64("chat_id", e.chatID), zap.Error(err))
	}
	return err
}
