package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/alertavivo/relay/internal/usecase"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Handlers struct {
	reportUC      *usecase.ReportUsecase
	operatorChat  int64
	location      *time.Location
	listenBaseURL string
	logger        *zap.Logger
}

func NewHandlers(reportUC *usecase.ReportUsecase, operatorChat int64, location *time.Location, listenBaseURL string, logger *zap.Logger) *Handlers {
	return &Handlers{
		reportUC:      reportUC,
		operatorChat:  operatorChat,
		location:      location,
		listenBaseURL: listenBaseURL,
		logger:        logger,
	}
}

func (h *Handlers) HandleUpdate(ctx context.Context, api *tgbotapi.BotAPI, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	chatID := update.Message.Chat.ID
	if chatID != h.operatorChat {
		h.logger.Warn("telegram command from unknown chat", zap.Int64("chat_id", chatID))
		return
	}
	h.handleCommand(ctx, api, update)
}

func (h *Handlers) handleCommand(ctx context.Context, api *tgbotapi.BotAPI, update tgbotapi.Update) {
	command := update.Message.Command()
	args := update.Message.CommandArguments()
	chatID := update.Message.Chat.ID

	h.logger.Info("telegram command received", zap.Int64("chat_id", chatID), zap.String("command", command), zap.String("args", args))

	switch command {
	case "start", "ajuda", "help":
		h.reply(api, chatID, HelpText)
	case "alertas":
		alerts, err := h.reportUC.Recent(ctx)
		if err != nil {
			h.logger.Warn("alertas command failed", zap.Error(err))
			h.reply(api, chatID, "Erro ao carregar alertas.")
			return
		}
		h.reply(api, chatID, formatAlertList(alerts, h.location))
	case "alerta":
		alertID, err := ParseAlertID(args)
		if err != nil {
			h.reply(api, chatID, "Uso: /alerta <id>")
			return
		}
		alert, err := h.reportUC.Get(ctx, alertID)
		if err != nil {
			if errors.Is(err, usecase.ErrAlertNotFound) {
				h.reply(api, chatID, "Alerta não encontrado.")
				return
			}
			h.logger.Warn("alerta command failed", zap.Uint("alert_id", alertID), zap.Error(err))
			h.reply(api, chatID, "Erro ao carregar alerta.")
			return
		}
		h.reply(api, chatID, formatAlertDetail(*alert, h.location, usecase.ListenURL(h.listenBaseURL, alert.Sender)))
	default:
		h.reply(api, chatID, "Comando desconhecido.\n\n"+HelpText)
	}
}

func (h *Handlers) reply(api *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := api.Send(msg); err != nil {
		h.logger.Warn("failed to send message", zap.Error(err))
	}
}
