package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alertavivo/relay/internal/domain"
	"github.com/alertavivo/relay/internal/infra/metrics"
	"go.uber.org/zap"
)

// repeatLookback is how far back escalations count earlier alerts from the
// same sender.
const repeatLookback = time.Hour

type Escalator interface {
	Escalate(ctx context.Context, text string) error
}

type AlertPublisher interface {
	PublishAlert(alert domain.Alert)
}

type Outcome string

const (
	OutcomeIgnored Outcome = metrics.OutcomeIgnored
	OutcomeNoMatch Outcome = metrics.OutcomeNoMatch
	OutcomeAlert   Outcome = metrics.OutcomeAlert
)

type IntakeResult struct {
	Outcome    Outcome
	Keyword    string
	Alert      *domain.Alert
	Replied    bool
	Suppressed bool
}

type IntakeUsecase struct {
	alerts        domain.AlertRepository
	sender        domain.MessageSender
	suppressor    *Suppressor
	escalator     Escalator
	publisher     AlertPublisher
	listenBaseURL string
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewIntakeUsecase wires the pipeline. escalator and publisher may be nil.
func NewIntakeUsecase(
	alerts domain.AlertRepository,
	sender domain.MessageSender,
	suppressor *Suppressor,
	escalator Escalator,
	publisher AlertPublisher,
	listenBaseURL string,
	m *metrics.Metrics,
	logger *zap.Logger,
) *IntakeUsecase {
	return &IntakeUsecase{
		alerts:        alerts,
		sender:        sender,
		suppressor:    suppressor,
		escalator:     escalator,
		publisher:     publisher,
		listenBaseURL: listenBaseURL,
		metrics:       m,
		logger:        logger,
	}
}

// Handle runs one webhook delivery through keyword detection. Store and
// reply failures do not stop the pipeline; they are joined into the
// returned error after every side effect has been attempted. The emergency
// reply is always attempted before the live feed and the operator chat.
func (u *IntakeUsecase) Handle(ctx context.Context, payload []byte) (IntakeResult, error) {
	msg, ok := ExtractMessage(payload)
	if !ok || strings.TrimSpace(msg.From) == "" {
		u.metrics.WebhookDeliveries.WithLabelValues(string(OutcomeIgnored)).Inc()
		u.logger.Debug("delivery without message ignored")
		return IntakeResult{Outcome: OutcomeIgnored}, nil
	}

	text := strings.ToLower(msg.Text)
	keyword, matched := MatchKeyword(text)
	if !matched {
		u.metrics.WebhookDeliveries.WithLabelValues(string(OutcomeNoMatch)).Inc()
		u.logger.Debug("message without keyword", zap.String("sender", msg.From))
		return IntakeResult{Outcome: OutcomeNoMatch}, nil
	}

	u.metrics.WebhookDeliveries.WithLabelValues(string(OutcomeAlert)).Inc()
	u.logger.Info("keyword matched", zap.String("sender", msg.From), zap.String("keyword", keyword))
	result := IntakeResult{Outcome: OutcomeAlert, Keyword: keyword}

	alert := &domain.Alert{Sender: msg.From, Message: text, Status: domain.StatusActive}
	storeErr := u.alerts.Create(ctx, alert)
	if storeErr != nil {
		u.metrics.StoreFailures.Inc()
		u.logger.Error("failed to record alert", zap.String("sender", msg.From), zap.Error(storeErr))
		storeErr = fmt.Errorf("record alert: %w", storeErr)
	} else {
		u.metrics.AlertsRecorded.Inc()
		u.logger.Info("alert recorded", zap.String("sender", msg.From), zap.Uint("alert_id", alert.ID))
		result.Alert = alert
	}

	// The sender is answered before any operator notice.
	replyErr := u.reply(ctx, msg.From, &result)
	if result.Alert != nil {
		u.announce(ctx, *result.Alert)
	}
	return result, errors.Join(storeErr, replyErr)
}

func (u *IntakeUsecase) reply(ctx context.Context, sender string, result *IntakeResult) error {
	if !u.suppressor.Reserve(sender) {
		u.metrics.RepliesSuppressed.Inc()
		u.logger.Info("emergency reply suppressed", zap.String("sender", sender))
		result.Suppressed = true
		return nil
	}

	if err := u.sender.SendText(ctx, sender, EmergencyReply(u.listenBaseURL, sender)); err != nil {
		u.suppressor.Release(sender)
		u.metrics.NotifyFailures.Inc()
		u.logger.Error("failed to send emergency reply", zap.String("sender", sender), zap.Error(err))
		u.escalate(ctx, fmt.Sprintf(
			"⚠️ Falha ao enviar resposta de emergência para %s.\nContate o remetente: %s\nErro: %v",
			sender, ListenURL(u.listenBaseURL, sender), err,
		))
		return fmt.Errorf("send emergency reply: %w", err)
	}

	u.metrics.RepliesSent.Inc()
	result.Replied = true
	return nil
}

func (u *IntakeUsecase) announce(ctx context.Context, alert domain.Alert) {
	if u.publisher != nil {
		u.publisher.PublishAlert(alert)
	}
	if u.escalator == nil {
		return
	}

	repeats, err := u.alerts.CountBySenderSince(ctx, alert.Sender, alert.CreatedAt.Add(-repeatLookback))
	if err != nil {
		u.logger.Warn("failed to count recent alerts", zap.String("sender", alert.Sender), zap.Error(err))
		repeats = 1
	}
	u.escalate(ctx, fmt.Sprintf(
		"🚨 Alerta #%d\nTelefone: %s\nMensagem: %s\nAlertas na última hora: %d\nEscuta: %s",
		alert.ID, alert.Sender, alert.Message, repeats, ListenURL(u.listenBaseURL, alert.Sender),
	))
}

func (u *IntakeUsecase) escalate(ctx context.Context, text string) {
	if u.escalator == nil {
		return
	}
	if err := u.escalator.Escalate(ctx, text); err != nil {
		u.logger.Warn("operator escalation failed", zap.Error(err))
	}
}
