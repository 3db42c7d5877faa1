package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alertavivo/relay/internal/infra/metrics"
	"github.com/alertavivo/relay/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

//go:embed templates/*.html
var templateFS embed.FS

var adminTemplate = template.Must(template.ParseFS(templateFS, "templates/admin.html"))

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type HealthCheck func(ctx context.Context) error

type Handlers struct {
	intake        *usecase.IntakeUsecase
	report        *usecase.ReportUsecase
	hub           *Hub
	health        HealthCheck
	metrics       *metrics.Metrics
	verifyToken   string
	intakeTimeout time.Duration
	location      *time.Location
	logger        *zap.Logger
}

func NewHandlers(
	intake *usecase.IntakeUsecase,
	report *usecase.ReportUsecase,
	hub *Hub,
	health HealthCheck,
	m *metrics.Metrics,
	verifyToken string,
	intakeTimeout time.Duration,
	location *time.Location,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		intake:        intake,
		report:        report,
		hub:           hub,
		health:        health,
		metrics:       m,
		verifyToken:   verifyToken,
		intakeTimeout: intakeTimeout,
		location:      location,
		logger:        logger,
	}
}

// VerifyWebhook answers the provider's subscription handshake.
func (h *Handlers) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode != "subscribe" || h.verifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		h.logger.Warn("webhook verification rejected", zap.String("mode", mode))
		w.WriteHeader(http.StatusForbidden)
		return
	}

	h.logger.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// ReceiveWebhook acknowledges every well-formed delivery with 200 so the
// provider never retries it, whatever the pipeline outcome.
func (h *Handlers) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("failed to read webhook body", zap.Error(err))
		h.metrics.WebhookDeliveries.WithLabelValues(metrics.OutcomeInvalid).Inc()
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if !isJSONDocument(body) {
		h.logger.Warn("webhook body is not valid json", zap.Int("size", len(body)))
		h.metrics.WebhookDeliveries.WithLabelValues(metrics.OutcomeInvalid).Inc()
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.intakeTimeout)
	defer cancel()

	result, err := h.intake.Handle(ctx, body)
	if err != nil {
		h.logger.Warn("webhook delivery handled with errors", zap.String("outcome", string(result.Outcome)), zap.Error(err))
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) AdminReport(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.report.Recent(r.Context())
	if err != nil {
		h.logger.Error("failed to load alerts", zap.Error(err))
		http.Error(w, "Erro ao carregar alertas", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ Alerts []alertView }{Alerts: newAlertViews(alerts, h.location)}
	if err := adminTemplate.Execute(w, data); err != nil {
		h.logger.Warn("failed to render admin report", zap.Error(err))
	}
}

func (h *Handlers) AdminAlertsJSON(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.report.Recent(r.Context())
	if err != nil {
		h.logger.Error("failed to load alerts", zap.Error(err))
		http.Error(w, "Erro ao carregar alertas", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, newAlertViews(alerts, h.location))
}

func (h *Handlers) AdminAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	alert, err := h.report.Get(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, usecase.ErrAlertNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to load alert", zap.Uint64("alert_id", id), zap.Error(err))
		http.Error(w, "Erro ao carregar alerta", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, newAlertView(*alert, h.location))
}

func (h *Handlers) AdminFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("feed upgrade failed", zap.Error(err))
		return
	}
	if !h.hub.attach(conn) {
		_ = conn.Close()
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.health(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "unavailable")
		return
	}
	_, _ = io.WriteString(w, "ok")
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// isJSONDocument accepts only a top-level object or array, the same bodies a
// strict JSON body parser lets through.
func isJSONDocument(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	parsed := gjson.ParseBytes(body)
	return parsed.IsObject() || parsed.IsArray()
}
