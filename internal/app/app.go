package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/alertavivo/relay/internal/config"
	tgdelivery "github.com/alertavivo/relay/internal/delivery/telegram"
	"github.com/alertavivo/relay/internal/delivery/web"
	"github.com/alertavivo/relay/internal/infra/db"
	"github.com/alertavivo/relay/internal/infra/log"
	"github.com/alertavivo/relay/internal/infra/metrics"
	"github.com/alertavivo/relay/internal/infra/telegram"
	"github.com/alertavivo/relay/internal/infra/whatsapp"
	"github.com/alertavivo/relay/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server    *http.Server
	hub       *web.Hub
	bot       *tgdelivery.Bot
	logger    *zap.Logger
	cleanupFn func() error
}

// New builds the service. The database is pinged and migrated before New
// returns, so a listener never starts against a missing table.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(cfg.AdminTimezone)
	if err != nil {
		return nil, fmt.Errorf("load admin timezone: %w", err)
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	cleanup := func() error {
		sqlDB, err := dbConn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	if err := db.Ping(ctx, dbConn); err != nil {
		_ = cleanup()
		return nil, err
	}
	if err := db.Migrate(dbConn); err != nil {
		_ = cleanup()
		return nil, err
	}
	logger.Info("database ready", zap.String("driver", cfg.DBDriver))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	alertRepo := db.NewAlertRepository(dbConn)
	sender := whatsapp.NewClient(cfg.GraphBaseURL, cfg.PhoneNumberID, cfg.WhatsAppToken, cfg.WhatsAppTimeout, cfg.WhatsAppMaxRetries, logger)
	hub := web.NewHub(location, logger)

	reportUC := usecase.NewReportUsecase(alertRepo)

	var (
		escalator usecase.Escalator
		bot       *tgdelivery.Bot
	)
	if cfg.EscalationEnabled() {
		api, err := telegram.NewAPI(cfg.TelegramBotToken, cfg.TelegramTimeout)
		if err != nil {
			_ = cleanup()
			return nil, fmt.Errorf("connect telegram: %w", err)
		}
		// getUpdates long-polls, so the command bot needs a longer deadline
		// than the escalation sends.
		pollAPI, err := telegram.NewAPI(cfg.TelegramBotToken, time.Duration(cfg.TelegramPollTimeout)*time.Second+cfg.TelegramTimeout)
		if err != nil {
			_ = cleanup()
			return nil, fmt.Errorf("connect telegram: %w", err)
		}
		escalator = telegram.NewEscalator(api, cfg.TelegramChatID, logger)
		botHandlers := tgdelivery.NewHandlers(reportUC, cfg.TelegramChatID, location, cfg.ListenBaseURL, logger)
		bot = tgdelivery.NewBot(pollAPI, botHandlers, cfg.TelegramPollTimeout, logger)
		logger.Info("operator escalation enabled", zap.Int64("chat_id", cfg.TelegramChatID))
	}

	suppressor := usecase.NewSuppressor(cfg.SuppressionWindow, nil)
	intakeUC := usecase.NewIntakeUsecase(alertRepo, sender, suppressor, escalator, hub, cfg.ListenBaseURL, m, logger)

	health := func(ctx context.Context) error { return db.Ping(ctx, dbConn) }
	handlers := web.NewHandlers(intakeUC, reportUC, hub, health, m, cfg.VerifyToken, cfg.IntakeTimeout, location, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           web.NewRouter(handlers, registry, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{server: server, hub: hub, bot: bot, logger: logger, cleanupFn: cleanup}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("alertavivo relay starting", zap.String("addr", a.server.Addr))

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	go a.hub.Run(bgCtx)

	if a.bot != nil {
		go func() {
			if err := a.bot.Start(bgCtx); err != nil {
				a.logger.Warn("operator bot stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("alertavivo relay stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("alertavivo relay shutting down")
	if a.cleanupFn != nil {
		if err := a.cleanupFn(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
