package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	WhatsAppToken      string        `env:"WHATSAPP_TOKEN,required"`
	PhoneNumberID      string        `env:"PHONE_NUMBER_ID,required"`
	VerifyToken        string        `env:"VERIFY_TOKEN,required"`
	GraphBaseURL       string        `env:"GRAPH_API_BASE_URL,default=https://graph.facebook.com/v18.0"`
	WhatsAppTimeout    time.Duration `env:"WHATSAPP_TIMEOUT,default=10s"`
	WhatsAppMaxRetries uint64        `env:"WHATSAPP_MAX_RETRIES,default=3"`

	DatabaseURL       string        `env:"DATABASE_URL,required"`
	DBDriver          string        `env:"DB_DRIVER,default=postgres"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	ListenBaseURL     string        `env:"LISTEN_BASE_URL,default=https://alertavivo.com.br/escuta"`
	SuppressionWindow time.Duration `env:"SUPPRESSION_WINDOW,default=0s"`
	IntakeTimeout     time.Duration `env:"INTAKE_TIMEOUT,default=30s"`

	HTTPAddr      string `env:"HTTP_ADDR,default=:3000"`
	AdminTimezone string `env:"ADMIN_TIMEZONE,default=America/Sao_Paulo"`

	TelegramBotToken    string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID      int64         `env:"TELEGRAM_CHAT_ID"`
	TelegramPollTimeout int           `env:"TELEGRAM_POLL_TIMEOUT,default=60"`
	TelegramTimeout     time.Duration `env:"TELEGRAM_TIMEOUT,default=10s"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`
}

func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EscalationEnabled reports whether an operator Telegram chat is configured.
func (c Config) EscalationEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}
