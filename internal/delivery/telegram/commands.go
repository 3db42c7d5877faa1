package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alertavivo/relay/internal/domain"
)

const HelpText = `Comandos:
/alertas - últimos alertas
/alerta <id> - detalhes de um alerta
/ajuda - mostra esta ajuda`

// maxMessageLen keeps replies under Telegram's 4096 character limit.
const maxMessageLen = 3800

var ErrInvalidArguments = errors.New("invalid arguments")

func ParseAlertID(args string) (uint, error) {
	idStr := strings.TrimPrefix(strings.TrimSpace(args), "#")
	if idStr == "" {
		return 0, ErrInvalidArguments
	}
	value, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || value == 0 {
		return 0, ErrInvalidArguments
	}
	return uint(value), nil
}

func formatAlertList(alerts []domain.Alert, location *time.Location) string {
	if len(alerts) == 0 {
		return "Nenhum alerta registrado."
	}

	header := "Alertas recentes:\n"
	var builder strings.Builder
	builder.WriteString(header)
	remaining := 0
	for i, alert := range alerts {
		line := fmt.Sprintf("#%d %s %s %q\n", alert.ID, alert.CreatedAt.In(location).Format("02/01 15:04"), alert.Sender, truncate(alert.Message, 60))
		if builder.Len()+len(line) > maxMessageLen {
			remaining = len(alerts) - i
			break
		}
		builder.WriteString(line)
	}
	if remaining > 0 {
		builder.WriteString(fmt.Sprintf("...e mais %d alertas", remaining))
	}
	return builder.String()
}

func formatAlertDetail(alert domain.Alert, location *time.Location, listenURL string) string {
	return fmt.Sprintf(
		"Alerta #%d\nTelefone: %s\nMensagem: %s\nData: %s\nStatus: %s\nEscuta: %s",
		alert.ID,
		alert.Sender,
		alert.Message,
		alert.CreatedAt.In(location).Format("02/01/2006 15:04:05"),
		alert.Status,
		listenURL,
	)
}

func truncate(text string, max int) string {
	runes := []rune(strings.ReplaceAll(text, "\n", " "))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max-3]) + "..."
}
