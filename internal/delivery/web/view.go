package web

import (
	"time"

	"github.com/alertavivo/relay/internal/domain"
)

const timestampLayout = "02/01/2006 15:04:05"

type alertView struct {
	ID        uint   `json:"id"`
	Sender    string `json:"telefone"`
	Message   string `json:"mensagem"`
	CreatedAt string `json:"criado_em"`
	Status    string `json:"status"`
}

func newAlertView(alert domain.Alert, location *time.Location) alertView {
	return alertView{
		ID:        alert.ID,
		Sender:    alert.Sender,
		Message:   alert.Message,
		CreatedAt: alert.CreatedAt.In(location).Format(timestampLayout),
		Status:    alert.Status,
	}
}

func newAlertViews(alerts []domain.Alert, location *time.Location) []alertView {
	views := make([]alertView, 0, len(alerts))
	for _, alert := range alerts {
		views = append(views, newAlertView(alert, location))
	}
	return views
}
