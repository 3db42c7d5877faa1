package usecase

import (
	"fmt"
	"net/url"
	"strings"
)

const emergencyReplyTemplate = `🚨 ALERTAVIVO ATIVADO

Fique calmo.
Ajuda está sendo acionada agora.

🎙️ Fale ao vivo:
%s

📍 Envie sua localização.`

// ListenURL is the live-listen page for a sender.
func ListenURL(baseURL, sender string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(sender)
}

func EmergencyReply(listenBaseURL, sender string) string {
	return fmt.Sprintf(emergencyReplyTemplate, ListenURL(listenBaseURL, sender))
}
