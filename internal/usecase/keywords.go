package usecase

import (
	"strings"

	"github.com/alertavivo/relay/internal/domain"
	"github.com/tidwall/gjson"
)

// Keywords are matched as case-insensitive substrings, without word
// boundaries: "eu mandei" matches "mandei".
var Keywords = []string{
	"alerta",
	"sos",
	"ajuda",
	"socorro",
	"assalto",
	"roubo",
	"acidente",
	"mandei",
}

const messagePath = "entry.0.changes.0.value.messages.0"

// ExtractMessage returns the first message of a webhook delivery. Deliveries
// without one, such as status callbacks, report false.
func ExtractMessage(payload []byte) (domain.InboundMessage, bool) {
	msg := gjson.GetBytes(payload, messagePath)
	if !msg.Exists() || !msg.IsObject() {
		return domain.InboundMessage{}, false
	}
	return domain.InboundMessage{
		From: msg.Get("from").String(),
		Text: msg.Get("text.body").String(),
	}, true
}

// MatchKeyword reports the first keyword contained in text.
func MatchKeyword(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, keyword := range Keywords {
		if strings.Contains(lowered, keyword) {
			return keyword, true
		}
	}
	return "", false
}
