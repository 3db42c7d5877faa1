package domain

import "time"

// StatusActive is the only status an alert ever carries.
const StatusActive = "ativo"

type Alert struct {
	ID        uint
	Sender    string
	Message   string
	Status    string
	CreatedAt time.Time
}

// InboundMessage is the first message extracted from a webhook delivery.
type InboundMessage struct {
	From string
	Text string
}
