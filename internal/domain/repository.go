package domain

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) error
	GetByID(ctx context.Context, id uint) (*Alert, error)
	ListRecent(ctx context.Context, limit int) ([]Alert, error)
	CountBySenderSince(ctx context.Context, sender string, since time.Time) (int64, error)
}

type MessageSender interface {
	SendText(ctx context.Context, to, body string) error
}
